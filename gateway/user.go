package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/robertmeta/portal-cli/model"
)

// UserService is the client for the user and auth service.
type UserService struct {
	client
}

// NewUserService creates a UserService for baseURL.
func NewUserService(baseURL string, opts Options) *UserService {
	return &UserService{client: newClient(baseURL, opts)}
}

// ListUsers returns every user.
func (u *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := u.do(ctx, http.MethodGet, "/users", "", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns one user.
func (u *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := u.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), "", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for an access token.
func (u *UserService) Login(ctx context.Context, username, password string) (*model.Token, error) {
	var tok model.Token
	if err := u.do(ctx, http.MethodPost, "/login", "", loginRequest{Username: username, Password: password}, &tok); err != nil {
		return nil, err
	}
	tok.TokenType = tok.Type()
	return &tok, nil
}

// GetCurrentUser resolves token to its user. The service takes the token
// as a query parameter rather than a header.
func (u *UserService) GetCurrentUser(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	query := url.Values{"token": {token}}.Encode()
	if err := u.do(ctx, http.MethodGet, "/me", query, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser registers a new account.
func (u *UserService) CreateUser(ctx context.Context, draft model.UserDraft) (*model.User, error) {
	var user model.User
	if err := u.do(ctx, http.MethodPost, "/users", "", draft, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
