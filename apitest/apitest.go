// Package apitest runs in-memory stand-ins for the user service and the
// data service so clients can be exercised end to end in tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/robertmeta/portal-cli/model"
)

// Services holds both fake services. Close must be called when done.
type Services struct {
	Users *httptest.Server
	Data  *httptest.Server

	// RequireToken makes every data-service route answer 401 unless the
	// request carries a bearer token issued by the user service.
	RequireToken atomic.Bool

	userRequests atomic.Int64
	dataRequests atomic.Int64

	mu        sync.Mutex
	users     []model.User
	passwords map[string]string
	tokens    map[string]model.User
	content   []model.ContentItem
	nextID    int
	analytics model.Analytics
	lastQuery string
	lastAuth  string
}

// New starts both services with seed data.
func New() *Services {
	s := &Services{
		passwords: make(map[string]string),
		tokens:    make(map[string]model.User),
	}
	s.seed()

	s.Users = httptest.NewServer(countRequests(&s.userRequests)(s.userRouter()))
	s.Data = httptest.NewServer(countRequests(&s.dataRequests)(s.dataRouter()))
	return s
}

// Close shuts both servers down.
func (s *Services) Close() {
	s.Users.Close()
	s.Data.Close()
}

// Requests returns how many requests each service has received.
func (s *Services) Requests() (users, data int64) {
	return s.userRequests.Load(), s.dataRequests.Load()
}

// TotalRequests is the sum of Requests.
func (s *Services) TotalRequests() int64 {
	u, d := s.Requests()
	return u + d
}

// LastQuery returns the raw query string of the last GET /content.
func (s *Services) LastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// LastAuthorization returns the Authorization header of the last
// data-service request.
func (s *Services) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// RevokeTokens forgets every issued token.
func (s *Services) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]model.User)
}

// Content returns a copy of the stored content.
func (s *Services) Content() []model.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ContentItem, len(s.content))
	copy(out, s.content)
	return out
}

func (s *Services) seed() {
	s.users = []model.User{
		{ID: "1", Username: "johndoe", Email: "john@example.com", Name: "John Doe", CreatedAt: "2025-01-01T00:00:00"},
		{ID: "2", Username: "janedoe", Email: "jane@example.com", Name: "Jane Doe", CreatedAt: "2025-01-02T00:00:00"},
		{ID: "3", Username: "bobsmith", Email: "bob@example.com", Name: "Bob Smith", CreatedAt: "2025-01-03T00:00:00"},
	}

	s.content = []model.ContentItem{
		{ID: "1", Title: "Getting Started Guide", Content: "A comprehensive guide to get you started.", AuthorID: "1", CreatedAt: "2025-01-01T00:00:00", Category: "guides", Tags: []string{"intro", "basics"}, Status: model.StatusPublished, Featured: true, Views: 120, Likes: 8},
		{ID: "2", Title: "Advanced Techniques", Content: "Learn advanced techniques to maximize productivity.", AuthorID: "2", CreatedAt: "2025-01-02T00:00:00", Category: "guides", Tags: []string{"advanced"}, Status: model.StatusPublished, Views: 80, Likes: 5},
		{ID: "3", Title: "Troubleshooting", Content: "Common issues and how to solve them quickly.", AuthorID: "1", CreatedAt: "2025-01-03T00:00:00", Category: "support", Tags: []string{"help", "basics"}, Status: model.StatusPublished, Views: 45, Likes: 2},
		{ID: "4", Title: "Release Notes", Content: "What changed this week.", AuthorID: "3", CreatedAt: "2025-01-04T00:00:00", Category: "news", Tags: []string{"release"}, Status: model.StatusDraft, Views: 200, Likes: 11},
	}
	s.nextID = len(s.content) + 1

	s.analytics = model.Analytics{
		DailyVisits: []model.DailyVisits{
			{Date: "2025-01-01", Count: 120},
			{Date: "2025-01-02", Count: 340},
			{Date: "2025-01-03", Count: 215},
		},
		UserActivity: []model.UserActivity{
			{UserID: "1", Actions: 12},
			{UserID: "2", Actions: 30},
			{UserID: "3", Actions: 7},
		},
		PopularContent: []model.PopularContent{
			{ID: "1", Title: "Getting Started Guide", Views: 120},
			{ID: "2", Title: "Advanced Techniques", Views: 80},
			{ID: "4", Title: "Release Notes", Views: 200},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func countRequests(counter *atomic.Int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			counter.Add(1)
			next.ServeHTTP(w, r)
		})
	}
}

// ---- user service ----

func (s *Services) userRouter() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", s.createUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", s.getUser).Methods(http.MethodGet)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/me", s.me).Methods(http.MethodGet)
	return r
}

func (s *Services) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.users)
}

func (s *Services) getUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (s *Services) createUser(w http.ResponseWriter, r *http.Request) {
	var draft model.UserDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == draft.Username {
			writeDetail(w, http.StatusBadRequest, "Username already registered")
			return
		}
	}

	user := model.User{
		ID:        strconv.Itoa(len(s.users) + 1),
		Username:  draft.Username,
		Email:     draft.Email,
		Name:      draft.Name,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05"),
	}
	s.users = append(s.users, user)
	s.passwords[user.Username] = draft.Password
	writeJSON(w, http.StatusOK, user)
}

func (s *Services) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username != creds.Username {
			continue
		}
		// Seeded accounts accept any password.
		if pw, ok := s.passwords[u.Username]; ok && pw != creds.Password {
			break
		}
		token := uuid.NewString()
		s.tokens[token] = u
		writeJSON(w, http.StatusOK, model.Token{AccessToken: token, TokenType: "bearer"})
		return
	}
	writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
}

func (s *Services) me(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.tokens[token]
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid authentication credentials")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ---- data service ----

func (s *Services) dataRouter() http.Handler {
	r := mux.NewRouter()
	r.Use(s.checkToken)
	r.HandleFunc("/analytics", s.getAnalytics).Methods(http.MethodGet)
	r.HandleFunc("/content", s.listContent).Methods(http.MethodGet)
	r.HandleFunc("/content", s.createContent).Methods(http.MethodPost)
	r.HandleFunc("/content/categories", s.listCategories).Methods(http.MethodGet)
	r.HandleFunc("/content/tags", s.listTags).Methods(http.MethodGet)
	r.HandleFunc("/content/author/{author}", s.contentByAuthor).Methods(http.MethodGet)
	r.HandleFunc("/content/{id}", s.getContent).Methods(http.MethodGet)
	r.HandleFunc("/content/{id}", s.updateContent).Methods(http.MethodPut)
	r.HandleFunc("/content/{id}", s.deleteContent).Methods(http.MethodDelete)
	r.HandleFunc("/content/{id}/like", s.likeContent).Methods(http.MethodPost)
	return r
}

func (s *Services) checkToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		s.mu.Lock()
		s.lastAuth = auth
		_, valid := s.tokens[strings.TrimPrefix(auth, "Bearer ")]
		s.mu.Unlock()

		if s.RequireToken.Load() && !valid {
			writeDetail(w, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Services) getAnalytics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.analytics)
}

func (s *Services) listContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = r.URL.RawQuery

	items := []model.ContentItem{}
	search := strings.ToLower(q.Get("search"))
	for _, c := range s.content {
		if search != "" && !strings.Contains(strings.ToLower(c.Title), search) && !strings.Contains(strings.ToLower(c.Content), search) {
			continue
		}
		if v := q.Get("category"); v != "" && c.Category != v {
			continue
		}
		if v := q.Get("tag"); v != "" && !c.HasTag(v) {
			continue
		}
		if v := q.Get("status"); v != "" && c.Status != v {
			continue
		}
		if v := q.Get("featured"); v != "" {
			if want, err := strconv.ParseBool(v); err == nil && c.Featured != want {
				continue
			}
		}
		items = append(items, c)
	}

	switch q.Get("sort_by") {
	case "views":
		sort.SliceStable(items, func(i, j int) bool { return items[i].Views > items[j].Views })
	case "likes":
		sort.SliceStable(items, func(i, j int) bool { return items[i].Likes > items[j].Likes })
	case "title":
		sort.SliceStable(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	case "created_at":
		sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt > items[j].CreatedAt })
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Services) findContent(id string) int {
	for i, c := range s.content {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Services) getContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findContent(mux.Vars(r)["id"])
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	s.content[i].Views++
	writeJSON(w, http.StatusOK, s.content[i])
}

func (s *Services) contentByAuthor(w http.ResponseWriter, r *http.Request) {
	author := mux.Vars(r)["author"]
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []model.ContentItem{}
	for _, c := range s.content {
		if c.AuthorID == author {
			items = append(items, c)
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Services) createContent(w http.ResponseWriter, r *http.Request) {
	var draft model.ContentDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if draft.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	item := model.ContentItem{ID: strconv.Itoa(s.nextID), CreatedAt: draft.CreatedAt}
	s.nextID++
	item.Apply(draft)
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if item.Status == "" {
		item.Status = model.StatusDraft
	}
	s.content = append(s.content, item)
	writeJSON(w, http.StatusOK, item)
}

func (s *Services) updateContent(w http.ResponseWriter, r *http.Request) {
	var incoming model.ContentItem
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findContent(mux.Vars(r)["id"])
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	s.content[i].Apply(incoming.Draft())
	if s.content[i].Tags == nil {
		s.content[i].Tags = []string{}
	}
	writeJSON(w, http.StatusOK, s.content[i])
}

func (s *Services) deleteContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findContent(mux.Vars(r)["id"])
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	s.content = append(s.content[:i], s.content[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Content deleted successfully"})
}

func (s *Services) likeContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findContent(mux.Vars(r)["id"])
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Content not found")
		return
	}
	s.content[i].Likes++
	writeJSON(w, http.StatusOK, map[string]int{"likes": s.content[i].Likes})
}

func (s *Services) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, distinct(s.content, func(c model.ContentItem) []string {
		if c.Category == "" {
			return nil
		}
		return []string{c.Category}
	}))
}

func (s *Services) listTags(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, distinct(s.content, func(c model.ContentItem) []string { return c.Tags }))
}

func distinct(items []model.ContentItem, values func(model.ContentItem) []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, c := range items {
		for _, v := range values(c) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}
