// Package controller implements one view controller per portal screen.
//
// A controller is activated once per navigation. Activation either
// redirects straight to the login screen (no session, no network) or
// moves through Loading to Ready or Failed. The result of every
// operation is an Outcome: the new state, an optional navigation target
// and the notices shown to the user. Controllers never navigate on
// their own; the router follows Outcome.Redirect.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/robertmeta/portal-cli/gateway"
	"github.com/robertmeta/portal-cli/model"
	"github.com/rs/zerolog"
)

// Navigation targets used by controllers.
const (
	PathHome      = "/"
	PathLogin     = "/login"
	PathRegister  = "/register"
	PathDashboard = "/dashboard"
	PathContent   = "/content"
	PathProfile   = "/profile"
)

// State is the lifecycle position of a controller activation.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Failed
	Redirected
	// Stale marks a result that arrived after its activation ended and
	// was discarded.
	Stale
)

var stateNames = [...]string{"idle", "loading", "ready", "failed", "redirected", "stale"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Level is the severity of a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier receives notices as they are raised.
type Notifier interface {
	Notify(n Notice)
}

// Recorder is a Notifier that keeps every notice in order.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Drain returns and forgets the recorded notices.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

// Outcome is the result of a controller operation.
type Outcome struct {
	State    State    `json:"state"`
	Redirect string   `json:"redirect,omitempty"`
	Notices  []Notice `json:"notices,omitempty"`
	// Err is the failure behind a Failed or redirecting outcome.
	Err error `json:"-"`
}

// Session is what controllers need from the session manager.
type Session interface {
	IsAuthenticated() bool
	CurrentUser() *model.User
	RefreshUser(ctx context.Context) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout() error
	Invalidate() error
}

// ContentGateway is the data service as seen by controllers.
type ContentGateway interface {
	ListContent(ctx context.Context, filters model.ContentFilters) ([]model.ContentItem, error)
	GetContent(ctx context.Context, id string) (*model.ContentItem, error)
	GetContentByAuthor(ctx context.Context, authorID string) ([]model.ContentItem, error)
	CreateContent(ctx context.Context, draft model.ContentDraft) (*model.ContentItem, error)
	UpdateContent(ctx context.Context, item model.ContentItem) (*model.ContentItem, error)
	DeleteContent(ctx context.Context, id string) error
	LikeContent(ctx context.Context, id string) (int, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListTags(ctx context.Context) ([]string, error)
	GetAnalytics(ctx context.Context) (*model.Analytics, error)
}

// UserGateway is the user service as seen by controllers.
type UserGateway interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, draft model.UserDraft) (*model.User, error)
}

// Confirm asks the user to approve a destructive action.
type Confirm func(prompt string) bool

// Deps bundles what every controller is built from.
type Deps struct {
	Session  Session
	Data     ContentGateway
	Users    UserGateway
	Notifier Notifier
	Logger   zerolog.Logger
}

// base carries the activation bookkeeping shared by all controllers.
type base struct {
	mu     sync.Mutex
	gen    uint64
	active bool
	state  State

	sess   Session
	notify Notifier
	log    zerolog.Logger
}

func (b *base) init(d Deps, name string) {
	b.sess = d.Session
	b.notify = d.Notifier
	if b.notify == nil {
		b.notify = &Recorder{}
	}
	b.log = d.Logger.With().Str("view", name).Logger()
}

// State returns the current state.
func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Deactivate ends the current activation. Responses still in flight
// are discarded when they arrive.
func (b *base) Deactivate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.active = false
	b.state = Idle
}

// activate starts a new activation. It returns ok=false together with a
// redirect outcome when there is no session.
func (b *base) activate() (uint64, Outcome, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	b.active = true

	if !b.sess.IsAuthenticated() {
		b.state = Redirected
		return b.gen, Outcome{State: Redirected, Redirect: PathLogin}, false
	}

	b.state = Loading
	return b.gen, Outcome{State: Loading}, true
}

// activatePublic starts an activation that needs no session.
func (b *base) activatePublic() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
	b.active = true
	b.state = Ready
	return b.gen
}

// current returns the generation of a live activation.
func (b *base) current() (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen, b.active
}

// commit runs apply and moves to state if gen is still the live
// activation; otherwise the result is dropped.
func (b *base) commit(gen uint64, state State, apply func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen || !b.active {
		b.log.Debug().Uint64("generation", gen).Msg("discarding late response")
		return false
	}
	if apply != nil {
		apply()
	}
	b.state = state
	return true
}

// requireSession is the mutation-time check: a logged out user is sent
// to the login screen.
func (b *base) requireSession() (Outcome, bool) {
	if b.sess.IsAuthenticated() {
		return Outcome{}, true
	}
	b.mu.Lock()
	b.state = Redirected
	b.mu.Unlock()
	return Outcome{State: Redirected, Redirect: PathLogin}, false
}

func (b *base) stale() Outcome {
	return Outcome{State: Stale}
}

// report raises a notice on behalf of activation gen without changing
// state. It returns ok=false, and raises nothing, once gen has ended.
func (b *base) report(gen uint64, level Level, msg string) (Notice, State, bool) {
	b.mu.Lock()
	if gen != b.gen || !b.active {
		b.mu.Unlock()
		b.log.Debug().Uint64("generation", gen).Msg("discarding late response")
		return Notice{}, Stale, false
	}
	state := b.state
	b.mu.Unlock()
	return b.notice(level, msg), state, true
}

func (b *base) notice(level Level, msg string) Notice {
	n := Notice{Level: level, Message: msg}
	b.notify.Notify(n)
	return n
}

// fail reports err for activation gen. A 401 means the token is no
// longer good: the session is dropped and the user sent to log in.
// Otherwise the controller moves to Failed, or to Redirected when
// redirect is set.
func (b *base) fail(gen uint64, err error, msg, redirect string) Outcome {
	if errors.Is(err, gateway.ErrUnauthorized) {
		if ierr := b.sess.Invalidate(); ierr != nil {
			b.log.Warn().Err(ierr).Msg("failed to clear rejected session")
		}
		if !b.commit(gen, Redirected, nil) {
			return b.stale()
		}
		n := b.notice(LevelError, "Your session has expired, please log in again")
		return Outcome{State: Redirected, Redirect: PathLogin, Notices: []Notice{n}, Err: err}
	}

	state := Failed
	if redirect != "" {
		state = Redirected
	}
	if !b.commit(gen, state, nil) {
		return b.stale()
	}

	b.log.Warn().Err(err).Msg(msg)
	n := b.notice(LevelError, msg)
	return Outcome{State: state, Redirect: redirect, Notices: []Notice{n}, Err: err}
}

// remoteMessage prefers the server's own wording for a RemoteError.
func remoteMessage(err error, fallback string) string {
	var re *gateway.RemoteError
	if errors.As(err, &re) && re.StatusCode != 0 && re.Message != "" {
		return re.Message
	}
	return fallback
}
