// Package router maps portal paths onto view controllers and follows
// the redirects they ask for.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/robertmeta/portal-cli/controller"
	"github.com/robertmeta/portal-cli/model"
	"github.com/rs/zerolog"
)

// ErrNotAuthenticated is reported when a protected route is requested
// without a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// MaxRedirects bounds how many redirects Navigate follows.
const MaxRedirects = 5

// Route names.
const (
	RouteHome          = "home"
	RouteLogin         = "login"
	RouteRegister      = "register"
	RouteDashboard     = "dashboard"
	RouteContent       = "content"
	RouteContentDetail = "content_detail"
	RouteProfile       = "profile"
	RouteNotFound      = "not_found"
)

var public = map[string]bool{
	RouteHome:     true,
	RouteLogin:    true,
	RouteRegister: true,
	RouteNotFound: true,
}

// Home is the landing view.
type Home struct {
	Title    string   `json:"title"`
	Services []string `json:"services"`
}

// NotFound is the view for unknown paths.
type NotFound struct {
	Path string `json:"path"`
}

// Result is where a navigation ended up.
type Result struct {
	Path    string             `json:"path"`
	Route   string             `json:"route"`
	Vars    map[string]string  `json:"vars,omitempty"`
	Outcome controller.Outcome `json:"outcome"`
	// Hops lists the paths visited before Path, oldest first.
	Hops []string `json:"hops,omitempty"`
	// View is the controller (or static view) that rendered Path.
	View any `json:"-"`
}

// Router owns one controller per route. Only one of them is active at a
// time; navigating away deactivates the previous one.
type Router struct {
	routes *mux.Router
	sess   controller.Session
	log    zerolog.Logger

	login     *controller.Login
	register  *controller.Register
	dashboard *controller.Dashboard
	content   *controller.ContentList
	detail    *controller.ContentDetail
	profile   *controller.Profile

	active interface{ Deactivate() }
}

// New builds the router and its controllers from d.
func New(d controller.Deps) *Router {
	r := mux.NewRouter()
	r.Path(controller.PathHome).Name(RouteHome)
	r.Path(controller.PathLogin).Name(RouteLogin)
	r.Path(controller.PathRegister).Name(RouteRegister)
	r.Path(controller.PathDashboard).Name(RouteDashboard)
	r.Path(controller.PathContent).Name(RouteContent)
	r.Path(controller.PathContent + "/{id}").Name(RouteContentDetail)
	r.Path(controller.PathProfile).Name(RouteProfile)

	return &Router{
		routes:    r,
		sess:      d.Session,
		log:       d.Logger.With().Str("component", "router").Logger(),
		login:     controller.NewLogin(d),
		register:  controller.NewRegister(d),
		dashboard: controller.NewDashboard(d),
		content:   controller.NewContentList(d),
		detail:    controller.NewContentDetail(d),
		profile:   controller.NewProfile(d),
	}
}

// Resolve returns the route name and variables for path without
// activating anything. Unknown paths resolve to RouteNotFound.
func (r *Router) Resolve(path string) (string, map[string]string, url.Values, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", nil, nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}

	req, err := http.NewRequest(http.MethodGet, p, nil)
	if err != nil {
		return "", nil, nil, fmt.Errorf("invalid path %q: %w", path, err)
	}

	var match mux.RouteMatch
	if !r.routes.Match(req, &match) || match.Route == nil {
		return RouteNotFound, nil, u.Query(), nil
	}
	return match.Route.GetName(), match.Vars, u.Query(), nil
}

// Protected reports whether route needs a session.
func Protected(route string) bool {
	return !public[route]
}

// Navigate opens path and follows redirects until a screen settles or
// MaxRedirects is exceeded.
func (r *Router) Navigate(ctx context.Context, path string) (Result, error) {
	var hops []string
	for i := 0; ; i++ {
		res, err := r.open(ctx, path)
		if err != nil {
			return res, err
		}
		res.Hops = hops
		if res.Outcome.State != controller.Redirected || res.Outcome.Redirect == "" {
			return res, nil
		}
		if i == MaxRedirects {
			return res, fmt.Errorf("too many redirects navigating to %s", hops[0])
		}
		r.log.Debug().Str("from", res.Path).Str("to", res.Outcome.Redirect).Msg("redirect")
		hops = append(hops, res.Path)
		path = res.Outcome.Redirect
	}
}

// open activates the controller for a single path.
func (r *Router) open(ctx context.Context, path string) (Result, error) {
	route, vars, query, err := r.Resolve(path)
	if err != nil {
		return Result{Path: path}, err
	}
	res := Result{Path: path, Route: route, Vars: vars}

	r.deactivate()

	if Protected(route) && !r.sess.IsAuthenticated() {
		r.log.Debug().Str("path", path).Msg("no session, redirecting to login")
		res.Outcome = controller.Outcome{
			State:    controller.Redirected,
			Redirect: controller.PathLogin,
			Err:      ErrNotAuthenticated,
		}
		return res, nil
	}

	switch route {
	case RouteHome:
		res.View = Home{
			Title:    "Microservices Demo Application",
			Services: []string{"User Service", "Data Service"},
		}
		res.Outcome = controller.Outcome{State: controller.Ready}
	case RouteNotFound:
		res.View = NotFound{Path: path}
		res.Outcome = controller.Outcome{State: controller.Ready}
	case RouteLogin:
		res.Outcome = r.login.Activate(ctx)
		res.View = r.login
		r.active = r.login
	case RouteRegister:
		res.Outcome = r.register.Activate(ctx)
		res.View = r.register
		r.active = r.register
	case RouteDashboard:
		res.Outcome = r.dashboard.Activate(ctx)
		res.View = r.dashboard
		r.active = r.dashboard
	case RouteContent:
		filters, ferr := model.BuildContentFilters(
			query.Get("search"), query.Get("category"), query.Get("tag"),
			query.Get("sort_by"), query.Get("featured"), query.Get("status"),
		)
		if ferr != nil {
			return res, ferr
		}
		res.Outcome = r.content.Activate(ctx, filters)
		res.View = r.content
		r.active = r.content
	case RouteContentDetail:
		res.Outcome = r.detail.Activate(ctx, vars["id"])
		res.View = r.detail
		r.active = r.detail
	case RouteProfile:
		res.Outcome = r.profile.Activate(ctx)
		res.View = r.profile
		r.active = r.profile
	}
	return res, nil
}

func (r *Router) deactivate() {
	if r.active != nil {
		r.active.Deactivate()
		r.active = nil
	}
}

// Close ends whatever activation is live.
func (r *Router) Close() {
	r.deactivate()
}

// ContentList returns the content list controller.
func (r *Router) ContentList() *controller.ContentList { return r.content }

// ContentDetail returns the content detail controller.
func (r *Router) ContentDetail() *controller.ContentDetail { return r.detail }

// Profile returns the profile controller.
func (r *Router) Profile() *controller.Profile { return r.profile }

// Login returns the login controller.
func (r *Router) Login() *controller.Login { return r.login }

// Register returns the registration controller.
func (r *Router) Register() *controller.Register { return r.register }
