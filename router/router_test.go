package router

import (
	"context"
	"testing"

	"github.com/robertmeta/portal-cli/apitest"
	"github.com/robertmeta/portal-cli/controller"
	"github.com/robertmeta/portal-cli/gateway"
	"github.com/robertmeta/portal-cli/session"
	"github.com/robertmeta/portal-cli/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*Router, *session.Manager, *apitest.Services) {
	t.Helper()
	svc := apitest.New()
	t.Cleanup(svc.Close)

	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	users := gateway.NewUserService(svc.Users.URL, gateway.Options{})
	mgr := session.New(st, users, zerolog.Nop())
	r := New(controller.Deps{
		Session: mgr,
		Data:    gateway.NewDataService(svc.Data.URL, gateway.Options{Tokens: mgr}),
		Users:   users,
		Logger:  zerolog.Nop(),
	})
	t.Cleanup(r.Close)
	return r, mgr, svc
}

func TestRouter_Resolve(t *testing.T) {
	r, _, _ := newRouter(t)

	tests := []struct {
		path      string
		wantRoute string
		wantVars  map[string]string
	}{
		{"/", RouteHome, nil},
		{"", RouteHome, nil},
		{"/login", RouteLogin, nil},
		{"/register", RouteRegister, nil},
		{"/dashboard", RouteDashboard, nil},
		{"/dashboard/", RouteDashboard, nil},
		{"/content", RouteContent, nil},
		{"/content?category=news", RouteContent, nil},
		{"/content/7", RouteContentDetail, map[string]string{"id": "7"}},
		{"/profile", RouteProfile, nil},
		{"/nowhere", RouteNotFound, nil},
		{"/content/7/extra", RouteNotFound, nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, vars, _, err := r.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRoute, route)
			if tt.wantVars != nil {
				assert.Equal(t, tt.wantVars, vars)
			}
		})
	}
}

func TestRouter_ProtectedWithoutSession(t *testing.T) {
	for _, path := range []string{"/dashboard", "/content", "/content/1", "/profile"} {
		t.Run(path, func(t *testing.T) {
			r, _, svc := newRouter(t)

			res, err := r.Navigate(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, controller.PathLogin, res.Path)
			assert.Equal(t, RouteLogin, res.Route)
			assert.Equal(t, controller.Ready, res.Outcome.State)
			assert.Equal(t, []string{path}, res.Hops)
			assert.Zero(t, svc.TotalRequests())
		})
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	r, _, svc := newRouter(t)
	ctx := context.Background()

	res, err := r.Navigate(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, RouteHome, res.Route)
	assert.IsType(t, Home{}, res.View)

	res, err = r.Navigate(ctx, "/missing")
	require.NoError(t, err)
	assert.Equal(t, RouteNotFound, res.Route)
	assert.Equal(t, NotFound{Path: "/missing"}, res.View)

	res, err = r.Navigate(ctx, "/register")
	require.NoError(t, err)
	assert.Equal(t, controller.Ready, res.Outcome.State)
	assert.Zero(t, svc.TotalRequests())
}

func TestRouter_AuthenticatedNavigation(t *testing.T) {
	r, mgr, svc := newRouter(t)
	ctx := context.Background()
	_, err := mgr.Login(ctx, "johndoe", "pw")
	require.NoError(t, err)

	res, err := r.Navigate(ctx, "/login")
	require.NoError(t, err)
	assert.Equal(t, RouteDashboard, res.Route, "signed in users skip the login form")
	assert.Equal(t, controller.Ready, res.Outcome.State)

	res, err = r.Navigate(ctx, "/content?category=guides&sort_by=likes")
	require.NoError(t, err)
	require.Equal(t, controller.Ready, res.Outcome.State)
	assert.Equal(t, "category=guides&sort_by=likes", svc.LastQuery())
	list, ok := res.View.(*controller.ContentList)
	require.True(t, ok)
	assert.Len(t, list.Items(), 2)

	res, err = r.Navigate(ctx, "/content/404")
	require.NoError(t, err)
	assert.Equal(t, RouteContent, res.Route)
	assert.Equal(t, []string{"/content/404"}, res.Hops)
}

func TestRouter_InvalidFilter(t *testing.T) {
	r, mgr, _ := newRouter(t)
	ctx := context.Background()
	_, err := mgr.Login(ctx, "johndoe", "pw")
	require.NoError(t, err)

	_, err = r.Navigate(ctx, "/content?featured=maybe")
	assert.Error(t, err)
}

func TestRouter_NavigationDeactivatesPrevious(t *testing.T) {
	r, mgr, _ := newRouter(t)
	ctx := context.Background()
	_, err := mgr.Login(ctx, "johndoe", "pw")
	require.NoError(t, err)

	_, err = r.Navigate(ctx, "/content")
	require.NoError(t, err)
	assert.Equal(t, controller.Ready, r.ContentList().State())

	_, err = r.Navigate(ctx, "/profile")
	require.NoError(t, err)
	assert.Equal(t, controller.Idle, r.ContentList().State())
	assert.Equal(t, controller.Ready, r.Profile().State())
}
