package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robertmeta/portal-cli/config"
	"github.com/robertmeta/portal-cli/controller"
	"github.com/robertmeta/portal-cli/gateway"
	"github.com/robertmeta/portal-cli/logger"
	"github.com/robertmeta/portal-cli/router"
	"github.com/robertmeta/portal-cli/session"
	"github.com/robertmeta/portal-cli/store"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// env is everything a command needs, built from flags and config.
type env struct {
	cfg     config.Config
	store   *store.Store
	session *session.Manager
	users   *gateway.UserService
	data    *gateway.DataService
	log     zerolog.Logger
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}

	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("user-service") {
		cfg.UserServiceURL = c.String("user-service")
	}
	if c.IsSet("data-service") {
		cfg.DataServiceURL = c.String("data-service")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	return cfg, cfg.Validate()
}

func openEnv(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), ExitUsageError)
	}

	logger.Initialize(cfg.LogLevel)
	log := *logger.Get()

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, cli.Exit(fmt.Sprintf("failed to create database directory: %v", err), ExitDataError)
		}
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("failed to open database: %v", err), ExitDataError)
	}

	users := gateway.NewUserService(cfg.UserServiceURL, gateway.Options{Logger: &log})
	mgr := session.New(st, users, log)
	if err := mgr.Restore(); err != nil {
		st.Close()
		return nil, cli.Exit(fmt.Sprintf("failed to restore session: %v", err), ExitDataError)
	}

	return &env{
		cfg:     cfg,
		store:   st,
		session: mgr,
		users:   users,
		data:    gateway.NewDataService(cfg.DataServiceURL, gateway.Options{Tokens: mgr, Logger: &log}),
		log:     log,
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn().Err(err).Msg("failed to close database")
	}
}

func (e *env) deps() controller.Deps {
	return controller.Deps{
		Session: e.session,
		Data:    e.data,
		Users:   e.users,
		Logger:  e.log,
	}
}

func (e *env) router() *router.Router {
	return router.New(e.deps())
}

// requireSession fails fast, before any request, when nobody is logged in.
func (e *env) requireSession() error {
	if !e.session.IsAuthenticated() {
		return cli.Exit("not logged in, run: portal-cli login", ExitNotAuthenticated)
	}
	return nil
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// exitCode classifies err for the process exit status.
func exitCode(err error) int {
	var re *gateway.RemoteError
	switch {
	case errors.Is(err, gateway.ErrUnauthorized),
		errors.Is(err, router.ErrNotAuthenticated),
		errors.Is(err, session.ErrNoSession):
		return ExitNotAuthenticated
	case errors.As(err, &re):
		return ExitDataError
	default:
		return ExitGeneralError
	}
}

// finish turns a controller outcome into command output. Ready outcomes
// print data; anything else becomes an error exit carrying the notices.
func finish(out controller.Outcome, data interface{}) error {
	switch {
	case out.State == controller.Redirected && out.Redirect == controller.PathLogin:
		msg := "not logged in, run: portal-cli login"
		if len(out.Notices) > 0 {
			msg = out.Notices[len(out.Notices)-1].Message
		}
		return cli.Exit(msg, ExitNotAuthenticated)
	case out.Err != nil:
		msg := out.Err.Error()
		if len(out.Notices) > 0 {
			msg = out.Notices[len(out.Notices)-1].Message
		}
		code := exitCode(out.Err)
		if code == ExitGeneralError {
			code = ExitUsageError
		}
		return cli.Exit(msg, code)
	case out.State == controller.Failed:
		return cli.Exit("request failed", ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"state":   out.State,
		"notices": out.Notices,
		"data":    data,
	})
}
