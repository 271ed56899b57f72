package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/eva-app/evaclient/pkg/account"
	"github.com/eva-app/evaclient/pkg/cache"
	"github.com/eva-app/evaclient/pkg/config"
	"github.com/eva-app/evaclient/pkg/endpoint"
	"github.com/eva-app/evaclient/pkg/guard"
	"github.com/eva-app/evaclient/pkg/kvstore/sqlite"
	"github.com/eva-app/evaclient/pkg/logging"
	"github.com/eva-app/evaclient/pkg/request"
	"github.com/eva-app/evaclient/pkg/session"
	"github.com/eva-app/evaclient/pkg/tracker"
)

// app wires the client core for one command invocation.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	endpoint endpoint.Endpoint
	kv       *sqlite.Store
	cache    *cache.Manager
	session  *session.Store
	tracker  *tracker.SQLiteTracker
	orch     *request.Orchestrator
	guard    *guard.Guard
	account  *account.Service
}

func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(g.configPath); err == nil || g.configExplicit {
		cfg, err = config.Load(g.configPath)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case g.env != "":
		cfg.Environment = g.env
	case os.Getenv("EVA_ENV") != "":
		cfg.Environment = os.Getenv("EVA_ENV")
	}
	return cfg, nil
}

func openApp(g *globalFlags) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	ep, err := endpoint.New(cfg).Current()
	if err != nil {
		return nil, fmt.Errorf("resolve endpoint: %w", err)
	}

	kv, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &app{cfg: cfg, log: log, endpoint: ep, kv: kv}
	a.cache = cache.New(kv, cache.WithLogger(log))
	a.session = session.New(a.cache, session.Config{
		TokenKey:    cfg.Session.TokenKey,
		IdentityKey: cfg.Session.IdentityKey,
		TokenTTL:    cfg.Session.TokenTTL,
	}, log)
	a.session.Restore()

	opts := []request.Option{request.WithLogger(log)}
	if cfg.Tracker.Enabled {
		a.tracker, err = tracker.New(cfg.DBPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init tracker: %w", err)
		}
		if cfg.Tracker.Retention > 0 {
			cutoff := time.Now().UTC().Add(-cfg.Tracker.Retention)
			if n, err := a.tracker.Prune(context.Background(), cutoff); err != nil {
				log.Warn("prune dispatch history", zap.Error(err))
			} else if n > 0 {
				log.Debug("pruned dispatch history", zap.Int64("records", n))
			}
		}
		opts = append(opts, request.WithRecorder(a.tracker))
	}

	ui := newTerminalUI(os.Stderr, log)
	a.orch = request.New(request.Config{
		BaseURL:       ep.BaseURL,
		SuccessCode:   cfg.Request.SuccessCode,
		LoginRoute:    cfg.Request.LoginRoute,
		RedirectDelay: cfg.Request.RedirectDelay,
		Timeout:       cfg.Request.Timeout,
		RateLimit:     cfg.Request.RateLimit,
		Burst:         cfg.Request.Burst,
	}, a.session, ui, opts...)

	a.guard = guard.New(cfg.Guard, cfg.Request.LoginRoute, a.session)
	a.account = account.New(a.orch, a.session, ui, log)

	log.Debug("client ready",
		zap.String("environment", ep.Env),
		zap.String("base_url", ep.BaseURL),
		zap.String("session", string(a.session.State())))
	return a, nil
}

// Close releases storage handles.
func (a *app) Close() {
	if a.tracker != nil {
		_ = a.tracker.Close()
	}
	if a.kv != nil {
		_ = a.kv.Close()
	}
	_ = a.log.Sync()
}
