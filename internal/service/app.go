// Package service wires the gateway, reindex orchestrator and chat session into the
// single view-model that a front end drives. An App lives from mount to Close.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ragchat/internal/chat"
	"ragchat/internal/domain"
	"ragchat/internal/logging"
	"ragchat/internal/reindex"
)

// Options configures an App.
type Options struct {
	Sources   []string
	TopK      int
	Supersede bool
	Initial   domain.Configuration
	Logger    *slog.Logger
}

// App owns all mutable client state. Nothing here is package-level.
type App struct {
	backend      domain.Backend
	orchestrator *reindex.Orchestrator
	session      *chat.Session
	log          *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	selection domain.Configuration
	health    domain.HealthStatus
}

// New creates an App for backend with opts.Initial as the starting selection.
// Close must be called when the App is no longer used.
func New(backend domain.Backend, opts Options) (*App, error) {
	if err := opts.Initial.Validate(); err != nil {
		return nil, fmt.Errorf("initial selection: %w", err)
	}
	if len(opts.Sources) == 0 {
		return nil, fmt.Errorf("no source URLs configured")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		backend: backend,
		orchestrator: reindex.New(backend, reindex.Options{
			Sources:   opts.Sources,
			Supersede: opts.Supersede,
			Logger:    log.With("component", "reindex"),
		}),
		session:   chat.NewSession(backend, opts.TopK, log.With("component", "chat")),
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		selection: opts.Initial,
		health:    domain.HealthUnknown,
	}, nil
}

// Close ends the App's lifetime; in-flight calls see a cancelled context.
func (a *App) Close() { a.cancel() }

// Selection returns the current embed model, chunker and pipeline.
func (a *App) Selection() domain.Configuration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selection
}

// Select stores cfg and reports whether it differs from the previous selection.
// The caller starts a reindex when it does.
func (a *App) Select(cfg domain.Configuration) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selection == cfg {
		return false, nil
	}
	a.log.Info("selection changed", "from", a.selection.String(), "to", cfg.String())
	a.selection = cfg
	return true, nil
}

// Reindex runs one orchestration against the current selection.
func (a *App) Reindex() reindex.Report {
	return a.ReindexWith(a.Selection())
}

// ReindexWith runs one orchestration for cfg, blocking until it ends.
func (a *App) ReindexWith(cfg domain.Configuration) reindex.Report {
	return a.orchestrator.Run(a.ctx, cfg)
}

// Rebuilding is true while any reindex run is in flight.
func (a *App) Rebuilding() bool {
	return a.orchestrator.State() == reindex.Rebuilding
}

func (a *App) Sources() []string { return a.orchestrator.Sources() }

// CheckHealth polls /health once. Failures become HealthError and are logged.
func (a *App) CheckHealth() domain.HealthStatus {
	status, err := a.backend.Health(a.ctx)
	if err != nil {
		a.log.Warn("health check failed", "err", err)
		status = domain.HealthError
	}
	a.mu.Lock()
	a.health = status
	a.mu.Unlock()
	return status
}

// Health returns the result of the last CheckHealth.
func (a *App) Health() domain.HealthStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.health
}

// Ask submits query using the embed model selected at call time.
func (a *App) Ask(query string) (domain.ChatExchange, error) {
	return a.session.Submit(a.ctx, query, a.Selection().EmbedModel)
}

// Exchange is the latest chat exchange.
func (a *App) Exchange() domain.ChatExchange { return a.session.Current() }
