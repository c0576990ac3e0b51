// ABOUTME: Gateway orchestrator wiring store, planner, ledger and HTTP server.
// ABOUTME: Manages startup, route registration and graceful shutdown.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/hireloop/hireloop-gateway/internal/auth"
	"github.com/hireloop/hireloop-gateway/internal/builtins"
	"github.com/hireloop/hireloop-gateway/internal/config"
	"github.com/hireloop/hireloop-gateway/internal/dedupe"
	"github.com/hireloop/hireloop-gateway/internal/format"
	"github.com/hireloop/hireloop-gateway/internal/planner"
	"github.com/hireloop/hireloop-gateway/internal/runtime"
	"github.com/hireloop/hireloop-gateway/internal/store"
	"github.com/hireloop/hireloop-gateway/internal/tool"
)

// dedupeTTL and dedupeSize bound the idempotency cache.
const (
	dedupeTTL  = 10 * time.Minute
	dedupeSize = 10000
)

// Gateway orchestrates the hireloop-gateway server components.
type Gateway struct {
	config     *config.Config
	store      store.Store
	httpServer *http.Server
	dedupe     *dedupe.Cache
	logger     *slog.Logger
}

// Option overrides a default dependency, mostly for tests.
type Option func(*deps)

type deps struct {
	runtime   runtime.Runtime
	directory builtins.Directory
}

// WithRuntime replaces the OpenAI runtime.
func WithRuntime(rt runtime.Runtime) Option {
	return func(d *deps) { d.runtime = rt }
}

// WithDirectory replaces the in-memory HR directory.
func WithDirectory(dir builtins.Directory) Option {
	return func(d *deps) { d.directory = dir }
}

// New creates a Gateway from configuration, wiring the whole
// orchestration core together.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	d := &deps{}
	for _, opt := range opts {
		opt(d)
	}
	if d.runtime == nil {
		d.runtime = runtime.NewOpenAIRuntime(cfg.Model.BaseURL, cfg.Model.APIKey, cfg.Model.Name, logger)
	}
	if d.directory == nil {
		d.directory = builtins.NewMemoryDirectory()
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	registry := tool.NewRegistry()
	if err := registry.RegisterAll(builtins.HRPack(d.directory)); err != nil {
		st.Close()
		return nil, fmt.Errorf("registering tools: %w", err)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	resolver := auth.NewResolver(verifier, st)

	engine := planner.New(d.runtime, st, st, registry, planner.Config{
		MaxSteps:      cfg.Planner.MaxSteps,
		MaxRetries:    cfg.Planner.MaxRetries,
		ContextWindow: cfg.Planner.ContextWindow,
	}, logger)

	formatter := format.NewModelFormatter(d.runtime, format.Config{
		MaxSteps:   cfg.Formatter.MaxSteps,
		MaxRetries: cfg.Formatter.MaxRetries,
	}, logger)

	handler := NewHandler(resolver, engine, st, st, formatter, format.Cards{}, cfg.Stream.FlushDelay, logger)

	dedupeCache := dedupe.New(dedupeTTL, dedupeSize)
	api := NewAPI(handler, st, st, verifier, dedupeCache, cfg.Stream.Buffer, logger)

	mux := http.NewServeMux()
	api.Register(mux)

	return &Gateway{
		config: cfg,
		store:  st,
		httpServer: &http.Server{
			Addr:    cfg.Server.HTTPAddr,
			Handler: mux,
		},
		dedupe: dedupeCache,
		logger: logger.With("component", "gateway"),
	}, nil
}

// Store exposes the persistence layer for CLI commands (bootstrap).
func (g *Gateway) Store() store.Store { return g.store }

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}

	g.logger.Info("gateway listening", "addr", g.config.Server.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("shutting down gateway")
	case serverErr = <-errCh:
		g.logger.Error("http server failed", "error", serverErr)
	}

	shutdownErr := g.shutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// shutdown stops the server with a fresh context: the run context is
// already cancelled by the time we get here.
func (g *Gateway) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := g.httpServer.Shutdown(ctx)
	g.dedupe.Close()
	if closeErr := g.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
