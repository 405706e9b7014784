// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/theoria/internal/api"
	"github.com/starford/theoria/internal/browser"
	"github.com/starford/theoria/internal/catalog"
	"github.com/starford/theoria/internal/client"
	"github.com/starford/theoria/internal/index"
	"github.com/starford/theoria/internal/markdown"
	"github.com/starford/theoria/internal/mcpserver"
	"github.com/starford/theoria/internal/metrics"
	"github.com/starford/theoria/internal/sse"
	"github.com/starford/theoria/internal/storage"
	"github.com/starford/theoria/internal/theoryservice"
	"github.com/starford/theoria/internal/web"
)

// backend bundles the content pipeline shared by the HTTP and MCP modes.
type backend struct {
	store   *storage.FS
	catalog *catalog.Catalog
	db      *index.DB
	svc     *theoryservice.Service
}

func (a *application) setup() (*Config, *slog.Logger, error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	out := a.logOut
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_path", cfg.Content.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("api_base_url", cfg.Client.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return cfg, logger, nil
}

// openBackend prepares storage, catalog and index, and runs the initial sync.
func openBackend(cfg *Config, logger *slog.Logger, opts ...theoryservice.Option) (*backend, error) {
	if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	cat, err := catalog.New(store, cfg.Content.Ignore)
	if err != nil {
		return nil, fmt.Errorf("init catalog: %w", err)
	}
	if err := cat.Rebuild(); err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, cat.Ignored, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	renderer := markdown.NewRenderer(
		markdown.WithLinks(cat),
		markdown.WithSanitize(cfg.Content.Sanitize),
	)

	return &backend{
		store:   store,
		catalog: cat,
		db:      db,
		svc:     theoryservice.NewService(store, cat, renderer, db, opts...),
	}, nil
}

// Run starts the HTTP server: content API, theory pages, events and metrics.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	m := metrics.New()

	be, err := openBackend(cfg, logger, theoryservice.WithViewCounter(m))
	if err != nil {
		return err
	}
	defer be.db.Close()

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()
	m.TrackSubscribers(broker.ClientCount)

	// The browser reads from a remote API when one is configured and from
	// the local service otherwise.
	var fetcher browser.Fetcher = theoryservice.NewFetcher(be.svc)
	webOpts := []web.Option{web.WithLogger(logger)}
	if cfg.Client.Remote() {
		fetcher = client.New(
			client.Session{BaseURL: cfg.Client.BaseURL, Token: cfg.Client.Token},
			client.WithTimeout(cfg.Client.Timeout),
		)
	} else {
		webOpts = append(webOpts, web.WithViewRecorder(be.svc))
	}
	resolver := browser.NewResolver(fetcher,
		browser.WithLogger(logger),
		browser.WithObserver(m),
	)
	pages, err := web.New(resolver, webOpts...)
	if err != nil {
		return fmt.Errorf("init web: %w", err)
	}

	apiRouter := api.NewRouter(be.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Content.Path)
	pages.Routes(apiRouter)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if be.catalog.Len() == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"empty"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/theory", http.StatusFound)
	})

	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the content directory: keep the index current, rebuild the
	// tree and notify event subscribers.
	g.Go(func() error {
		err := index.Watch(gCtx, be.db, be.store, be.catalog.Ignored, logger, func(kind, path string) {
			if err := be.catalog.Rebuild(); err != nil {
				logger.Warn("catalog rebuild failed", slog.String("error", err.Error()))
			} else {
				m.CatalogRebuilt()
			}
			broker.PublishContentEvent(kind, path)
		})
		if err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Event streams never finish on their own.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher exits with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{logOut: os.Stderr, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	cfg, logger, err := app.setup()
	if err != nil {
		return err
	}

	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer be.db.Close()

	srv := mcpserver.New(be.svc, app.version)

	logger.Info("MCP server starting on stdio")
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
