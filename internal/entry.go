// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/hierarchy/internal/api"
	"github.com/starford/hierarchy/internal/hierarchy"
	"github.com/starford/hierarchy/internal/mcpserver"
	"github.com/starford/hierarchy/internal/service"
	"github.com/starford/hierarchy/internal/settings"
	"github.com/starford/hierarchy/internal/sse"
	"github.com/starford/hierarchy/internal/store"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// deps holds the components shared by every run mode.
type deps struct {
	db       *store.DB
	settings *settings.File
	builder  *hierarchy.Builder
}

// open opens the database, syncs the configured fixture and loads the
// settings file. The caller closes db.
func open(ctx context.Context, cfg *Config, logger *slog.Logger) (*deps, error) {
	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	if err := store.SyncFixture(ctx, db, cfg.Content.Fixture, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Settings.Path), 0o755); err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	file, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	builder := hierarchy.New(db, file,
		hierarchy.WithLogger(logger),
		hierarchy.WithDateLayout(cfg.Display.DateFormat),
	)
	return &deps{db: db, settings: file, builder: builder}, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("fixture", cfg.Content.Fixture),
		slog.String("log_level", cfg.App.LogLevel.String()))

	d, err := open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.db.Close()

	// SSE broker.
	broker := sse.NewBroker(cfg.App.HTTP.RefreshThrottle)
	defer broker.Close()

	svc := service.New(d.db, d.settings, d.builder, broker, logger)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := d.db.Option(r.Context(), store.OptionShowOnFront); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Reload settings edited outside the API and tell SSE clients.
	if cfg.Settings.Watch {
		g.Go(func() error {
			err := settings.Watch(gCtx, d.settings, logger, func() {
				broker.PublishChange(service.EventSettingsReloaded, d.settings.Path())
			})
			if err != nil {
				logger.Warn("settings watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		// Streaming SSE handlers only return once the broker closes.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
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

// errShutdown cancels the group once shutdown begins so the watcher stops.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)
	slog.SetDefault(logger)

	d, err := open(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer d.db.Close()

	svc := service.New(d.db, d.settings, d.builder, nil, logger)
	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc).ServeStdio()
}

// Import loads the YAML site snapshot at path into the database.
func Import(ctx context.Context, path string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	d, err := open(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer d.db.Close()

	svc := service.New(d.db, d.settings, d.builder, nil, logger)
	changed, err := svc.Import(ctx, data)
	if err != nil {
		return err
	}
	logger.Info("import finished", slog.String("path", path), slog.Bool("changed", changed))
	return nil
}

// Print assembles the listing and writes it as an indented table.
func Print(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, app.config.App.LogLevel)

	d, err := open(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer d.db.Close()

	nodes, err := d.builder.Assemble(ctx)
	if err != nil {
		return err
	}
	return writeListing(app.out, nodes)
}

func writeListing(out io.Writer, nodes []hierarchy.Node) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tTYPE\tAUTHOR\tCOMMENTS\tDATE")
	for _, n := range nodes {
		comments := strconv.Itoa(n.Comments)
		if n.Kind == hierarchy.KindSection {
			comments = ""
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", n.PaddedTitle(), n.Type, n.Author, comments, n.Date)
	}
	return tw.Flush()
}
