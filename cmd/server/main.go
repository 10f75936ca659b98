/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Build the structured logger
  3. Open the store (SQLite or Postgres)
  4. Seed default leave categories into an empty store
  5. Create API handler (engine + workflow) and router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port    HTTP server port (APP_PORT, default: 8080)
  -driver  sqlite | postgres (DB_DRIVER, default: sqlite)
  -db      SQLite database path (DB_PATH, default: leave.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  See config/config.go. DATABASE_URL is required for the postgres driver.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

  A listener failure (for example, port already in use) takes the same
  path: the store is closed before the process exits non-zero.

EXAMPLES:
  ./server -db="./data/leave.db"
  ./server -db=":memory:" -port=3000
  DB_DRIVER=postgres DATABASE_URL=postgres://localhost/leave ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go, store/postgres/postgres.go: Store implementations
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v3"
	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/postgres"
	"github.com/warp/leave-engine/store/sqlite"
)

// store is what the server needs from either backend.
type store interface {
	leave.Store
	Close() error
}

func main() {
	os.Exit(run())
}

// run wires the server and returns the process exit code. Deferred cleanup,
// including closing the store, happens before main exits.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Flags
	port := flag.Int("port", cfg.App.Port, "HTTP server port")
	driver := flag.String("driver", cfg.Database.Driver, "Store driver: sqlite or postgres")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	flag.Parse()

	cfg.App.Port = *port
	cfg.Database.Driver = *driver
	cfg.Database.Path = *dbPath
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx := context.Background()

	// Initialize store
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize database", slog.String("driver", cfg.Database.Driver), slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if cfg.SeedDefaults {
		seeded, err := leave.SeedDefaultCategories(ctx, st)
		if err != nil {
			logger.Warn("failed to seed default categories", slog.Any("error", err))
		} else if seeded {
			logger.Info("seeded default leave categories")
		}
	}

	// Initialize handler and router
	handler := api.NewHandler(st, logger)
	requestLevel := slog.LevelInfo
	if !cfg.IsProduction() {
		requestLevel = slog.LevelDebug
	}
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		RequestLogLevel: requestLevel,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	logger.Info("server starting",
		slog.Int("port", cfg.App.Port),
		slog.String("driver", cfg.Database.Driver),
		slog.String("env", cfg.App.Env))

	if err := serve(server, quit, 30*time.Second, logger); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		return 1
	}

	logger.Info("server stopped")
	return 0
}

// serve runs srv until it fails or a signal arrives on quit, then shuts it
// down within shutdownTimeout. A listener error is returned to the caller
// rather than ending the process.
func serve(srv *http.Server, quit <-chan os.Signal, shutdownTimeout time.Duration, logger *slog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(!cfg.IsProduction())
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "leave-engine"),
		slog.String("env", cfg.App.Env),
	)
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.Database.URL)
	default:
		return sqlite.New(cfg.Database.Path)
	}
}
