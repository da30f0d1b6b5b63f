/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the kiosk ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Build the zap logger
  3. Open the SQLite store with the chosen driver
  4. Create the ledger engine, optionally seed an empty ledger
  5. Start the low-balance monitor
  6. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS (env fallback in brackets):
  -port                  HTTP server port [PORT] (default: 8080)
  -db                    SQLite database path [DB_PATH] (default: kasledger.db)
                         Use ":memory:" for in-memory database
  -driver                sqlite3 (cgo) or sqlite (pure Go) [DB_DRIVER]
  -seed                  JSON seed applied when the ledger is empty [SEED_FILE]
  -timeout               Per-operation persistence timeout [LEDGER_TIMEOUT]
  -low-balance-interval  Monitor interval, 0 disables [LOW_BALANCE_INTERVAL]

  ENV=development switches to a human-readable debug logger.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the monitor and close the database
  4. Exit

EXAMPLES:
  # Run with the default kiosk seed on a fresh database
  ./server -db="./data/kiosk.db" -seed=./seed.json

  # Pure-Go driver, in-memory database
  ./server -driver=sqlite -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - factory/seed.go: Seed format
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agenlink/kasledger/api"
	"github.com/agenlink/kasledger/factory"
	"github.com/agenlink/kasledger/ledger"
	"github.com/agenlink/kasledger/store/sqlite"
)

type config struct {
	port               int
	dbPath             string
	driver             string
	seedFile           string
	timeout            time.Duration
	lowBalanceInterval time.Duration
	development        bool
}

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func parseConfig(args []string) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	port, err := envInt("PORT", 8080)
	if err != nil {
		return cfg, err
	}
	timeout, err := envDuration("LEDGER_TIMEOUT", ledger.DefaultTimeout)
	if err != nil {
		return cfg, err
	}
	interval, err := envDuration("LOW_BALANCE_INTERVAL", 5*time.Minute)
	if err != nil {
		return cfg, err
	}

	fs.IntVar(&cfg.port, "port", port, "HTTP server port")
	fs.StringVar(&cfg.dbPath, "db", envString("DB_PATH", "kasledger.db"), "SQLite database path")
	fs.StringVar(&cfg.driver, "driver", envString("DB_DRIVER", sqlite.DriverCGO), "SQLite driver: sqlite3 (cgo) or sqlite (pure Go)")
	fs.StringVar(&cfg.seedFile, "seed", envString("SEED_FILE", ""), "JSON seed applied when the ledger is empty")
	fs.DurationVar(&cfg.timeout, "timeout", timeout, "Per-operation persistence timeout")
	fs.DurationVar(&cfg.lowBalanceInterval, "low-balance-interval", interval, "Low-balance check interval, 0 disables")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.development = envString("ENV", "") == "development"
	return cfg, nil
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config, logger *zap.Logger) error {
	// Initialize store
	store, err := sqlite.Open(cfg.driver, cfg.dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	engine := ledger.NewEngine(store,
		ledger.WithTimeout(cfg.timeout),
		ledger.WithLogger(logger.Named("ledger")))

	if cfg.seedFile != "" {
		if err := seedIfEmpty(context.Background(), engine, cfg.seedFile, logger); err != nil {
			return err
		}
	}

	monitor := api.NewLowBalanceMonitor(engine, logger)
	monitor.CheckInterval = cfg.lowBalanceInterval
	monitor.Enabled = cfg.lowBalanceInterval > 0
	monitor.Start()
	defer monitor.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.port),
		Handler:      api.NewRouter(api.NewHandler(engine, logger.Named("http"))),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.port),
			zap.String("driver", cfg.driver),
			zap.String("db", cfg.dbPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// seedIfEmpty applies the seed file only to a ledger with no accounts, so a
// restart never duplicates the opening position.
func seedIfEmpty(ctx context.Context, engine *ledger.Engine, path string, logger *zap.Logger) error {
	accounts, err := engine.ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) > 0 {
		logger.Info("ledger not empty, seed skipped", zap.String("seed", path))
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	seed, err := factory.ParseSeed(data)
	if err != nil {
		return err
	}
	ids, err := factory.ApplySeed(ctx, engine, seed)
	if err != nil {
		return err
	}
	logger.Info("ledger seeded", zap.String("seed", path), zap.Int("accounts", len(ids)))
	return nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := envString(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := envString(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
