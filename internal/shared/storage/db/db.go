package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/kelseyhightower/envconfig"

	"docviewer-backend/internal/shared/lazy"
	"docviewer-backend/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var (
	openDB    = sql.Open
	singleton lazy.Value[*sql.DB]
)

// IsLambdaRuntime reports whether the current process is running in AWS Lambda.
func IsLambdaRuntime() bool {
	return strings.TrimSpace(os.Getenv("AWS_LAMBDA_FUNCTION_NAME")) != ""
}

// DefaultLambdaOptions returns conservative defaults for Lambda concurrency.
func DefaultLambdaOptions() Options {
	return Options{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 30 * time.Second,
		ConnMaxLifetime: 15 * time.Minute,
		PingTimeout:     3 * time.Second,
	}
}

// DefaultServerOptions returns defaults for long-running server processes.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// envOverrides mirrors Options with pointers so unset DB_* variables keep
// the defaults.
type envOverrides struct {
	MaxOpenConns    *int           `envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    *int           `envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime *time.Duration `envconfig:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime *time.Duration `envconfig:"CONN_MAX_IDLE_TIME"`
	PingTimeout     *time.Duration `envconfig:"PING_TIMEOUT"`
}

// OptionsFromEnv overrides defaults with DB_* env vars if present. A
// malformed value discards all overrides.
func OptionsFromEnv(defaults Options) Options {
	var env envOverrides
	if err := envconfig.Process("DB", &env); err != nil {
		telemetry.Warn("db.options_invalid", map[string]any{"error": err})
		return defaults
	}
	opts := defaults
	if env.MaxOpenConns != nil {
		opts.MaxOpenConns = *env.MaxOpenConns
	}
	if env.MaxIdleConns != nil {
		opts.MaxIdleConns = *env.MaxIdleConns
	}
	if env.ConnMaxLifetime != nil {
		opts.ConnMaxLifetime = *env.ConnMaxLifetime
	}
	if env.ConnMaxIdleTime != nil {
		opts.ConnMaxIdleTime = *env.ConnMaxIdleTime
	}
	if env.PingTimeout != nil {
		opts.PingTimeout = *env.PingTimeout
	}
	return opts
}

// Connect opens a *sql.DB using the provided DATABASE_URL and verifies connectivity.
// The returned *sql.DB should be shared and re-used by callers.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	applyOptions(db, opts)

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, "db.connected")
	return db, nil
}

// GetSingleton returns a process-wide *sql.DB, initializing it once per execution environment.
// If initialization fails, a later call will retry until successful.
func GetSingleton(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	db, reused, err := singleton.Get(func() (*sql.DB, error) {
		return Connect(ctx, databaseURL, opts)
	})
	if err != nil {
		return nil, err
	}
	if !reused {
		telemetry.Info("db.singleton_init", nil)
	}
	return db, nil
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(db *sql.DB, event string) {
	stats := db.Stats()
	telemetry.Info(event, map[string]any{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"wait":     stats.WaitCount,
		"max_open": stats.MaxOpenConnections,
	})
}
