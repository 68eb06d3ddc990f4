package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"internship-portal/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = sql.Open

// DefaultServerOptions returns defaults for the API process.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultWorkerOptions sizes the pool for a worker running `concurrency` pipelines.
// Each pipeline holds at most one connection at a time, plus one for the sweeper.
func DefaultWorkerOptions(concurrency int) Options {
	if concurrency < 1 {
		concurrency = 1
	}
	return Options{
		MaxOpenConns:    concurrency + 1,
		MaxIdleConns:    concurrency,
		ConnMaxIdleTime: 5 * time.Minute,
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

// envOverrides maps DB_* variables onto Options fields.
var envOverrides = []struct {
	key   string
	apply func(*Options, string) error
}{
	{"DB_MAX_OPEN_CONNS", func(o *Options, v string) error { return setInt(&o.MaxOpenConns, v) }},
	{"DB_MAX_IDLE_CONNS", func(o *Options, v string) error { return setInt(&o.MaxIdleConns, v) }},
	{"DB_CONN_MAX_LIFETIME", func(o *Options, v string) error { return setDuration(&o.ConnMaxLifetime, v) }},
	{"DB_CONN_MAX_IDLE_TIME", func(o *Options, v string) error { return setDuration(&o.ConnMaxIdleTime, v) }},
	{"DB_PING_TIMEOUT", func(o *Options, v string) error { return setDuration(&o.PingTimeout, v) }},
}

// OptionsFromEnv overrides defaults with DB_* env vars if present.
// Malformed values are logged and ignored.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	for _, o := range envOverrides {
		raw := strings.TrimSpace(os.Getenv(o.key))
		if raw == "" {
			continue
		}
		if err := o.apply(&opts, raw); err != nil {
			telemetry.Warn("db.env_invalid", map[string]any{"key": o.key, "value": raw, "error": err.Error()})
		}
	}
	return opts
}

// Connect opens a pool for databaseURL and verifies connectivity.
// The returned *sql.DB is shared by the whole process.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	pool, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	opts = withDefaults(opts)
	pool.SetMaxOpenConns(opts.MaxOpenConns)
	pool.SetMaxIdleConns(opts.MaxIdleConns)
	pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	telemetry.Info("db.connected", map[string]any{
		"max_open":      opts.MaxOpenConns,
		"max_idle":      opts.MaxIdleConns,
		"conn_lifetime": opts.ConnMaxLifetime.String(),
	})
	return pool, nil
}

func withDefaults(opts Options) Options {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.MaxIdleConns > opts.MaxOpenConns {
		opts.MaxIdleConns = opts.MaxOpenConns
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}
	return opts
}

func setInt(dst *int, raw string) error {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("must not be negative")
	}
	*dst = v
	return nil
}

func setDuration(dst *time.Duration, raw string) error {
	v, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
