package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/fomo-labs/docproof/internal/common"
)

// DB wraps the sql pool with the driver name so repositories can rebind
// placeholders for postgres. SQL in this package is written with "?" and
// rewritten on the fly.
type DB struct {
	*sql.DB
	driver string
	log    *slog.Logger
}

// Open connects per the configured driver: "sqlite" uses the embedded pure-Go
// engine, "postgres" the pgx stdlib driver. The pool is pinged before use so
// misconfiguration surfaces at startup, not on the first query.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var driverName string
	switch cfg.Driver {
	case "sqlite":
		driverName = "sqlite"
	case "postgres":
		driverName = "pgx"
	default:
		return nil, common.NewAppError("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.Driver), common.ErrInvalidInput)
	}

	pool, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, common.WrapError(err, "open database")
	}
	pool.SetMaxOpenConns(cfg.MaxConns)
	pool.SetConnMaxLifetime(cfg.MaxConnLifetime)
	pool.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	if cfg.Driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY under concurrent put/insert
		pool.SetMaxOpenConns(1)
	}

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := pool.PingContext(pingCtx); err != nil {
		pool.Close()
		return nil, common.WrapError(err, "ping database")
	}

	logger.Info("db.open", "driver", cfg.Driver)
	return &DB{DB: pool, driver: cfg.Driver, log: logger}, nil
}

// Health reports whether the database answers.
func (d *DB) Health(ctx context.Context) error {
	return d.PingContext(ctx)
}

// rebind rewrites "?" placeholders to "$1..$n" for postgres. SQLite accepts
// "?" natively.
func (d *DB) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
