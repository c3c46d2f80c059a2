package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/emperorhan/oilube/internal/metrics"
)

// DefaultQueryTimeout bounds single-row reads and writes.
const DefaultQueryTimeout = 30 * time.Second

// BatchCommitTimeout bounds one indexer batch transaction.
const BatchCommitTimeout = 5 * time.Minute

const maxStatementTimeoutMS = 3_600_000

//go:embed migrations/*.up.sql
var bundledMigrations embed.FS

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}

// DB is the snapshot store's connection pool.
type DB struct {
	*sql.DB
	logger *slog.Logger
}

type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// StatementTimeoutMS is set server-side on every pooled connection.
	// Zero leaves the server default in place.
	StatementTimeoutMS int
	Logger             *slog.Logger
}

// New opens the pool and pings it once.
func New(cfg Config) (*DB, error) {
	if cfg.StatementTimeoutMS < 0 || cfg.StatementTimeoutMS > maxStatementTimeoutMS {
		return nil, fmt.Errorf("statement timeout %dms out of allowed range [0, %d]", cfg.StatementTimeoutMS, maxStatementTimeoutMS)
	}
	dsn, err := withStatementTimeout(cfg.URL, cfg.StatementTimeoutMS)
	if err != nil {
		return nil, err
	}

	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	idle := cfg.ConnMaxIdleTime
	if idle <= 0 {
		idle = 2 * time.Minute
	}
	pool.SetConnMaxIdleTime(idle)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{DB: pool, logger: logger.With("component", "snapshot_store")}, nil
}

// withStatementTimeout adds statement_timeout to the startup options so the
// limit covers every connection the pool opens.
func withStatementTimeout(dsn string, timeoutMS int) (string, error) {
	if timeoutMS == 0 {
		return dsn, nil
	}
	opt := "-c statement_timeout=" + strconv.Itoa(timeoutMS)
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		// key=value DSN
		return dsn + " options='" + opt + "'", nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse db url: %w", err)
	}
	q := u.Query()
	if existing := q.Get("options"); existing != "" {
		opt = existing + " " + opt
	}
	q.Set("options", opt)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ReportPoolStats publishes connection pool gauges.
func (db *DB) ReportPoolStats() {
	s := db.Stats()
	metrics.DBPoolOpen.Set(float64(s.OpenConnections))
	metrics.DBPoolInUse.Set(float64(s.InUse))
	metrics.DBPoolIdle.Set(float64(s.Idle))
}

// RunPoolReporter publishes pool gauges every interval until ctx is done.
func (db *DB) RunPoolReporter(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		db.ReportPoolStats()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// RunMigrations applies pending *.up.sql files in name order. An empty dir
// uses the migrations compiled into the binary.
func (db *DB) RunMigrations(dir string) error {
	var src fs.FS
	if dir == "" {
		sub, err := fs.Sub(bundledMigrations, "migrations")
		if err != nil {
			return fmt.Errorf("open bundled migrations: %w", err)
		}
		src = sub
	} else {
		src = os.DirFS(dir)
	}
	return db.migrate(context.Background(), src)
}

func (db *DB) migrate(ctx context.Context, src fs.FS) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS oilube_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create oilube_migrations: %w", err)
	}

	names, err := fs.Glob(src, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations found")
	}
	sort.Strings(names)

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if applied[name] {
			continue
		}
		body, err := fs.ReadFile(src, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		start := time.Now()
		if err := db.applyMigration(ctx, name, string(body)); err != nil {
			return err
		}
		db.logger.Info("migration applied", "version", name, "elapsed", time.Since(start).String())
	}
	return nil
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM oilube_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		out[v] = true
	}
	return out, rows.Err()
}

// applyMigration runs one file and records it in the same transaction, so a
// failed migration leaves no trace.
func (db *DB) applyMigration(ctx context.Context, name, body string) error {
	ctx, cancel := withTimeout(ctx, BatchCommitTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SET LOCAL lock_timeout = '10s'`); err != nil {
		return fmt.Errorf("set lock_timeout for %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, body); err != nil {
		return fmt.Errorf("exec migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO oilube_migrations (version) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}
