package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB is a pgx pool plus the logger used for connection and migration progress.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// Connect opens a pool and pings it, retrying every two seconds up to
// attempts times.
func Connect(ctx context.Context, dsn string, attempts int, log *zap.Logger) (*DB, error) {
	if attempts < 1 {
		attempts = 1
	}
	var pool *pgxpool.Pool
	var err error
	for i := 0; i < attempts; i++ {
		pool, err = pgxpool.New(ctx, dsn)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info("connected to postgres")
				return &DB{Pool: pool, log: log}, nil
			}
			pool.Close()
		}
		log.Warn("waiting for postgres", zap.Int("attempt", i+1), zap.Int("of", attempts), zap.Error(err))
		if i+1 < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	return nil, fmt.Errorf("postgres: failed after %d attempts: %w", attempts, err)
}

// RunMigrations applies the *.sql files of migrationFS in name order. Each
// file runs in its own transaction together with its schema_migrations row,
// so a failed file leaves no partial schema behind.
func (d *DB) RunMigrations(ctx context.Context, migrationFS fs.FS) error {
	if _, err := d.Pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := d.appliedVersions(ctx)
	if err != nil {
		return err
	}

	files, err := fs.Glob(migrationFS, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		if applied[file] {
			continue
		}
		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		err = pgx.BeginFunc(ctx, d.Pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, file)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", file, err)
		}
		d.log.Info("applied migration", zap.String("file", file))
	}
	d.log.Debug("migrations up to date", zap.Int("known", len(files)))
	return nil
}

func (d *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := d.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("load schema_migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("load schema_migrations: %w", err)
	}
	out := make(map[string]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

// Close shuts down the pool.
func (d *DB) Close() { d.Pool.Close() }
