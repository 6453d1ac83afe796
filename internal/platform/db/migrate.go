package db

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/errors"
)

//go:embed migrations
var migrations embed.FS

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())"); err != nil {
		return errors.Trace(err)
	}
	files, err := migrationFiles("migrations/postgres")
	if err != nil {
		return err
	}
	for _, file := range files {
		version := strings.TrimSuffix(path.Base(file), ".sql")
		var count int
		if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = $1", version).Scan(&count); err != nil {
			return errors.Trace(err)
		}
		if count > 0 {
			continue
		}
		sqlBytes, err := migrations.ReadFile(file)
		if err != nil {
			return errors.Trace(err)
		}

		tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return errors.Trace(err)
		}
		if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback(ctx)
			return errors.Annotatef(err, "migration %s failed", version)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			_ = tx.Rollback(ctx)
			return errors.Trace(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func MigrateSQLite(ctx context.Context, handle *sql.DB) error {
	if _, err := handle.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TEXT NOT NULL)"); err != nil {
		return errors.Trace(err)
	}
	files, err := migrationFiles("migrations/sqlite")
	if err != nil {
		return err
	}
	for _, file := range files {
		version := strings.TrimSuffix(path.Base(file), ".sql")
		var count int
		if err := handle.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", version).Scan(&count); err != nil {
			return errors.Trace(err)
		}
		if count > 0 {
			continue
		}
		sqlBytes, err := migrations.ReadFile(file)
		if err != nil {
			return errors.Trace(err)
		}

		tx, err := handle.BeginTx(ctx, nil)
		if err != nil {
			return errors.Trace(err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return errors.Annotatef(err, "migration %s failed", version)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", version, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return errors.Trace(err)
		}
		if err := tx.Commit(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(migrations, dir)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, path.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}
