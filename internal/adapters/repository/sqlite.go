package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// OpenSQLite opens (or creates) a SQLite database file holding the kv table.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite driver needs a database path", ErrNotConfigured)
	}
	o := newOptions(opts...)
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)

	create, get, upsert, del := kvStatements(o.table, "?", "?", "?")
	return newSQLStore(ctx, db, dialect{
		name:   DriverSQLite,
		create: create,
		get:    get,
		upsert: upsert,
		delete: del,
		mapErr: mapSQLiteErr,
	}, o)
}

func mapSQLiteErr(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_FULL:
			return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		case sqlite3lib.SQLITE_MISUSE:
			return fmt.Errorf("%w: %w", ErrClosed, err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}
