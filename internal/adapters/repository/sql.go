package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// dialect carries the statements that differ between SQL drivers.
type dialect struct {
	name   string
	create string
	get    string
	upsert string
	delete string
	// mapErr translates driver specific errors into package sentinels.
	mapErr func(error) error
}

// sqlStore is the shared database/sql implementation of Store.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, o *options) (*sqlStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", d.name, err)
	}
	if _, err := db.ExecContext(ctx, d.create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create %s table: %w", d.name, err)
	}
	return &sqlStore{db: db, dialect: d, now: o.now}, nil
}

func (s *sqlStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, ErrNotConfigured
	}
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, s.dialect.mapErr(err))
	}
	return value, true, nil
}

func (s *sqlStore) Set(ctx context.Context, key, value string) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	if err := checkKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value, s.now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("set %s: %w", key, s.dialect.mapErr(err))
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.delete, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, s.dialect.mapErr(err))
	}
	return nil
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// kvStatements renders the statements for table with the given placeholders.
func kvStatements(table, p1, p2, p3 string) (create, get, upsert, del string) {
	create = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	"key" TEXT PRIMARY KEY,
	"value" TEXT NOT NULL,
	"updated_at" BIGINT NOT NULL
)`, table)
	get = fmt.Sprintf(`SELECT "value" FROM %q WHERE "key" = %s`, table, p1)
	upsert = fmt.Sprintf(`INSERT INTO %q ("key", "value", "updated_at") VALUES (%s, %s, %s)
ON CONFLICT ("key") DO UPDATE SET "value" = excluded."value", "updated_at" = excluded."updated_at"`, table, p1, p2, p3)
	del = fmt.Sprintf(`DELETE FROM %q WHERE "key" = %s`, table, p1)
	return create, get, upsert, del
}
