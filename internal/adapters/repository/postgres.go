package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Postgres error classes mapped to sentinels.
const (
	pgDiskFull           = "53100"
	pgInsufficientMemory = "53200"
)

// OpenPostgres connects to dsn and ensures the kv table exists.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres driver needs a dsn", ErrNotConfigured)
	}
	o := newOptions(opts...)
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	db := sql.OpenDB(connector)

	create, get, upsert, del := kvStatements(o.table, "$1", "$2", "$3")
	return newSQLStore(ctx, db, dialect{
		name:   DriverPostgres,
		create: create,
		get:    get,
		upsert: upsert,
		delete: del,
		mapErr: mapPostgresErr,
	}, o)
}

func mapPostgresErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgDiskFull, pgInsufficientMemory:
			return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}
