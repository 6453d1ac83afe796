// Package litestore is the SQLite persistence gateway used for local,
// single-operator installs.
package litestore

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

// timeLayout sorts lexically in time order, which due-task selection relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	DB     *sql.DB
	Sealer erasure.Sealer
}

func New(db *sql.DB, sealer erasure.Sealer) *Store {
	return &Store{DB: db, Sealer: sealer}
}

var _ erasure.StoreAPI = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	return t, errors.Annotatef(err, "parsing stored time %q", raw)
}

func decodeNullTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid {
		return nil, nil
	}
	t, err := decodeTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(raw sql.NullString) *string {
	if !raw.Valid {
		return nil
	}
	v := raw.String
	return &v
}

func affected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if n == 0 {
		return errors.NotFoundf("%s %d", what, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}
