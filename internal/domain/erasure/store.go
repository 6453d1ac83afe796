package erasure

import (
	"context"

	"github.com/LouziusMedia/LoeschMich/internal/platform/querier"
)

// Store is the Postgres gateway.
type Store struct {
	DB     querier.Querier
	Sealer Sealer
}

func NewStore(db querier.Querier, sealer Sealer) *Store {
	return &Store{DB: db, Sealer: sealer}
}

func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.DB.QueryRow(ctx, "SELECT 1").Scan(&one)
}

var _ StoreAPI = (*Store)(nil)
