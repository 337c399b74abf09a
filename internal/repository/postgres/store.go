package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/revision-history-service/internal/repository"
)

// Store is the Postgres backend: every contract shares one pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps pool. Close releases it.
func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Revisions() repository.RevisionStore { return &revisionRepository{pool: s.pool} }
func (s *Store) Pages() repository.PageRepository    { return &pageRepository{pool: s.pool} }
func (s *Store) Writer() repository.RevisionWriter   { return &revisionRepository{pool: s.pool} }
func (s *Store) Tx() repository.TxManager            { return NewTxManager(s.pool) }

func (s *Store) Ping(ctx context.Context) error {
	if err := ensurePool(s.pool); err != nil {
		return err
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var _ repository.Store = (*Store)(nil)
