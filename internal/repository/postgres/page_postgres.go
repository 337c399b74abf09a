package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/repository"
)

type pageRepository struct{ pool *pgxpool.Pool }

func NewPageRepository(pool *pgxpool.Pool) repository.PageRepository {
	return &pageRepository{pool: pool}
}

func (r *pageRepository) Create(ctx context.Context, p model.Page) (model.Page, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Page{}, err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`INSERT INTO pages (title) VALUES ($1)
		 RETURNING id, title, latest_rev_id, created_at, updated_at`,
		strings.TrimSpace(p.Title),
	)
	out, err := scanPage(row)
	if err != nil {
		return model.Page{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *pageRepository) GetByID(ctx context.Context, id int64) (model.Page, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Page{}, err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`SELECT id, title, latest_rev_id, created_at, updated_at FROM pages WHERE id = $1`, id,
	)
	out, err := scanPage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Page{}, repository.ErrNotFound
		}
		return model.Page{}, repository.MapPgError(err)
	}
	return out, nil
}

func scanPage(row pgx.Row) (model.Page, error) {
	var p model.Page
	if err := row.Scan(&p.ID, &p.Title, &p.LatestRevID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Page{}, err
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return p, nil
}
