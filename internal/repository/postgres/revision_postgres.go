package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/revision-history-service/internal/model"
	"github.com/maxviazov/revision-history-service/internal/repository"
)

const revisionColumns = `r.id, r.page_id, p.title, r.parent_id, r.ts, r.user_id, r.user_text, r.comment,
	r.size, r.sha1, r.minor, r.content_model, r.deleted, r.tags`

type revisionRepository struct{ pool *pgxpool.Pool }

// where accumulates predicates and their positional arguments.
type where struct {
	conds []string
	args  []any
}

// arg binds v and returns its placeholder.
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *where) and(cond string) { w.conds = append(w.conds, cond) }

func (w *where) String() string { return strings.Join(w.conds, " AND ") }

func (r *revisionRepository) FetchOrdered(ctx context.Context, f repository.OrderedFilter) ([]model.Revision, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	var w where
	w.and("r.page_id = " + w.arg(f.PageID))
	lo, hi := f.Bounds()
	if lo != nil {
		w.and("r.id >= " + w.arg(*lo))
	}
	if hi != nil {
		w.and("r.id <= " + w.arg(*hi))
	}
	tlo, thi := f.TimeBounds()
	if tlo != nil {
		w.and("r.ts >= " + w.arg(*tlo))
	}
	if thi != nil {
		w.and("r.ts <= " + w.arg(*thi))
	}
	if f.User != "" {
		w.and("r.user_text = " + w.arg(f.User))
	}
	if f.ExcludeUser != "" {
		w.and("r.user_text <> " + w.arg(f.ExcludeUser))
	}
	if f.HiddenMask != 0 {
		m := w.arg(f.HiddenMask)
		w.and(fmt.Sprintf("(r.deleted::int & %s::int) <> %s::int", m, m))
	}
	if f.Tag != "" {
		w.and(w.arg(f.Tag) + " = ANY(r.tags)")
	}

	order := "DESC"
	if f.Dir == model.DirNewer {
		order = "ASC"
	}
	orderBy := fmt.Sprintf("r.id %s", order)
	if f.Sort == repository.SortByTimestamp {
		orderBy = fmt.Sprintf("r.ts %s, r.id %s", order, order)
	}

	sql := `SELECT ` + revisionColumns + `
		FROM revisions r JOIN pages p ON p.id = r.page_id
		WHERE ` + w.String() + `
		ORDER BY ` + orderBy
	if f.Limit > 0 {
		sql += " LIMIT " + w.arg(f.Limit)
	}
	return r.query(ctx, sql, w.args...)
}

func (r *revisionRepository) FetchByIDs(ctx context.Context, ids []int64, f repository.IDFilter) ([]model.Revision, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	var w where
	w.and("r.id = ANY(" + w.arg(ids) + ")")
	if f.AfterID > 0 {
		w.and("r.id > " + w.arg(f.AfterID))
	}
	if f.Tag != "" {
		w.and(w.arg(f.Tag) + " = ANY(r.tags)")
	}
	return r.query(ctx, `SELECT `+revisionColumns+`
		FROM revisions r JOIN pages p ON p.id = r.page_id
		WHERE `+w.String()+`
		ORDER BY r.id`, w.args...)
}

func (r *revisionRepository) FetchLatest(ctx context.Context, pageIDs []int64, after *repository.PageCursor, tag string) ([]model.Revision, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	var w where
	w.and("p.id = ANY(" + w.arg(pageIDs) + ")")
	if after != nil {
		pid, rid := w.arg(after.PageID), w.arg(after.RevID)
		w.and(fmt.Sprintf("(p.id > %s OR (p.id = %s AND r.id > %s))", pid, pid, rid))
	}
	if tag != "" {
		w.and(w.arg(tag) + " = ANY(r.tags)")
	}
	return r.query(ctx, `SELECT `+revisionColumns+`
		FROM pages p JOIN revisions r ON r.id = p.latest_rev_id
		WHERE `+w.String()+`
		ORDER BY p.id, r.id`, w.args...)
}

// Append inserts rev as the page's newest revision. It joins a transaction
// carried by ctx or opens its own, locking the page row so concurrent
// appends chain their parent ids.
func (r *revisionRepository) Append(ctx context.Context, rev model.Revision) (model.Revision, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Revision{}, err
	}
	var out model.Revision
	err := NewTxManager(r.pool).WithinTx(ctx, func(ctx context.Context) error {
		exec := getQ(ctx, r.pool)
		var title string
		var parent int64
		err := exec.QueryRow(ctx, `SELECT title, latest_rev_id FROM pages WHERE id = $1 FOR UPDATE`, rev.PageID).
			Scan(&title, &parent)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}

		tags := rev.Tags
		if tags == nil {
			tags = []string{}
		}
		row := exec.QueryRow(ctx,
			`INSERT INTO revisions (page_id, parent_id, ts, user_id, user_text, comment, size, sha1, minor, content_model, deleted, tags)
			 VALUES ($1, $2, COALESCE($3::timestamptz, now()), $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 RETURNING id, ts`,
			rev.PageID, parent, nullTime(rev), rev.UserID, rev.UserText, rev.Comment,
			rev.Size, rev.SHA1, rev.Minor, rev.ContentModel, rev.Deleted, tags,
		)
		out = rev
		out.ParentID, out.PageTitle, out.Tags = parent, title, tags
		if err := row.Scan(&out.ID, &out.Timestamp); err != nil {
			return err
		}
		out.Timestamp = out.Timestamp.UTC()

		_, err = exec.Exec(ctx, `UPDATE pages SET latest_rev_id = $1, updated_at = now() WHERE id = $2`, out.ID, rev.PageID)
		return err
	})
	if err != nil {
		return model.Revision{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *revisionRepository) query(ctx context.Context, sql string, args ...any) ([]model.Revision, error) {
	exec := getQ(ctx, r.pool)
	rows, err := exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()

	var out []model.Revision
	for rows.Next() {
		var it model.Revision
		if err := rows.Scan(&it.ID, &it.PageID, &it.PageTitle, &it.ParentID, &it.Timestamp, &it.UserID, &it.UserText,
			&it.Comment, &it.Size, &it.SHA1, &it.Minor, &it.ContentModel, &it.Deleted, &it.Tags); err != nil {
			return nil, repository.MapPgError(err)
		}
		it.Timestamp = it.Timestamp.UTC()
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

func nullTime(r model.Revision) any {
	if r.Timestamp.IsZero() {
		return nil
	}
	return r.Timestamp
}

var (
	_ repository.RevisionStore  = (*revisionRepository)(nil)
	_ repository.RevisionWriter = (*revisionRepository)(nil)
)
