package notices

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-id/akademi/internal/shared"
)

// Repository persists notices.
type Repository interface {
	ListPublished(ctx context.Context, limit int) ([]Notice, error)
	GetBySlug(ctx context.Context, slug string) (Notice, error)
	List(ctx context.Context, limit, offset int) ([]Notice, int, error)
	Get(ctx context.Context, id int64) (Notice, error)
	Create(ctx context.Context, n Notice) (int64, error)
	Update(ctx context.Context, id int64, n Notice) error
	Delete(ctx context.Context, id int64) error
	Toggle(ctx context.Context, id int64, column string) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectNotice = `SELECT id, slug, title, body, pinned, published, created_at, updated_at FROM notices`

func (r *repository) ListPublished(ctx context.Context, limit int) ([]Notice, error) {
	rows, err := r.pool.Query(ctx, selectNotice+` WHERE published ORDER BY pinned DESC, created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanNotices(rows)
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (Notice, error) {
	return r.one(ctx, selectNotice+` WHERE slug = $1 AND published`, slug)
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Notice, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notices`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, selectNotice+` ORDER BY pinned DESC, updated_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := scanNotices(rows)
	return items, total, err
}

func (r *repository) Get(ctx context.Context, id int64) (Notice, error) {
	return r.one(ctx, selectNotice+` WHERE id = $1`, id)
}

func (r *repository) Create(ctx context.Context, n Notice) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO notices (slug, title, body, pinned, published) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		n.Slug, n.Title, n.Body, n.Pinned, n.Published).Scan(&id)
	if err != nil {
		return 0, shared.MapPgError(err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, n Notice) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notices SET slug = $2, title = $3, body = $4, pinned = $5, published = $6, updated_at = NOW() WHERE id = $1`,
		id, n.Slug, n.Title, n.Body, n.Pinned, n.Published)
	if err != nil {
		return shared.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return shared.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Toggle flips a boolean column. column is one of the constants below, never
// user input.
func (r *repository) Toggle(ctx context.Context, id int64, column string) (bool, error) {
	var query string
	switch column {
	case columnPinned:
		query = `UPDATE notices SET pinned = NOT pinned, updated_at = NOW() WHERE id = $1 RETURNING pinned`
	case columnPublished:
		query = `UPDATE notices SET published = NOT published, updated_at = NOW() WHERE id = $1 RETURNING published`
	default:
		return false, shared.ErrNotFound
	}
	var value bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&value); err != nil {
		return false, shared.MapPgError(err)
	}
	return value, nil
}

const (
	columnPinned    = "pinned"
	columnPublished = "published"
)

func (r *repository) one(ctx context.Context, query string, arg any) (Notice, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return Notice{}, err
	}
	items, err := scanNotices(rows)
	if err != nil {
		return Notice{}, err
	}
	if len(items) == 0 {
		return Notice{}, shared.ErrNotFound
	}
	return items[0], nil
}

func scanNotices(rows pgx.Rows) ([]Notice, error) {
	defer rows.Close()
	var out []Notice
	for rows.Next() {
		var n Notice
		if err := rows.Scan(&n.ID, &n.Slug, &n.Title, &n.Body, &n.Pinned, &n.Published, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
