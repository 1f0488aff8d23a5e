package courses

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-id/akademi/internal/shared"
)

// Repository persists courses.
type Repository interface {
	ListPublished(ctx context.Context) ([]Course, error)
	GetBySlug(ctx context.Context, slug string) (Course, error)
	List(ctx context.Context, limit, offset int) ([]Course, int, error)
	Get(ctx context.Context, id int64) (Course, error)
	Create(ctx context.Context, c Course) (int64, error)
	Update(ctx context.Context, id int64, c Course) error
	Delete(ctx context.Context, id int64) error
	TogglePublished(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectCourse = `SELECT id, slug, title, COALESCE(summary, ''), COALESCE(description, ''), COALESCE(level, ''),
duration_weeks, fee, published, created_at, updated_at FROM courses`

func (r *repository) ListPublished(ctx context.Context) ([]Course, error) {
	rows, err := r.pool.Query(ctx, selectCourse+` WHERE published ORDER BY title`)
	if err != nil {
		return nil, err
	}
	return scanCourses(rows)
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (Course, error) {
	return r.one(ctx, selectCourse+` WHERE slug = $1 AND published`, slug)
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Course, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, selectCourse+` ORDER BY updated_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := scanCourses(rows)
	return items, total, err
}

func (r *repository) Get(ctx context.Context, id int64) (Course, error) {
	return r.one(ctx, selectCourse+` WHERE id = $1`, id)
}

func (r *repository) Create(ctx context.Context, c Course) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO courses (slug, title, summary, description, level, duration_weeks, fee, published)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8) RETURNING id`,
		c.Slug, c.Title, c.Summary, c.Description, c.Level, c.DurationWeeks, c.Fee, c.Published).Scan(&id)
	if err != nil {
		return 0, shared.MapPgError(err)
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, c Course) error {
	tag, err := r.pool.Exec(ctx, `UPDATE courses SET slug = $2, title = $3, summary = NULLIF($4, ''), description = NULLIF($5, ''),
level = NULLIF($6, ''), duration_weeks = $7, fee = $8, published = $9, updated_at = NOW() WHERE id = $1`,
		id, c.Slug, c.Title, c.Summary, c.Description, c.Level, c.DurationWeeks, c.Fee, c.Published)
	if err != nil {
		return shared.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return shared.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) TogglePublished(ctx context.Context, id int64) (bool, error) {
	var published bool
	err := r.pool.QueryRow(ctx, `UPDATE courses SET published = NOT published, updated_at = NOW() WHERE id = $1 RETURNING published`, id).Scan(&published)
	if err != nil {
		return false, shared.MapPgError(err)
	}
	return published, nil
}

func (r *repository) one(ctx context.Context, query string, arg any) (Course, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return Course{}, err
	}
	items, err := scanCourses(rows)
	if err != nil {
		return Course{}, err
	}
	if len(items) == 0 {
		return Course{}, shared.ErrNotFound
	}
	return items[0], nil
}

func scanCourses(rows pgx.Rows) ([]Course, error) {
	defer rows.Close()
	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Slug, &c.Title, &c.Summary, &c.Description, &c.Level,
			&c.DurationWeeks, &c.Fee, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
