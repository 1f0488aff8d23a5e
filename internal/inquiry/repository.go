package inquiry

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-id/akademi/internal/shared"
)

// Repository persists inquiries.
type Repository interface {
	Create(ctx context.Context, inq Inquiry) (int64, error)
	List(ctx context.Context, status Status, limit, offset int) ([]Inquiry, int, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context, status Status) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Create(ctx context.Context, inq Inquiry) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO inquiries (name, email, phone, subject, message, status)
VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6) RETURNING id`,
		inq.Name, inq.Email, inq.Phone, inq.Subject, inq.Message, string(StatusNew)).Scan(&id)
	if err != nil {
		return 0, shared.MapPgError(err)
	}
	return id, nil
}

func (r *repository) List(ctx context.Context, status Status, limit, offset int) ([]Inquiry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inquiries WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(email, ''), phone, COALESCE(subject, ''), message, status, created_at
FROM inquiries WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Inquiry
	for rows.Next() {
		var inq Inquiry
		var st string
		if err := rows.Scan(&inq.ID, &inq.Name, &inq.Email, &inq.Phone, &inq.Subject, &inq.Message, &st, &inq.CreatedAt); err != nil {
			return nil, 0, err
		}
		inq.Status = Status(st)
		out = append(out, inq)
	}
	return out, total, rows.Err()
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE inquiries SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return shared.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inquiries WHERE id = $1`, id)
	if err != nil {
		return shared.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CountByStatus(ctx context.Context, status Status) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM inquiries WHERE status = $1`, string(status)).Scan(&n)
	return n, err
}
