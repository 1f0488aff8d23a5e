package admission

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-id/akademi/internal/shared"
)

// Repository persists applications.
type Repository interface {
	Create(ctx context.Context, app Application) (int64, error)
	Get(ctx context.Context, id int64) (Application, error)
	List(ctx context.Context, status Status, limit, offset int) ([]Application, int, error)
	ListByUser(ctx context.Context, userID string) ([]Application, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	CountByStatus(ctx context.Context, status Status) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectApplication = `SELECT a.id, COALESCE(a.user_id::text, ''), a.full_name, a.email, a.phone, COALESCE(a.course_id, 0), COALESCE(c.title, ''),
COALESCE(a.motivation, ''), a.status, a.created_at
FROM applications a LEFT JOIN courses c ON c.id = a.course_id`

func (r *repository) Create(ctx context.Context, app Application) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO applications (user_id, full_name, email, phone, course_id, motivation, status)
VALUES (NULLIF($1, '')::bigint, $2, $3, $4, $5, NULLIF($6, ''), $7) RETURNING id`,
		app.UserID, app.FullName, app.Email, app.Phone, app.CourseID, app.Motivation, string(StatusPending)).Scan(&id)
	if err != nil {
		return 0, shared.MapPgError(err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Application, error) {
	rows, err := r.pool.Query(ctx, selectApplication+` WHERE a.id = $1`, id)
	if err != nil {
		return Application{}, err
	}
	apps, err := scanApplications(rows)
	if err != nil {
		return Application{}, err
	}
	if len(apps) == 0 {
		return Application{}, shared.ErrNotFound
	}
	return apps[0], nil
}

func (r *repository) List(ctx context.Context, status Status, limit, offset int) ([]Application, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, selectApplication+` WHERE ($1 = '' OR a.status = $1)
ORDER BY a.created_at DESC, a.id DESC LIMIT $2 OFFSET $3`, string(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	apps, err := scanApplications(rows)
	return apps, total, err
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]Application, error) {
	rows, err := r.pool.Query(ctx, selectApplication+` WHERE a.user_id::text = $1 ORDER BY a.created_at DESC, a.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return scanApplications(rows)
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE applications SET status = $2, reviewed_at = NOW() WHERE id = $1`, id, string(status))
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
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications WHERE status = $1`, string(status)).Scan(&n)
	return n, err
}

func scanApplications(rows pgx.Rows) ([]Application, error) {
	defer rows.Close()
	var out []Application
	for rows.Next() {
		var app Application
		var userID pgtype.Text
		var status string
		if err := rows.Scan(&app.ID, &userID, &app.FullName, &app.Email, &app.Phone, &app.CourseID, &app.CourseTitle,
			&app.Motivation, &status, &app.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			app.UserID = userID.String
		}
		app.Status = Status(status)
		out = append(out, app)
	}
	return out, rows.Err()
}
