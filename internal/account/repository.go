package account

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/platform/db"
	"github.com/akademi-id/akademi/internal/shared"
)

// Repository persists accounts and reset tokens.
type Repository interface {
	Create(ctx context.Context, u User, passwordHash string) (int64, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)
	UpdateProfile(ctx context.Context, id int64, name, phone string) error
	UpdateRole(ctx context.Context, id int64, role guard.Role) error
	CreateResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	// RedeemResetToken consumes the token and stores the new password hash in
	// one transaction.
	RedeemResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectUser = `SELECT id, name, email, COALESCE(phone, ''), role, created_at FROM users`

func (r *repository) Create(ctx context.Context, u User, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (name, email, phone, role, password_hash, is_active)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, TRUE) RETURNING id`,
		u.Name, u.Email, u.Phone, u.Role.String(), passwordHash).Scan(&id)
	if err != nil {
		return 0, shared.MapPgError(err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (User, error) {
	return r.one(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.one(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, selectUser+` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	users, err := scanUsers(rows)
	return users, total, err
}

func (r *repository) UpdateProfile(ctx context.Context, id int64, name, phone string) error {
	return r.exec(ctx, `UPDATE users SET name = $2, phone = NULLIF($3, ''), updated_at = NOW() WHERE id = $1`, id, name, phone)
}

func (r *repository) UpdateRole(ctx context.Context, id int64, role guard.Role) error {
	return r.exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role.String())
}

func (r *repository) CreateResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO password_resets (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		userID, tokenHash, expiresAt.UTC())
	return shared.MapPgError(err)
}

// RedeemResetToken marks a token used and sets its user's password. Expired,
// used and unknown tokens are all ErrNotFound.
func (r *repository) RedeemResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (int64, error) {
	var userID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `UPDATE password_resets SET used_at = $2
WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2 RETURNING user_id`, tokenHash, now.UTC()).Scan(&userID); err != nil {
			return shared.MapPgError(err)
		}
		tag, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, passwordHash)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

func (r *repository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return shared.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) one(ctx context.Context, query string, arg any) (User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return User{}, err
	}
	users, err := scanUsers(rows)
	if err != nil {
		return User{}, err
	}
	if len(users) == 0 {
		return User{}, shared.ErrNotFound
	}
	return users[0], nil
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role, _ = guard.ParseRole(role)
		out = append(out, u)
	}
	return out, rows.Err()
}
