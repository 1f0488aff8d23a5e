package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Store persists audit records. Reads return newest first.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	ForEntity(ctx context.Context, entity, entityID string, limit int) ([]Record, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

// PGStore implements Store on the audit_logs table.
type PGStore struct {
	db dbtx
}

// NewPGStore constructs a PGStore. Pass a *pgxpool.Pool or a pgx.Tx.
func NewPGStore(db dbtx) *PGStore {
	return &PGStore{db: db}
}

const selectColumns = `SELECT id, user_id, user_name, action, entity, entity_id, details, created_at FROM audit_logs`

// Insert appends rec.
func (s *PGStore) Insert(ctx context.Context, rec Record) error {
	details, err := encodeDetails(rec.Details)
	if err != nil {
		return fmt.Errorf("audit: encode details: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO audit_logs (user_id, user_name, action, entity, entity_id, details, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.UserID, optionalText(rec.UserName), string(rec.Action), rec.Entity, optionalText(rec.EntityID), details, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Recent returns the latest records.
func (s *PGStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.Query(ctx, selectColumns+` ORDER BY created_at DESC, id DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	return scanRecords(rows)
}

// ForEntity returns the history of a single entity.
func (s *PGStore) ForEntity(ctx context.Context, entity, entityID string, limit int) ([]Record, error) {
	rows, err := s.db.Query(ctx, selectColumns+` WHERE entity = $1 AND entity_id = $2 ORDER BY created_at DESC, id DESC LIMIT $3`, entity, entityID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("audit: for entity: %w", err)
	}
	return scanRecords(rows)
}

// PruneBefore deletes records created before cutoff.
func (s *PGStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit: prune: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec       Record
			action    string
			userName  pgtype.Text
			entityID  pgtype.Text
			details   []byte
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &userName, &action, &rec.Entity, &entityID, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		rec.Action = Action(action)
		rec.UserName = userName.String
		rec.EntityID = entityID.String
		if createdAt.Valid {
			rec.CreatedAt = createdAt.Time
		}
		decoded, err := decodeDetails(details)
		if err != nil {
			return nil, fmt.Errorf("audit: decode details: %w", err)
		}
		rec.Details = decoded
		records = append(records, rec)
	}
	return records, rows.Err()
}

func encodeDetails(details map[string]any) ([]byte, error) {
	if len(details) == 0 {
		return nil, nil
	}
	return json.Marshal(details)
}

func decodeDetails(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var details map[string]any
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, err
	}
	return details, nil
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
