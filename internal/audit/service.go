package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akademi-id/akademi/internal/guard"
)

// ErrSuperAdminOnly is returned when a non super admin tries to prune.
var ErrSuperAdminOnly = errors.New("audit: super admin only")

// Service exposes the admin-guarded audit reads and retention.
type Service struct {
	store Store
	guard *guard.Guard
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, g *guard.Guard) *Service {
	return &Service{store: store, guard: g, now: time.Now}
}

// RecentLogs returns the latest records. Unauthorized callers get an empty
// list and the guard error.
func (s *Service) RecentLogs(ctx context.Context, limit int) ([]Record, error) {
	if res := s.guard.RequireAdmin(ctx); !res.OK() {
		return []Record{}, res.Err
	}
	return s.store.Recent(ctx, clampLimit(limit))
}

// LogsForEntity returns the history of one entity, newest first.
func (s *Service) LogsForEntity(ctx context.Context, entity, entityID string, limit int) ([]Record, error) {
	if res := s.guard.RequireAdmin(ctx); !res.OK() {
		return []Record{}, res.Err
	}
	return s.store.ForEntity(ctx, entity, entityID, clampLimit(limit))
}

// Prune deletes records older than the retention window. Only a super admin
// may prune; nothing is ever pruned automatically.
func (s *Service) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := s.guard.RequireAdmin(ctx)
	if !res.OK() {
		return 0, res.Err
	}
	if res.Principal.Role != guard.RoleSuperAdmin {
		return 0, ErrSuperAdminOnly
	}
	return PruneOlderThan(ctx, s.store, olderThan, s.now())
}

// PruneOlderThan is the unguarded retention primitive used by the operator CLI.
func PruneOlderThan(ctx context.Context, store Store, olderThan time.Duration, now time.Time) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("audit: retention must be positive")
	}
	return store.PruneBefore(ctx, now.Add(-olderThan))
}
