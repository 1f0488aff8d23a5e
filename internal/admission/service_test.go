package admission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademi-id/akademi/internal/action"
	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/shared"
)

type stubRepo struct {
	apps   map[int64]Application
	nextID int64
}

func (s *stubRepo) Create(ctx context.Context, app Application) (int64, error) {
	s.nextID++
	app.ID = s.nextID
	s.apps[app.ID] = app
	return app.ID, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return Application{}, shared.ErrNotFound
	}
	return app, nil
}

func (s *stubRepo) List(ctx context.Context, status Status, limit, offset int) ([]Application, int, error) {
	var out []Application
	for id := s.nextID; id >= 1; id-- {
		if app, ok := s.apps[id]; ok && (status == "" || app.Status == status) {
			out = append(out, app)
		}
	}
	return out, len(out), nil
}

func (s *stubRepo) ListByUser(ctx context.Context, userID string) ([]Application, error) {
	var out []Application
	for id := s.nextID; id >= 1; id-- {
		if app, ok := s.apps[id]; ok && app.UserID == userID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (s *stubRepo) SetStatus(ctx context.Context, id int64, status Status) error {
	app, ok := s.apps[id]
	if !ok {
		return shared.ErrNotFound
	}
	app.Status = status
	s.apps[id] = app
	return nil
}

func (s *stubRepo) CountByStatus(ctx context.Context, status Status) (int, error) {
	_, n, err := s.List(ctx, status, 0, 0)
	return n, err
}

type stubNotifier struct{ sent []Application }

func (n *stubNotifier) ApplicationReceived(ctx context.Context, app Application) {
	n.sent = append(n.sent, app)
}

type stubAudit struct{ records []audit.Record }

func (a *stubAudit) Log(rec audit.Record) { a.records = append(a.records, rec) }

func newTestService(t *testing.T) (*Service, *stubRepo, *stubNotifier, *stubAudit) {
	t.Helper()
	repo := &stubRepo{apps: make(map[int64]Application)}
	notifier := &stubNotifier{}
	auditLog := &stubAudit{}
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))
	gate := action.NewGate(guard.New(guard.ContextProvider{}), limiter, auditLog, i18n.New("id"), nil)
	return NewService(repo, gate, notifier, nil), repo, notifier, auditLog
}

func student(id string) context.Context {
	return guard.WithPrincipal(context.Background(), &guard.Principal{ID: id, Name: "Siswa " + id, Role: guard.RoleStudent})
}

func input(phone string) SubmitInput {
	return SubmitInput{FullName: "Dewi Lestari", Email: "dewi@example.com", Phone: phone, CourseID: 3, Motivation: "Ingin belajar <b>data</b>"}
}

func TestSubmitLimitedToTwoPerPhone(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)

	require.True(t, svc.Submit(context.Background(), input("081111111111")).Success)
	require.True(t, svc.Submit(context.Background(), input("081111111111")).Success)
	res := svc.Submit(context.Background(), input("081111111111"))
	assert.False(t, res.Success)
	assert.Equal(t, "Terlalu banyak percobaan. Coba lagi dalam 900 detik", res.Error)
	assert.Len(t, repo.apps, 2)
	assert.Len(t, notifier.sent, 2)
	assert.Equal(t, "Ingin belajar data", repo.apps[1].Motivation)
	assert.Empty(t, repo.apps[1].UserID)
}

func TestSubmitStoresPlainText(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	in := input("087777777777")
	in.FullName = "Siti O'Brien & Co"
	in.Email = " O'Neil@Example.com "
	res := svc.Submit(context.Background(), in)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Siti O'Brien & Co", repo.apps[res.ID].FullName)
	assert.Equal(t, "o'neil@example.com", repo.apps[res.ID].Email)
}

func TestSubmitRejectsMarkupOnlyName(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	in := input("088888888888")
	in.FullName = "<b></b>"
	res := svc.Submit(context.Background(), in)
	assert.False(t, res.Success)
	assert.Equal(t, "Nama lengkap wajib diisi", res.Error)
	assert.Empty(t, repo.apps)
}

func TestSubmitRequiresProgram(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	in := input("082222222222")
	in.CourseID = 0
	res := svc.Submit(context.Background(), in)
	assert.Equal(t, "Program wajib diisi", res.Error)
}

func TestHubSeesOnlyOwnApplications(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	mine := svc.Submit(student("10"), input("083333333333"))
	require.True(t, mine.Success)
	theirs := svc.Submit(student("11"), input("084444444444"))
	require.True(t, theirs.Success)
	anon := svc.Submit(context.Background(), input("085555555555"))
	require.True(t, anon.Success)

	apps := svc.ListMine(student("10"))
	require.Len(t, apps, 1)
	assert.Equal(t, mine.ID, apps[0].ID)
	assert.Equal(t, "10", apps[0].UserID)

	assert.Empty(t, svc.ListMine(context.Background()))
	assert.NotNil(t, svc.ListMine(context.Background()))

	app, ok := svc.GetMine(student("10"), mine.ID)
	assert.True(t, ok)
	assert.Equal(t, mine.ID, app.ID)

	_, ok = svc.GetMine(student("10"), theirs.ID)
	assert.False(t, ok, "foreign application")
	_, ok = svc.GetMine(student("10"), anon.ID)
	assert.False(t, ok, "anonymous application has no owner")
	_, ok = svc.GetMine(student("10"), 999)
	assert.False(t, ok)
}

func TestReviewQueue(t *testing.T) {
	svc, _, _, auditLog := newTestService(t)
	first := svc.Submit(context.Background(), input("086666666666"))
	require.True(t, first.Success)
	admin := guard.WithPrincipal(context.Background(), &guard.Principal{ID: "1", Name: "Admin", Role: guard.RoleAdmin})

	items, _ := svc.List(student("10"), "", 1)
	assert.Empty(t, items)
	assert.Equal(t, 1, svc.CountPending(admin))

	res := svc.SetStatus(admin, first.ID, "ACCEPTED")
	require.True(t, res.Success, res.Error)
	items, pagination := svc.List(admin, StatusAccepted, 1)
	require.Len(t, items, 1)
	assert.Equal(t, 1, pagination.Total)
	assert.Zero(t, svc.CountPending(admin))

	require.Len(t, auditLog.records, 1)
	assert.Equal(t, "application", auditLog.records[0].Entity)
	assert.Equal(t, audit.ActionStatusChange, auditLog.records[0].Action)

	res = svc.SetStatus(student("10"), first.ID, "REJECTED")
	assert.Equal(t, "Halaman ini khusus administrator", res.Error)
}
