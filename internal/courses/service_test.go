package courses

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

type memRepo struct {
	items  map[int64]Course
	nextID int64
}

func newMemRepo() *memRepo { return &memRepo{items: make(map[int64]Course)} }

func (m *memRepo) ListPublished(ctx context.Context) ([]Course, error) {
	var out []Course
	for id := int64(1); id <= m.nextID; id++ {
		if c, ok := m.items[id]; ok && c.Published {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepo) GetBySlug(ctx context.Context, slug string) (Course, error) {
	for _, c := range m.items {
		if c.Slug == slug && c.Published {
			return c, nil
		}
	}
	return Course{}, shared.ErrNotFound
}

func (m *memRepo) List(ctx context.Context, limit, offset int) ([]Course, int, error) {
	var out []Course
	for id := m.nextID; id >= 1; id-- {
		if c, ok := m.items[id]; ok {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Course, error) {
	c, ok := m.items[id]
	if !ok {
		return Course{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memRepo) slugTaken(slug string, except int64) bool {
	for id, c := range m.items {
		if c.Slug == slug && id != except {
			return true
		}
	}
	return false
}

func (m *memRepo) Create(ctx context.Context, c Course) (int64, error) {
	if m.slugTaken(c.Slug, 0) {
		return 0, shared.ErrAlreadyExists
	}
	m.nextID++
	c.ID = m.nextID
	m.items[c.ID] = c
	return c.ID, nil
}

func (m *memRepo) Update(ctx context.Context, id int64, c Course) error {
	if _, ok := m.items[id]; !ok {
		return shared.ErrNotFound
	}
	if m.slugTaken(c.Slug, id) {
		return shared.ErrAlreadyExists
	}
	c.ID = id
	m.items[id] = c
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memRepo) TogglePublished(ctx context.Context, id int64) (bool, error) {
	c, ok := m.items[id]
	if !ok {
		return false, shared.ErrNotFound
	}
	c.Published = !c.Published
	m.items[id] = c
	return c.Published, nil
}

type stubAudit struct{ records []audit.Record }

func (a *stubAudit) Log(rec audit.Record) { a.records = append(a.records, rec) }

func newTestService(t *testing.T) (*Service, *memRepo, *stubAudit) {
	t.Helper()
	repo := newMemRepo()
	auditLog := &stubAudit{}
	now := time.Date(2024, 8, 1, 8, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(ratelimit.WithClock(func() time.Time { return now }))
	gate := action.NewGate(guard.New(guard.ContextProvider{}), limiter, auditLog, i18n.New("id"), nil)
	return NewService(repo, gate, nil), repo, auditLog
}

func admin() context.Context {
	return guard.WithPrincipal(context.Background(), &guard.Principal{ID: "1", Name: "Admin", Role: guard.RoleAdmin})
}

func sampleInput() Input {
	return Input{
		Slug:          "  Data-Science ",
		Title:         "<i>Data</i> Science",
		Summary:       "Belajar analisis data",
		Description:   `<p>Materi <a href="https://example.com" onclick="x()">silabus</a></p><script>alert(1)</script>`,
		Level:         "beginner",
		DurationWeeks: 12,
		Fee:           2500000,
		Published:     true,
	}
}

func TestCreateSanitizesAndAudits(t *testing.T) {
	svc, repo, auditLog := newTestService(t)

	res := svc.Create(admin(), sampleInput())
	require.True(t, res.Success, res.Error)

	c := repo.items[res.ID]
	assert.Equal(t, "data-science", c.Slug)
	assert.Equal(t, "Data Science", c.Title)
	assert.Equal(t, LevelBeginner, c.Level)
	assert.Contains(t, c.Description, `<a href="https://example.com"`)
	assert.NotContains(t, c.Description, "onclick")
	assert.NotContains(t, c.Description, "script")

	require.Len(t, auditLog.records, 1)
	rec := auditLog.records[0]
	assert.Equal(t, audit.ActionCreate, rec.Action)
	assert.Equal(t, "course", rec.Entity)
	assert.Equal(t, "1", rec.EntityID)
	assert.Equal(t, "data-science", rec.Details["slug"])
}

func TestDuplicateSlug(t *testing.T) {
	svc, repo, auditLog := newTestService(t)
	require.True(t, svc.Create(admin(), sampleInput()).Success)

	res := svc.Create(admin(), sampleInput())
	assert.False(t, res.Success)
	assert.Equal(t, "Kursus dengan slug ini sudah ada", res.Error)
	assert.Len(t, repo.items, 1)
	assert.Len(t, auditLog.records, 1, "failed mutations are not audited")
}

func TestInvalidSlugRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := sampleInput()
	in.Slug = "data science!"
	res := svc.Create(admin(), in)
	assert.Equal(t, "Slug hanya boleh berisi huruf kecil, angka, dan tanda hubung", res.Error)
}

func TestPublicCatalogHidesDrafts(t *testing.T) {
	svc, _, _ := newTestService(t)
	published := svc.Create(admin(), sampleInput())
	require.True(t, published.Success)
	draft := sampleInput()
	draft.Slug = "draft"
	draft.Published = false
	require.True(t, svc.Create(admin(), draft).Success)

	list := svc.ListPublished(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, "data-science", list[0].Slug)

	_, ok := svc.GetBySlug(context.Background(), "draft")
	assert.False(t, ok)

	res := svc.TogglePublished(admin(), published.ID)
	require.True(t, res.Success)
	assert.Empty(t, svc.ListPublished(context.Background()))
	assert.NotNil(t, svc.ListPublished(context.Background()))
}

func TestStudentsCannotManageCourses(t *testing.T) {
	svc, repo, _ := newTestService(t)
	student := guard.WithPrincipal(context.Background(), &guard.Principal{ID: "5", Role: guard.RoleStudent})

	res := svc.Create(student, sampleInput())
	assert.Equal(t, "Halaman ini khusus administrator", res.Error)
	assert.Empty(t, repo.items)

	items, _ := svc.List(student, 1)
	assert.Empty(t, items)
	_, ok := svc.Get(student, 1)
	assert.False(t, ok)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, repo, auditLog := newTestService(t)
	created := svc.Create(admin(), sampleInput())
	require.True(t, created.Success)

	in := sampleInput()
	in.Title = "Data Science Lanjutan"
	res := svc.Update(admin(), created.ID, in)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Data Science Lanjutan", repo.items[created.ID].Title)

	assert.Equal(t, "Data tidak ditemukan", svc.Update(admin(), 99, in).Error)

	require.True(t, svc.Delete(admin(), created.ID).Success)
	assert.Empty(t, repo.items)

	actions := make([]audit.Action, 0, len(auditLog.records))
	for _, rec := range auditLog.records {
		actions = append(actions, rec.Action)
	}
	assert.Equal(t, []audit.Action{audit.ActionCreate, audit.ActionUpdate, audit.ActionDelete}, actions)
}
