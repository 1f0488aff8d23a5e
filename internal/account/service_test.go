package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/akademi-id/akademi/internal/action"
	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/shared"
)

type resetToken struct {
	userID    int64
	expiresAt time.Time
	used      bool
}

type memRepo struct {
	mu     sync.Mutex
	users  map[int64]User
	hashes map[int64]string
	tokens map[string]*resetToken
	nextID int64
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[int64]User{}, hashes: map[int64]string{}, tokens: map[string]*resetToken{}}
}

func (m *memRepo) Create(ctx context.Context, u User, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return 0, shared.ErrAlreadyExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = u
	m.hashes[u.ID] = passwordHash
	return u.ID, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *memRepo) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for id := m.nextID; id >= 1; id-- {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) UpdateProfile(ctx context.Context, id int64, name, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Name, u.Phone = name, phone
	m.users[id] = u
	return nil
}

func (m *memRepo) UpdateRole(ctx context.Context, id int64, role guard.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memRepo) CreateResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = &resetToken{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *memRepo) RedeemResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[tokenHash]
	if !ok || tok.used || !now.Before(tok.expiresAt) {
		return 0, shared.ErrNotFound
	}
	tok.used = true
	m.hashes[tok.userID] = passwordHash
	return tok.userID, nil
}

type mailbox struct {
	tokens map[string]string
}

func (m *mailbox) PasswordResetRequested(ctx context.Context, u User, token string) {
	m.tokens[u.Email] = token
}

type stubAudit struct {
	records []audit.Record
}

func (a *stubAudit) Log(rec audit.Record) { a.records = append(a.records, rec) }

type fixture struct {
	svc   *Service
	repo  *memRepo
	mail  *mailbox
	audit *stubAudit
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repo: newMemRepo(), mail: &mailbox{tokens: map[string]string{}}, audit: &stubAudit{}}
	f.now = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	limiter := ratelimit.New(ratelimit.WithClock(func() time.Time { return f.now }))
	gate := action.NewGate(guard.New(guard.ContextProvider{}), limiter, f.audit, i18n.New("id"), nil)
	f.svc = NewService(f.repo, gate, f.mail, nil)
	f.svc.cost = bcrypt.MinCost
	f.svc.now = func() time.Time { return f.now }
	return f
}

func as(id string, role guard.Role) context.Context {
	return guard.WithPrincipal(context.Background(), &guard.Principal{ID: id, Name: "Tester", Role: role})
}

func registration(phone, email string) RegisterInput {
	return RegisterInput{Name: "Sari", Email: email, Phone: phone, Password: "rahasia123", PasswordConfirm: "rahasia123"}
}

func TestRegisterCreatesStudent(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Register(context.Background(), registration("0812 1111 2222", " Sari@Example.COM "))
	require.True(t, res.Success, res.Error)

	u := f.repo.users[res.ID]
	assert.Equal(t, guard.RoleStudent, u.Role)
	assert.Equal(t, "sari@example.com", u.Email)
	assert.Equal(t, "081211112222", u.Phone)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.repo.hashes[res.ID]), []byte("rahasia123")))
}

func TestRegisterRejectsDuplicatesAndMismatch(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.svc.Register(context.Background(), registration("0812 1111 2222", "a@example.com")).Success)

	res := f.svc.Register(context.Background(), registration("0813 1111 2222", "A@example.com"))
	assert.False(t, res.Success)
	assert.Equal(t, "Akun dengan email ini sudah ada", res.Error)

	in := registration("0814 1111 2222", "b@example.com")
	in.PasswordConfirm = "lainlain123"
	res = f.svc.Register(context.Background(), in)
	assert.Equal(t, "Konfirmasi password tidak cocok", res.Error)
}

func TestRegisterRateLimitedPerPhone(t *testing.T) {
	f := newFixture(t)
	for i, email := range []string{"a@x.id", "b@x.id", "c@x.id"} {
		res := f.svc.Register(context.Background(), registration("0812-0000-1111", email))
		require.True(t, res.Success, "attempt %d: %s", i, res.Error)
	}
	res := f.svc.Register(context.Background(), registration("081200001111", "d@x.id"))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "600 detik")
	assert.Len(t, f.repo.users, 3)
}

func TestProfileIsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	res := f.svc.Register(context.Background(), registration("0812 1111 2222", "a@example.com"))
	require.True(t, res.Success)

	_, ok := f.svc.Profile(as("2", guard.RoleStudent), res.ID)
	assert.False(t, ok)
	_, ok = f.svc.Profile(as("9", guard.RoleSuperAdmin), res.ID)
	assert.False(t, ok, "admins do not read profiles through the hub")

	u, ok := f.svc.Profile(as("1", guard.RoleStudent), res.ID)
	require.True(t, ok)
	assert.Equal(t, "Sari", u.Name)

	upd := f.svc.UpdateProfile(as("1", guard.RoleStudent), res.ID, ProfileInput{Name: "<b>Sari</b> W", Phone: "0813 2222 3333"})
	require.True(t, upd.Success, upd.Error)
	assert.Equal(t, "Sari W", f.repo.users[res.ID].Name)
	require.Len(t, f.audit.records, 1)
	assert.Equal(t, "user", f.audit.records[0].Entity)

	upd = f.svc.UpdateProfile(as("2", guard.RoleStudent), res.ID, ProfileInput{Name: "X", Phone: "0813 2222 3333"})
	assert.Equal(t, "Anda tidak memiliki akses ke data ini", upd.Error)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	reg := f.svc.Register(context.Background(), registration("0812 1111 2222", "a@example.com"))
	require.True(t, reg.Success)

	res := f.svc.RequestPasswordReset(context.Background(), ResetRequestInput{Email: "nobody@example.com"})
	assert.True(t, res.Success, "unknown emails look the same")
	assert.Empty(t, f.mail.tokens)

	res = f.svc.RequestPasswordReset(context.Background(), ResetRequestInput{Email: "A@Example.com"})
	require.True(t, res.Success, res.Error)
	token := f.mail.tokens["a@example.com"]
	require.NotEmpty(t, token)
	assert.NotContains(t, f.repo.tokens, token, "only the hash is stored")

	done := f.svc.ResetPassword(context.Background(), ResetInput{Token: token, Password: "barubaru99", PasswordConfirm: "barubaru99"})
	require.True(t, done.Success, done.Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(f.repo.hashes[reg.ID]), []byte("barubaru99")))

	again := f.svc.ResetPassword(context.Background(), ResetInput{Token: token, Password: "lagilagi99", PasswordConfirm: "lagilagi99"})
	assert.False(t, again.Success)
	assert.Equal(t, "Tautan reset tidak valid atau sudah kedaluwarsa", again.Error)
}

func TestPasswordResetTokenExpires(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.svc.Register(context.Background(), registration("0812 1111 2222", "a@example.com")).Success)
	require.True(t, f.svc.RequestPasswordReset(context.Background(), ResetRequestInput{Email: "a@example.com"}).Success)

	f.now = f.now.Add(ResetTokenTTL)
	res := f.svc.ResetPassword(context.Background(), ResetInput{Token: f.mail.tokens["a@example.com"], Password: "barubaru99", PasswordConfirm: "barubaru99"})
	assert.Equal(t, "Tautan reset tidak valid atau sudah kedaluwarsa", res.Error)
}

func TestChangeRoleEscalation(t *testing.T) {
	f := newFixture(t)
	student := f.svc.Register(context.Background(), registration("0812 1111 2222", "a@example.com"))
	require.True(t, student.Success)

	res := f.svc.ChangeRole(as("50", guard.RoleStudent), student.ID, "INSTRUCTOR")
	assert.Equal(t, "Halaman ini khusus administrator", res.Error)

	res = f.svc.ChangeRole(as("50", guard.RoleAdmin), student.ID, "admin")
	assert.Equal(t, "Hanya super admin yang dapat memberikan peran administrator", res.Error)
	assert.Equal(t, guard.RoleStudent, f.repo.users[student.ID].Role)

	res = f.svc.ChangeRole(as("50", guard.RoleAdmin), student.ID, "INSTRUCTOR")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, guard.RoleInstructor, f.repo.users[student.ID].Role)

	res = f.svc.ChangeRole(as("60", guard.RoleSuperAdmin), student.ID, "ADMIN")
	require.True(t, res.Success, res.Error)

	res = f.svc.ChangeRole(as("50", guard.RoleAdmin), student.ID, "STUDENT")
	assert.False(t, res.Success, "demoting an admin needs a super admin")

	res = f.svc.ChangeRole(as("60", guard.RoleSuperAdmin), 60, "STUDENT")
	assert.Equal(t, "Anda tidak dapat mengubah peran sendiri", res.Error)

	res = f.svc.ChangeRole(as("60", guard.RoleSuperAdmin), student.ID, "ROOT")
	assert.Equal(t, "Nilai Peran tidak valid", res.Error)

	require.Len(t, f.audit.records, 2)
	assert.Equal(t, map[string]any{"from": "INSTRUCTOR", "role": "ADMIN"}, f.audit.records[1].Details)
}

func TestListUsersAdminOnly(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.svc.Register(context.Background(), registration("0812 1111 2222", "a@example.com")).Success)

	users, _ := f.svc.ListUsers(as("1", guard.RoleInstructor), 1)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	users, page := f.svc.ListUsers(as("1", guard.RoleAdmin), 1)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, page.Total)
}

func TestProvision(t *testing.T) {
	f := newFixture(t)
	id, err := f.svc.Provision(context.Background(), "Root", "Root@Akademi.id", "superrahasia", guard.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, guard.RoleSuperAdmin, f.repo.users[id].Role)
	assert.Equal(t, "root@akademi.id", f.repo.users[id].Email)

	_, err = f.svc.Provision(context.Background(), "Root", "root2@akademi.id", "short", guard.RoleAdmin)
	assert.Error(t, err)
	_, err = f.svc.Provision(context.Background(), "Root", "root3@akademi.id", "superrahasia", guard.Role("ROOT"))
	assert.Error(t, err)
}
