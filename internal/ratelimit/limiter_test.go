package ratelimit

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func TestCheckCountsDownThenDenies(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now))
	policy := Policy{Name: "test", MaxAttempts: 5, Window: 300 * time.Second}

	for _, want := range []int{4, 3, 2, 1, 0} {
		res := limiter.Check("k", policy)
		require.True(t, res.Allowed)
		assert.Equal(t, want, res.Remaining)
		assert.Zero(t, res.RetryAfterSeconds)
	}

	denied := limiter.Check("k", policy)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 300, denied.RetryAfterSeconds)
}

func TestCheckRetryAfterRoundsUp(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now))
	policy := Policy{Name: "test", MaxAttempts: 1, Window: 10 * time.Second}

	require.True(t, limiter.Check("k", policy).Allowed)
	clock.Advance(8500 * time.Millisecond)

	res := limiter.Check("k", policy)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2, res.RetryAfterSeconds)
}

func TestCheckFreshWindowAfterExpiry(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now))

	for i := 0; i < Login.MaxAttempts; i++ {
		require.True(t, limiter.Check("login:a@b.c", Login).Allowed)
	}
	require.False(t, limiter.Check("login:a@b.c", Login).Allowed)

	clock.Advance(Login.Window + time.Second)
	res := limiter.Check("login:a@b.c", Login)
	assert.True(t, res.Allowed)
	assert.Equal(t, Login.MaxAttempts-1, res.Remaining)
}

func TestCheckExactlyAtResetStartsNewWindow(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now))
	policy := Policy{Name: "test", MaxAttempts: 1, Window: time.Minute}

	require.True(t, limiter.Check("k", policy).Allowed)
	clock.Advance(time.Minute)
	assert.True(t, limiter.Check("k", policy).Allowed)
}

func TestDeniedAttemptsDoNotExtendWindow(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now))
	policy := Policy{Name: "test", MaxAttempts: 2, Window: time.Minute}

	limiter.Check("k", policy)
	limiter.Check("k", policy)
	for i := 0; i < 10; i++ {
		clock.Advance(5 * time.Second)
		assert.False(t, limiter.Check("k", policy).Allowed)
	}
	clock.Advance(10 * time.Second)
	assert.True(t, limiter.Check("k", policy).Allowed)
}

func TestKeysAreIndependent(t *testing.T) {
	limiter := New(WithClock(newClock().Now))
	policy := Policy{Name: "test", MaxAttempts: 1, Window: time.Minute}

	assert.True(t, limiter.Check("a", policy).Allowed)
	assert.False(t, limiter.Check("a", policy).Allowed)
	assert.True(t, limiter.Check("b", policy).Allowed)
}

func TestInvalidPolicyAlwaysAllows(t *testing.T) {
	limiter := New()
	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Check("k", Policy{Name: "zero"}).Allowed)
	}
	assert.Equal(t, 0, limiter.Len())
}

func TestCleanupPurgesExpiredEntries(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now), WithCleanupInterval(time.Minute))
	short := Policy{Name: "short", MaxAttempts: 3, Window: 30 * time.Second}
	long := Policy{Name: "long", MaxAttempts: 3, Window: time.Hour}

	limiter.Check("a", short)
	limiter.Check("b", short)
	limiter.Check("c", long)
	require.Equal(t, 3, limiter.Len())

	clock.Advance(2 * time.Minute)
	limiter.Check("d", long)
	assert.Equal(t, 2, limiter.Len())
}

func TestCleanupWaitsForInterval(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now))
	short := Policy{Name: "short", MaxAttempts: 3, Window: time.Second}

	limiter.Check("a", short)
	clock.Advance(time.Minute)
	limiter.Check("b", short)
	assert.Equal(t, 2, limiter.Len())
}

func TestConcurrentChecksNeverExceedLimit(t *testing.T) {
	limiter := New()
	policy := Policy{Name: "burst", MaxAttempts: 25, Window: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check("shared", policy).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, policy.MaxAttempts, allowed)
}

func TestRegistererCountsDecisions(t *testing.T) {
	registry := prometheus.NewRegistry()
	limiter := New(WithRegisterer(registry))
	policy := Policy{Name: "contact", MaxAttempts: 1, Window: time.Minute}

	limiter.Check("k", policy)
	limiter.Check("k", policy)

	expected := `
# HELP akademi_ratelimit_decisions_total Rate limit decisions by policy and outcome.
# TYPE akademi_ratelimit_decisions_total counter
akademi_ratelimit_decisions_total{outcome="allowed",policy="contact"} 1
akademi_ratelimit_decisions_total{outcome="denied",policy="contact"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "akademi_ratelimit_decisions_total"))

	again := New(WithRegisterer(registry))
	again.Check("x", policy)
	assert.NotNil(t, again.decisions)
}

func TestPresets(t *testing.T) {
	cases := []struct {
		policy Policy
		max    int
		window time.Duration
	}{
		{Login, 5, 5 * time.Minute},
		{Registration, 3, 10 * time.Minute},
		{Contact, 3, 10 * time.Minute},
		{Admission, 2, 15 * time.Minute},
		{PasswordReset, 3, 15 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.policy.Name, func(t *testing.T) {
			assert.Equal(t, tc.max, tc.policy.MaxAttempts)
			assert.Equal(t, tc.window, tc.policy.Window)
		})
	}
	assert.Equal(t, "contact:0812", Key(Contact, "0812"))
}
