package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/dkathuria/taskpipe/internal/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisCache.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rc, err := cache.NewRedisCache("redis://" + host + ":" + port.Port())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, rc.Close()) })

	return rc
}

// --- Redis integration ---

func TestRedis_SetGetRoundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	err := rc.Set(ctx, "test:key", []byte("hello"), 10*time.Second)
	require.NoError(t, err)

	val, found, err := rc.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("hello"), val)
}

func TestRedis_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)

	val, found, err := rc.Get(context.Background(), "nonexistent:key")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestRedis_TTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "expiry:key", []byte("temp"), 1*time.Second))

	_, found, err := rc.Get(ctx, "expiry:key")
	require.NoError(t, err)
	assert.True(t, found)

	time.Sleep(1500 * time.Millisecond)

	_, found, err = rc.Get(ctx, "expiry:key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedis_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "del:key", []byte("bye"), 10*time.Second))

	ok, err := rc.Delete(ctx, "del:key")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rc.Delete(ctx, "del:key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_IncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := "ratelimit:test:" + uuid.NewString()[:8]

	for want := int64(1); want <= 3; want++ {
		val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, val)
	}
}

// --- MemoryCache ---

// fakeClock is a manually advanced clock for TTL tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemory_SetGetRoundtrip(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Minute))

	val, found, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)
}

func TestMemory_ExpiryWithFastForwardedClock(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	mc := cache.NewMemoryCacheWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 2*time.Hour))

	clock.Advance(2*time.Hour - time.Second)
	_, found, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)

	clock.Advance(2 * time.Second)
	_, found, err = mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "expired key must be indistinguishable from never-created")
}

func TestMemory_SetResetsTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	mc := cache.NewMemoryCacheWithClock(clock.Now)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v1"), time.Hour))
	clock.Advance(50 * time.Minute)
	require.NoError(t, mc.Set(ctx, "k", []byte("v2"), time.Hour))

	// Past the original deadline, but within the refreshed window.
	clock.Advance(30 * time.Minute)
	val, found, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v2"), val)
}

func TestMemory_IncrWithExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	mc := cache.NewMemoryCacheWithClock(clock.Now)
	ctx := context.Background()

	val, err := mc.IncrWithExpiry(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)

	val, err = mc.IncrWithExpiry(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), val)

	clock.Advance(2 * time.Minute)
	val, err = mc.IncrWithExpiry(ctx, "counter", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val, "counter restarts after expiry")
}

// --- Cache key builders ---

func TestJobKey(t *testing.T) {
	jobID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "job:22222222-2222-2222-2222-222222222222", cache.JobKey(jobID))
}

func TestBatchKey(t *testing.T) {
	batchID := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	assert.Equal(t, "batch:33333333-3333-3333-3333-333333333333", cache.BatchKey(batchID))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:tp_abcd1234", cache.RateLimitKey("tp_abcd1234"))
}

func TestMetricsKey(t *testing.T) {
	assert.Equal(t, "metrics:summarize:2026-03-01:success",
		cache.MetricsKey("summarize", "2026-03-01", "success"))
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	id := uuid.New()
	keys := map[string]bool{
		cache.JobKey(id):                             true,
		cache.BatchKey(id):                           true,
		cache.RateLimitKey("tp_prefix"):              true,
		cache.MetricsKey("math", "2026-03-01", "ok"): true,
	}
	assert.Len(t, keys, 4, "all keys should be unique")
}
