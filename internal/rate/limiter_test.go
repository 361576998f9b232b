package rate

import (
	"context"
	"os"
	"testing"
	"time"

	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	clock := abtime.NewManualAtTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	l := NewMemoryLimiter("", 3, time.Minute, clock)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(3-i), res.Remaining)
	}

	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(4), res.CurrentHits)
	assert.Equal(t, time.Minute, res.RetryAfter)

	// otra key no comparte ventana
	res, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	clock.Advance(61 * time.Second)
	res, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.CurrentHits)
}

// Requiere un Redis real: CROWDAUTH_TEST_REDIS=localhost:6379
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("CROWDAUTH_TEST_REDIS")
	if addr == "" {
		t.Skip("CROWDAUTH_TEST_REDIS not set")
	}
	c := rdb.NewClient(&rdb.Options{Addr: addr})
	defer c.Close()

	l := NewRedisLimiter(c, "crowdauth-test-rl:", 2, time.Minute)
	key := "k-" + time.Now().Format(time.RFC3339Nano)
	ctx := context.Background()

	r1, err := l.Allow(ctx, key)
	require.NoError(t, err)
	r2, err := l.Allow(ctx, key)
	require.NoError(t, err)
	r3, err := l.Allow(ctx, key)
	require.NoError(t, err)

	assert.True(t, r1.Allowed)
	assert.True(t, r2.Allowed)
	assert.False(t, r3.Allowed)
	assert.Greater(t, r3.RetryAfter, time.Duration(0))
}
