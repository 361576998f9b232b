package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/cache"
	"github.com/dropDatabas3/crowdauth/internal/principal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory("")
	s := NewCacheStore(c, time.Hour)

	id, err := NewID()
	require.NoError(t, err)

	_, err = s.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	p := principal.Principal{
		Username:        "john",
		Email:           "john@example.com",
		Active:          true,
		Attributes:      map[string][]string{"team": {"a", "b"}},
		Roles:           []string{"ROLE_ADMIN", "ROLE_USER"},
		SessionToken:    "crowd-token",
		LastRefreshedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(ctx, id, p))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// el id no se usa en claro como key
	_, err = c.Get(ctx, "sid:"+id)
	assert.True(t, cache.IsNotFound(err))

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheStore_CorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory("")
	s := NewCacheStore(c, time.Hour)

	require.NoError(t, c.Set(ctx, key("abc"), []byte("{not json"), 0))
	_, err := s.Get(ctx, "abc")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheStore_EmptyID(t *testing.T) {
	s := NewCacheStore(cache.NewMemory(""), 0)
	_, err := s.Get(context.Background(), "")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Delete(context.Background(), ""))
}

func TestNewID(t *testing.T) {
	a, err := NewID()
	require.NoError(t, err)
	b, err := NewID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
	assert.False(t, strings.ContainsAny(a, "+/="))
}
