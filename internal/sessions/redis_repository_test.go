package sessions

import (
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T, prefix string) (*RedisRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return NewRedisRepository(redis.NewClient(&redis.Options{Addr: m.Addr()}), prefix), m
}

func TestRedisRepositoryRoundTrip(t *testing.T) {
	repo, m := newRedisRepo(t, "test:session:")
	ctx := t.Context()
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := &Session{ID: Digest("refresh-1"), UserID: "user-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	require.NoError(t, repo.Create(ctx, s))
	assert.True(t, m.Exists("test:session:"+s.ID))
	assert.Equal(t, "user-1", m.HGet("test:session:"+s.ID, "userId"))
	assert.InDelta(t, time.Hour.Seconds(), m.TTL("test:session:"+s.ID).Seconds(), 2)

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.UserID, got.UserID)
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, repo.Delete(ctx, s.ID))
	got, err = repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisRepositoryExpiry(t *testing.T) {
	repo, m := newRedisRepo(t, "")
	ctx := t.Context()
	s := &Session{ID: Digest("refresh-2"), UserID: "user-2", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, repo.Create(ctx, s))
	assert.True(t, m.Exists("session:"+s.ID))

	m.FastForward(2 * time.Minute)
	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	stale := &Session{ID: Digest("refresh-3"), UserID: "user-3", ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, repo.Create(ctx, stale))
	assert.False(t, m.Exists("session:"+stale.ID))
}
