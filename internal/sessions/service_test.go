package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndValidateSession(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.CreateSession(ctx, "user-1", "refresh-1", time.Hour))

	sess, err := svc.ValidateRefresh(ctx, "refresh-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, Digest("refresh-1"), sess.ID)

	unknown, err := svc.ValidateRefresh(ctx, "refresh-2")
	require.NoError(t, err)
	assert.Nil(t, unknown)

	require.NoError(t, svc.DeleteRefresh(ctx, "refresh-1"))
	sess, err = svc.ValidateRefresh(ctx, "refresh-1")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestExpiredSessionIsRejected(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.CreateSession(ctx, "user-1", "stale", -time.Minute))
	sess, err := svc.ValidateRefresh(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, sess)
}
