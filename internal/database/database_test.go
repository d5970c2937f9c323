package database

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectRedis(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client, err := ConnectRedis(context.Background(), m.Addr(), "", 0)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	v, err := m.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestConnectRedisUnreachable(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	addr := m.Addr()
	m.Close()

	_, err = ConnectRedis(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestConnectMongoWithRetryGivesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := ConnectMongoWithRetry(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=100", 200*time.Millisecond, time.Second, zap.NewNop())
	assert.Error(t, err)
}
