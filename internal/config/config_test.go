package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "portfolio_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "60000")
	t.Setenv("MINIO_PUBLIC_URL", "https://cdn.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "portfolio_test", cfg.MongoDB.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, cfg.JWT.Secret, cfg.JWT.RefreshSecret)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.RefreshTokenTTL)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.EqualValues(t, 5<<20, cfg.Upload.MaxFileSize)
	assert.Equal(t, "https://cdn.example.com", cfg.MinIO.PublicURL)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Environment: "production"},
		JWT:       JWTConfig{Secret: "short"},
		RateLimit: RateLimitConfig{Enabled: true, UseRedis: true},
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"MONGODB_URI is required",
		"JWT_SECRET must be at least 32 characters",
		"RATE_LIMIT_MAX_REQUESTS",
		"RATE_LIMIT_USE_REDIS requires REDIS_HOST",
	} {
		assert.Contains(t, err.Error(), want)
	}
}
