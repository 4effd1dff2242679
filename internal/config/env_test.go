package config

import (
	"testing"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, client.DefaultEndpoint, cfg.APIURL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("RM_API_URL", "http://localhost:8080/graphql")
	t.Setenv("RM_USER_AGENT", "test-agent/1.0")
	t.Setenv("RM_REDIS_ADDR", "localhost:6379")
	t.Setenv("RM_LANG", "de")
	t.Setenv("RM_LOG_LEVEL", "debug")
	t.Setenv("RM_CACHE_TTL", "30s")
	t.Setenv("RM_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Config{
		APIURL:    "http://localhost:8080/graphql",
		UserAgent: "test-agent/1.0",
		RedisAddr: "localhost:6379",
		Lang:      "de",
		LogLevel:  "debug",
		CacheTTL:  30 * time.Second,
		Timeout:   2 * time.Second,
	}, cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "RM_CACHE_TTL", "soon"},
		{"negative ttl", "RM_CACHE_TTL", "-1s"},
		{"zero timeout", "RM_TIMEOUT", "0s"},
		{"bad log level", "RM_LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.APIURL = "http://localhost:8080/graphql"
	cfg.CacheTTL = time.Minute
	cfg.Timeout = 3 * time.Second

	cc := cfg.ClientConfig()

	assert.Equal(t, "http://localhost:8080/graphql", cc.Endpoint)
	assert.Equal(t, DefaultUserAgent, cc.UserAgent)
	assert.Equal(t, time.Minute, cc.CacheTTL)
	assert.Equal(t, 3*time.Second, cc.Timeout)
	assert.Nil(t, cc.Redis)

	_, err := client.New(cc)
	assert.NoError(t, err)
}
