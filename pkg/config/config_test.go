package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, "/api/v1", cfg.API.Prefix)
	assert.Zero(t, cfg.API.Timeout)
	assert.Equal(t, TokenStoreFile, cfg.TokenStore.Backend)
	assert.Equal(t, "token", cfg.TokenStore.Key)
	assert.Equal(t, 168*time.Hour, cfg.Export.TTL)
	assert.Equal(t, 30*time.Minute, cfg.Sandbox.JWTExpiration)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Sandbox.AllowedOrigins)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("API_BASE_URL", "https://cleanops.example.com/")
	v.Set("API_PREFIX", "api/v2/")
	v.Set("HTTP_TIMEOUT", "15s")
	v.Set("TOKEN_STORE", "REDIS")
	v.Set("EXPORT_TTL", "0")

	cfg := fromViper(v)

	assert.Equal(t, "https://cleanops.example.com", cfg.API.BaseURL)
	assert.Equal(t, "/api/v2", cfg.API.Prefix)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, TokenStoreRedis, cfg.TokenStore.Backend)
	assert.Zero(t, cfg.Export.TTL)
	assert.Equal(t, "https://cleanops.example.com/api/v2/my/reviews", cfg.API.APIURL("my/reviews"))
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
