package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":              ":8088",
		"endpoint_addr_grpc":              "www.example:9000",
		"database_dsn":                    "habits.db",
		"redis_addr":                      "redis:6379",
		"jwt_issuer":                      "iss",
		"jwt_audience":                    "aud",
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "1m",
		"refresh_token_validity_duration": "3m",
		"login_cooldown_duration":         int64(2 * time.Minute),
		"max_login_attempts":              7,
		"cors_allowed_origins":            []string{"https://app.example"},
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-config", path})

		assert.Equal(t, ":8088", cfg.EndpointAddrHTTP)
		assert.Equal(t, "www.example:9000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "habits.db", cfg.DatabaseDSN)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "iss", cfg.JWTIssuer)
		assert.Equal(t, "aud", cfg.JWTAudience)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 1*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 3*time.Minute, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, 2*time.Minute, cfg.LoginCooldownDuration)
		assert.Equal(t, 7, cfg.MaxLoginAttempts)
		assert.Equal(t, []string{"https://app.example"}, cfg.CORSAllowedOrigins)
	})

	t.Run("short flag", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-c", path})
		assert.Equal(t, ":8088", cfg.EndpointAddrHTTP)
	})

	t.Run("no config flag leaves values untouched", func(t *testing.T) {
		cfg := &Config{
			EndpointAddrGRPC:            "defaults:1234",
			SecretKey:                   "key",
			AccessTokenValidityDuration: 2 * time.Minute,
		}
		parseJson(cfg, nil)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrGRPC)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"redis_addr": "r:1"})
		cfg := &Config{DatabaseDSN: "keep"}
		parseJson(cfg, []string{"-config", partial})

		assert.Equal(t, "r:1", cfg.RedisAddr)
		assert.Equal(t, "keep", cfg.DatabaseDSN)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg, []string{"-config", bad}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg, []string{"-config", filepath.Join(dir, "nope.json")}) })
	})
}
