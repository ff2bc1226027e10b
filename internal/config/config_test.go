package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults fill missing keys", func(t *testing.T) {
		// Given: a config with only the log level
		path := writeConfig(t, "log-level: debug\n")

		// When: it is loaded
		conf, err := Load(path)

		// Then: everything else has its default
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "8080", conf.SocketPort)
		assert.Zero(t, conf.RoundTimeout)
		assert.Equal(t, int64(50), conf.HistoryLimit)
		assert.Equal(t, 24*time.Hour, conf.HistoryTTL)
		assert.False(t, conf.Redis.Enabled)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, 256, conf.WebSocket.SendBuffer)
		assert.Equal(t, int64(4096), conf.WebSocket.MaxMessageSize)
	})

	t.Run("File values and environment overrides", func(t *testing.T) {
		path := writeConfig(t, `
socket-port: "7000"
round-timeout: 30s
redis:
  enabled: true
  host: cache
websocket:
  send-buffer: 16
`)
		t.Setenv("REDIS_PORT", "6380")

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, "7000", conf.SocketPort)
		assert.Equal(t, 30*time.Second, conf.RoundTimeout)
		assert.True(t, conf.Redis.Enabled)
		assert.Equal(t, "cache:6380", conf.Redis.GetRedisAddr())
		assert.Equal(t, 16, conf.WebSocket.SendBuffer)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))

		require.Error(t, err)
		assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yml")) })
	})
}
