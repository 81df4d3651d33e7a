package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults fill missing fields", func(t *testing.T) {
		// Given: a config file that only sets the log level
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("log-level: debug\n"), 0o600))

		// When: it is loaded
		conf, err := Load(path)
		require.NoError(t, err)

		// Then: everything else carries its default
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "1000", conf.Relay.Port)
		assert.Equal(t, 5*time.Second, conf.Relay.WriteTimeout)
		assert.Equal(t, 4096, conf.Relay.MaxPayload)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Empty(t, conf.WebSocketPort)
		assert.False(t, conf.Redis.Enabled())
	})

	t.Run("File values", func(t *testing.T) {
		// Given: a full config file
		path := filepath.Join(t.TempDir(), "config.yml")
		content := `
relay:
  host: 127.0.0.1
  port: "5050"
  write-timeout: 2s
  max-payload: 128
websocket-port: "8081"
redis:
  host: redis
  channel: games
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		// When: it is loaded
		conf, err := Load(path)
		require.NoError(t, err)

		// Then: the values are taken from the file
		assert.Equal(t, "127.0.0.1:5050", conf.Relay.GetAddr())
		assert.Equal(t, 2*time.Second, conf.Relay.WriteTimeout)
		assert.Equal(t, 128, conf.Relay.MaxPayload)
		assert.Equal(t, "8081", conf.WebSocketPort)
		assert.True(t, conf.Redis.Enabled())
		assert.Equal(t, "redis:6379", conf.Redis.GetRedisAddr())
		assert.Equal(t, "games", conf.Redis.Channel)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		require.Error(t, err)

		assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yml")) })
	})

	t.Run("Environment only", func(t *testing.T) {
		t.Setenv("RELAY_PORT", "7070")

		conf, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, ":7070", conf.Relay.GetAddr())
	})
}
