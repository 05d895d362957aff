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
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8085, c.App.Port)
	assert.Equal(t, "conversations", c.Mongo.ConversationsCollection)
	assert.Equal(t, 50, c.Conversation.PreviewLength)
	assert.Equal(t, 2*time.Second, c.Dwell)
	assert.Equal(t, 2*time.Second, c.FlushInterval)
	assert.Equal(t, 5*time.Minute, c.UnreadTTL)
	assert.False(t, c.App.Development())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	p := writeConfig(t, `
app:
  env: development
  port: 9000
mongodb:
  uri: mongodb://db:27017
  database: chat
jwt:
  algorithm: HS256
  hs_secret: s3cret
readreceipt:
  dwell_ms: 1500
kafka:
  brokers: ["k1:9092", "k2:9092"]
`)
	t.Setenv("MONGODB_DATABASE", "fromenv")
	t.Setenv("CONVERSATION_PREVIEW_LENGTH", "20")

	c, err := Load(p)
	require.NoError(t, err)
	assert.True(t, c.App.Development())
	assert.Equal(t, "9000", c.App.PortString())
	assert.Equal(t, "mongodb://db:27017", c.Mongo.URI)
	assert.Equal(t, "fromenv", c.Mongo.Database)
	assert.Equal(t, 20, c.Conversation.PreviewLength)
	assert.Equal(t, 1500*time.Millisecond, c.Dwell)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestLoadUsesConfigPathEnv(t *testing.T) {
	p := writeConfig(t, "app:\n  port: 7000\n")
	t.Setenv("CONFIG_PATH", p)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, c.App.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown jwt algorithm", "jwt:\n  algorithm: none\n"},
		{"hs256 without secret", "jwt:\n  algorithm: HS256\n"},
		{"http identity without url", "identity:\n  driver: http\n"},
		{"threshold out of range", "readreceipt:\n  visible_threshold: 1.5\n"},
		{"zero dwell", "readreceipt:\n  dwell_ms: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
