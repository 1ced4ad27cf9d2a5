package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"mongo": {"uri": "mongodb://localhost:27017", "database": "relay"},
		"server": {"app_port": 8080, "socket_port": 8081, "allowed_origins": ["http://localhost:3000"]},
		"realtime": {"typingExpiryMs": 5000, "presenceDebounceMs": 250},
		"auth": {"jwtSecret": "file-secret"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.Uri)
	assert.Equal(t, "relay", cfg.Mongo.Database)
	assert.Equal(t, 8080, cfg.Server.AppPort)
	assert.Equal(t, 5000, cfg.Realtime.TypingExpiryMs)
	assert.Equal(t, 250, cfg.Realtime.PresenceDebounceMs)
	assert.Equal(t, "file-secret", cfg.Auth.JwtSecret)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"mongo": {"uri": "mongodb://localhost:27017", "database": "relay"},
		"server": {"app_port": 8080, "socket_port": 8081}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Realtime.TypingExpiryMs)
	assert.Equal(t, 1000, cfg.Realtime.PresenceDebounceMs)
	assert.Equal(t, "ws", cfg.Server.SocketRoute)
	assert.Equal(t, "messages", cfg.Mongo.MessagesCollection)
	assert.Equal(t, "delivery_statuses", cfg.Mongo.StatusesCollection)
	assert.Equal(t, "user_statuses", cfg.Mongo.PresenceCollection)
	assert.Equal(t, "conversation_participants", cfg.Mongo.InboxCollection)
	assert.Equal(t, "group_chats", cfg.Mongo.GroupsCollection)
	assert.Equal(t, "tasks", cfg.Mongo.TasksCollection)
}

func TestJwtSecretEnvOverride(t *testing.T) {
	t.Setenv("RELAY_JWT_SECRET", "env-secret")

	path := writeConfig(t, `{
		"mongo": {"uri": "mongodb://localhost:27017", "database": "relay"},
		"auth": {"jwtSecret": "file-secret"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.JwtSecret)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := writeConfig(t, `{"mongo": `)
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
