package configuration

import (
	"encoding/json"
	"os"
)

type MongoConfig struct {
	Uri                string `json:"uri"`
	Database           string `json:"database"`
	MessagesCollection string `json:"messagesCollection"`
	StatusesCollection string `json:"statusesCollection"`
	PresenceCollection string `json:"presenceCollection"`
	InboxCollection    string `json:"inboxCollection"`
	GroupsCollection   string `json:"groupsCollection"`
	TasksCollection    string `json:"tasksCollection"`
}

type ServerConfig struct {
	AppPort        int      `json:"app_port"`
	SocketPort     int      `json:"socket_port"`
	SocketRoute    string   `json:"socket_route"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// RealtimeConfig holds the engine's tunables. Typing signals expire after
// typingExpiryMs of quiescence; presence flaps within presenceDebounceMs
// coalesce into one broadcast.
type RealtimeConfig struct {
	TypingExpiryMs     int `json:"typingExpiryMs"`
	PresenceDebounceMs int `json:"presenceDebounceMs"`
}

type AuthConfig struct {
	JwtSecret string `json:"jwtSecret"`
}

type Config struct {
	Mongo    MongoConfig    `json:"mongo"`
	Server   ServerConfig   `json:"server"`
	Realtime RealtimeConfig `json:"realtime"`
	Auth     AuthConfig     `json:"auth"`
}

func LoadConfig(configPath string) (*Config, error) {
	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Realtime.TypingExpiryMs <= 0 {
		c.Realtime.TypingExpiryMs = 3000
	}
	if c.Realtime.PresenceDebounceMs <= 0 {
		c.Realtime.PresenceDebounceMs = 1000
	}
	if c.Server.SocketRoute == "" {
		c.Server.SocketRoute = "ws"
	}
	if c.Mongo.MessagesCollection == "" {
		c.Mongo.MessagesCollection = "messages"
	}
	if c.Mongo.StatusesCollection == "" {
		c.Mongo.StatusesCollection = "delivery_statuses"
	}
	if c.Mongo.PresenceCollection == "" {
		c.Mongo.PresenceCollection = "user_statuses"
	}
	if c.Mongo.InboxCollection == "" {
		c.Mongo.InboxCollection = "conversation_participants"
	}
	if c.Mongo.GroupsCollection == "" {
		c.Mongo.GroupsCollection = "group_chats"
	}
	if c.Mongo.TasksCollection == "" {
		c.Mongo.TasksCollection = "tasks"
	}
	if secret := os.Getenv("RELAY_JWT_SECRET"); secret != "" {
		c.Auth.JwtSecret = secret
	}
}
