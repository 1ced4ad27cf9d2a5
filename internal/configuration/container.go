package configuration

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"Relay/internal/auth"
	"Relay/internal/db"
	"Relay/internal/handler"
	"Relay/internal/hub"
	"Relay/internal/model"
	"Relay/internal/repo"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	Handler   handler.RealtimeHandler
	Validator auth.TokenValidator
	Hub       *hub.Hub
	Config    Config
	Logger    *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer() (*Container, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	con, err := db.OpenConnection(config.Mongo.Uri, config.Mongo.Database)
	if err != nil {
		return nil, err
	}

	logger, _ := zap.NewProduction()

	messageRepo := repo.NewMessageRepository(
		db.NewRepository[model.Message](con, config.Mongo.MessagesCollection),
		logger,
	)
	statusRepo := repo.NewStatusRepository(
		db.NewRepository[model.DeliveryStatus](con, config.Mongo.StatusesCollection),
		db.NewRepository[model.PresenceRecord](con, config.Mongo.PresenceCollection),
		db.NewRepository[model.InboxEntry](con, config.Mongo.InboxCollection),
		logger,
	)
	groupRepo := repo.NewGroupRepository(
		db.NewRepository[model.Group](con, config.Mongo.GroupsCollection),
	)
	taskRepo := repo.NewTaskRepository(
		db.NewRepository[model.Task](con, config.Mongo.TasksCollection),
	)

	validator := auth.NewJWTValidator(config.Auth.JwtSecret)

	realtimeHub := hub.NewHub(
		hub.Options{
			TypingExpiry:     time.Duration(config.Realtime.TypingExpiryMs) * time.Millisecond,
			PresenceDebounce: time.Duration(config.Realtime.PresenceDebounceMs) * time.Millisecond,
			AllowedOrigins:   config.Server.AllowedOrigins,
		},
		validator,
		messageRepo,
		statusRepo,
		groupRepo,
		taskRepo,
		logger,
	)

	realtimeHandler := handler.NewRealtimeHandler(messageRepo, statusRepo, realtimeHub)

	return &Container{
		Handler:     realtimeHandler,
		Validator:   validator,
		Hub:         realtimeHub,
		Config:      *config,
		Logger:      logger,
		mongoClient: con,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
