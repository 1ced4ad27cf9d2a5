package main

import (
	"log"

	approuters "Relay/internal/app_routers"
	"Relay/internal/configuration"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for CONFIG_PATH / RELAY_JWT_SECRET overrides
	_ = godotenv.Load()

	container, err := configuration.BuildContainer()
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	approuters.StartServer(container)
}
