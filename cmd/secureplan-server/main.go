package main

import (
	"log"
	"os"

	"github.com/existflow/secureplan/internal/config"
	"github.com/existflow/secureplan/internal/logger"
	"github.com/existflow/secureplan/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Container-style overrides
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DBDriver = "postgres"
		cfg.DBDSN = dbURL
	}

	if err := logger.Init(logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		FilePath:   cfg.LogFile,
		MaxSize:    10 * 1024 * 1024,
		MaxAge:     7,
		MaxBackups: 5,
		Console:    true,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	srv, err := server.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("Error closing server: %v", err)
		}
	}()

	log.Printf("SecurePlan server starting on %s", cfg.Addr)
	if err := srv.Start(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
