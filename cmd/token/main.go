// Command token mints bearer tokens for API clients using the configured JWT secret.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sechic/backend/internal/infrastructure/auth"
	"github.com/sechic/backend/internal/infrastructure/config"
	"github.com/sechic/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		subject  string
		username string
		ttl      time.Duration
	)
	flag.StringVar(&subject, "subject", "", "Token subject (defaults to a random UUID)")
	flag.StringVar(&username, "username", "", "Display name recorded on markup history and refreshes")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if subject == "" {
		subject = uuid.NewString()
	}

	token, expiresAt, err := auth.NewJWTService(cfg.JWT).GenerateToken(subject, username, ttl)
	if err != nil {
		log.Fatal("Failed to generate token", zap.Error(err))
	}
	log.Info("Token issued",
		zap.String("subject", subject),
		zap.String("username", username),
		zap.Time("expires_at", expiresAt),
	)
	fmt.Println(token)
}
