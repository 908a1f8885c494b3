package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/loyalty-api/internal/config"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/database"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	db, err := database.NewPostgres(cfg.DatabaseURL, database.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Strs("applied", applied).Msg("Migration failed")
	}
	if len(applied) == 0 {
		log.Info().Msg("Schema is up to date")
		return
	}
	log.Info().Strs("applied", applied).Msg("Migrations applied")
}
