package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/loyaltyhub/loyalty-api/internal/config"
	"github.com/loyaltyhub/loyalty-api/internal/domain/customer"
	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
	"github.com/loyaltyhub/loyalty-api/internal/domain/statement"
	"github.com/loyaltyhub/loyalty-api/internal/domain/voucher"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/apikey"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/crm"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/database"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/jwt"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/logger"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("ledger_store", cfg.LedgerStore).
		Str("customer_directory", cfg.CustomerDirectory).
		Msg("Starting loyalty API")

	var db *sqlx.DB
	if cfg.LedgerStore == config.StorePostgres {
		var err error
		db, err = database.NewPostgres(cfg.DatabaseURL, database.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer database.ClosePostgres(db)

		if cfg.MigrateOnStart {
			applied, err := database.Migrate(context.Background(), db)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to apply migrations")
			}
			log.Info().Strs("applied", applied).Msg("Migrations applied")
		}
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	verifier, err := apikey.NewVerifier(cfg.AdminAPIKeyHash)
	if err != nil {
		log.Warn().Err(err).Msg("Admin API disabled")
	}

	// ---------- Repositories ----------
	var (
		restaurantRepo restaurant.Repository
		ledgerStore    ledger.Store
		voucherRepo    voucher.Repository
	)
	if db != nil {
		restaurantRepo = restaurant.NewRepository(db)
		ledgerStore = ledger.NewRepository(db)
		voucherRepo = voucher.NewRepository(db)
	} else {
		restaurantRepo = restaurant.NewMemoryRepository()
		ledgerStore = ledger.NewMemoryStore()
		voucherRepo = voucher.NewMemoryRepository()
	}

	customerDir := newCustomerDirectory(cfg, db)

	statementStore, err := newStatementStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create statement storage")
	}

	// ---------- Services ----------
	restaurants := restaurant.NewCachedDirectory(restaurantRepo, redis, cfg.RestaurantCacheTTL)
	ledgerService := ledger.NewService(ledgerStore, restaurants, customerDir)
	voucherService := voucher.NewService(ledgerService, restaurants, voucherRepo)

	// ---------- Handlers ----------
	router := newRouter(handlers{
		ledger:     ledger.NewHandler(ledgerService, restaurants),
		restaurant: restaurant.NewHandler(restaurant.NewService(restaurantRepo, restaurants)),
		customer:   customer.NewHandler(customer.NewService(customerDir, restaurants)),
		voucher:    voucher.NewHandler(voucherService),
		statement:  statement.NewHandler(statement.NewExporter(ledgerService, statementStore)),
	}, jwtService, verifier, cfg.AllowedOrigins)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// newCustomerDirectory picks the customer source. The local directory lives
// next to the ledger: in Postgres, or in memory when no database is used.
func newCustomerDirectory(cfg *config.Config, db *sqlx.DB) customer.Directory {
	switch {
	case cfg.CustomerDirectory == config.DirectoryCRM:
		client := crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIKey, time.Duration(cfg.CRMTimeoutSeconds)*time.Second)
		return customer.NewCRMDirectory(client)
	case db == nil:
		return customer.NewMemoryDirectory()
	default:
		return customer.NewRepository(db)
	}
}

func newStatementStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StatementS3Bucket != "" {
		return storage.NewS3Storage(context.Background(), storage.S3Config{
			Endpoint:  cfg.StatementS3Endpoint,
			Region:    cfg.StatementS3Region,
			Bucket:    cfg.StatementS3Bucket,
			AccessKey: cfg.StatementS3AccessKey,
			SecretKey: cfg.StatementS3SecretKey,
			PublicURL: cfg.StatementS3PublicURL,
		})
	}
	log.Warn().Str("dir", cfg.StatementLocalDir).Msg("STATEMENT_S3_BUCKET not set, writing statements to local disk")
	return storage.NewLocalStorage(cfg.StatementLocalDir, cfg.StatementLocalURL)
}
