package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ogasahara/employee-registry/internal/adapters/events"
	"github.com/ogasahara/employee-registry/internal/adapters/httpapi"
	"github.com/ogasahara/employee-registry/internal/adapters/repository/postgres"
	"github.com/ogasahara/employee-registry/internal/adapters/storage/local"
	"github.com/ogasahara/employee-registry/internal/core/employee"
	"github.com/ogasahara/employee-registry/internal/platform/config"
	pg "github.com/ogasahara/employee-registry/internal/platform/db/postgres"
	"github.com/ogasahara/employee-registry/internal/platform/server"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if os.Getenv("DEBUG") == "" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// .env はローカル開発用。無くてもエラーにしない。
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database pool")
	}
	defer dbPool.Close()

	artifactStore, err := local.NewStore(cfg.Storage.UploadDir, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize artifact store")
	}

	var publisher employee.EventPublisher
	if cfg.Kafka.Enabled() {
		syncProducer, err := events.NewSyncProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize kafka producer")
		}
		producer := events.NewProducer(syncProducer, events.Config{
			Topic:  cfg.Kafka.Topic,
			Source: "employee-registry",
		}, log.Logger)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close kafka producer")
			}
		}()
		publisher = producer
	}

	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	txManager := pg.NewTransactionManager(dbPool)
	employeeSvc := employee.NewService(employeeRepo, artifactStore, publisher, nil, txManager, log.Logger)

	api := httpapi.NewService(httpapi.Deps{
		Employees:  employeeSvc,
		UploadRoot: artifactStore.Root(),
		Logger:     log.Logger,
	})
	httpServer := server.New(cfg.Server.ListenAddr, api.Handler())

	log.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("http server listening")

	if err := httpServer.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}
