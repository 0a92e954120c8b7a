// cmd/portal-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"comms-portal/internal/approval"
	"comms-portal/internal/common/auth"
	"comms-portal/internal/common/aws"
	"comms-portal/internal/common/config"
	"comms-portal/internal/common/database"
	"comms-portal/internal/common/logger"
	"comms-portal/internal/common/observability"
	"comms-portal/internal/intake"
	"comms-portal/internal/ministry"
	"comms-portal/internal/notify"
	"comms-portal/internal/search"
	"comms-portal/internal/server"
	"comms-portal/internal/submission"
	"comms-portal/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting portal server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) with retry ---
	var searchIndex *search.Index
	if cfg.Database.Elasticsearch.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		searchIndex = search.New(esClient.Client, cfg.Database.Elasticsearch.Index, cfg.Search.MaxResults, log)
		zapLog.Info("Elasticsearch connected successfully")
	} else {
		zapLog.Info("Elasticsearch disabled, admin search unavailable")
	}

	// --- Init AWS notification clients ---
	sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client init failed", zap.Error(err))
	}
	snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}

	templates, err := registry.LoadRegistry(cfg.Notifications.TemplateRegistryPath)
	if err != nil {
		zapLog.Fatal("template registry load failed", zap.Error(err))
	}

	keycloak := auth.NewKeycloakClient(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
	)

	// --- Assemble the workflow ---
	directory := ministry.NewDirectory(pg.DB, rdb.Client, time.Duration(cfg.Directory.CacheTTL)*time.Second, log)
	router := approval.NewRouter(directory, log)
	store := submission.NewStore(pg.DB, log)
	sender := notify.NewSender(notify.Config{
		EmailEnabled: cfg.Notifications.Email.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
		FromEmail:    cfg.Notifications.Email.FromEmail,
	}, pg.DB, sesClient, snsClient, templates, log)

	var indexer approval.Indexer
	if searchIndex != nil {
		indexer = searchIndex
	}
	engine := approval.NewEngine(store, sender, indexer, log)

	var intakeIndexer intake.Indexer
	if searchIndex != nil {
		intakeIndexer = searchIndex
	}
	intakeService := intake.NewService(router, store, sender, intakeIndexer, log)

	srv := server.New(cfg.HTTP, server.Deps{
		Intake:    intakeService,
		Directory: directory,
		Engine:    engine,
		Search:    searchIndex,
		Auth:      keycloak,
		DB:        pg.DB,
		Redis:     rdb.Client,
		Obs:       obs,
		Logger:    log,
	})

	// --- Metrics Server ---
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Metrics server listening", zap.String("address", cfg.HTTP.MetricsAddress))
		if err := http.ListenAndServe(cfg.HTTP.MetricsAddress, mux); err != nil {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- HTTP Server ---
	go func() {
		if err := srv.Listen(cfg.HTTP.Address); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	if err := srv.Shutdown(); err != nil {
		zapLog.Error("Error shutting down http server", zap.Error(err))
	}

	zapLog.Info("Portal server stopped gracefully")
}
