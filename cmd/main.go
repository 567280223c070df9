package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"journal-service/internal/config"
	"journal-service/internal/events"
	"journal-service/internal/server"
	"journal-service/internal/session"
	"journal-service/internal/storage/memstore"
	"journal-service/internal/storage/mongostore"
	"journal-service/internal/storage/pgstore"
	"journal-service/internal/trips"
	"journal-service/internal/users"
	"journal-service/migrations"
	"journal-service/pkg/db"
	"journal-service/pkg/jwt"
	"journal-service/pkg/kafka"
	"journal-service/pkg/logger"
	"journal-service/pkg/mongodb"
	rredis "journal-service/pkg/redis"
)

const connectAttempts = 30

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	// ── 1. Config + logger ──
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("journal-service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	// Cancelled on SIGINT/SIGTERM, which also stops connect retries below.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SecretKey == config.DefaultSecret && cfg.Production() {
		log.Warn("SECRET_KEY is the development default")
	}

	// ── 2. Storage ──
	var (
		userRepo users.Repository
		tripRepo trips.Repository
	)
	switch cfg.StorageBackend {
	case "mongo":
		mc, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, connectAttempts, log)
		if err != nil {
			return err
		}
		defer mc.Close(context.Background())
		if err := mongostore.EnsureIndexes(ctx, mc.Database()); err != nil {
			return err
		}
		userRepo, tripRepo = mongostore.NewUsers(mc.Database()), mongostore.NewTrips(mc.Database())

	case "postgres":
		database, err := db.Connect(ctx, cfg.DatabaseURL, connectAttempts, log)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.RunMigrations(ctx, migrations.FS); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		userRepo, tripRepo = pgstore.NewUsers(database.Pool), pgstore.NewTrips(database.Pool)

	case "memory":
		log.Warn("using in-memory storage, data is lost on restart")
		userRepo, tripRepo = memstore.NewUsers(), memstore.NewTrips()
	}

	// ── 3. Sessions ──
	var store session.Store = session.NewMemoryStore()
	if cfg.SessionBackend == "redis" {
		redisClient, err := rredis.NewClient(ctx, cfg.RedisAddr, connectAttempts, log)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		store = session.NewRedisStore(redisClient)
	}
	signer, err := jwt.NewSigner(cfg.SecretKey)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, signer, session.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.CookieSecure,
		TTL:    cfg.SessionTTL,
	}, log)

	// ── 4. Kafka ──
	var publisher events.Publisher = events.Nop{Log: log}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaClient := kafka.NewClient(cfg.KafkaBrokers, log)
		defer kafkaClient.Close()
		if err := kafkaClient.EnsureTopics(ctx, connectAttempts,
			kafka.TopicTripAdded,
			kafka.TopicTripsImported,
		); err != nil {
			return err
		}
		publisher = kafkaClient
	}

	// ── 5. Services + handlers ──
	userSvc := users.NewService(userRepo, 0, log)
	tripSvc := trips.NewService(tripRepo, publisher, log)

	// ── 6. HTTP router ──
	r := server.NewRouter(server.Deps{
		Users:       users.NewHandler(userSvc, sessions, log),
		Trips:       trips.NewHandler(tripSvc, sessions, cfg.BulkMaxBytes, log),
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})

	// ── 7. Start server ──
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("journal-service listening",
			zap.String("port", cfg.Port),
			zap.String("storage", cfg.StorageBackend),
			zap.String("sessions", cfg.SessionBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 8. Graceful shutdown ──
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	return srv.Shutdown(shutCtx)
}
