package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/texttalk/config"
	"github.com/yoockh/texttalk/internal/api/handlers"
	"github.com/yoockh/texttalk/internal/api/middleware"
	"github.com/yoockh/texttalk/internal/api/routes"
	"github.com/yoockh/texttalk/internal/cache"
	"github.com/yoockh/texttalk/internal/logger"
	"github.com/yoockh/texttalk/internal/providers/identity"
	"github.com/yoockh/texttalk/internal/providers/tts"
	mongorepo "github.com/yoockh/texttalk/internal/repositories/mongo"
	pgrepo "github.com/yoockh/texttalk/internal/repositories/postgres"
	"github.com/yoockh/texttalk/internal/services"
	"github.com/yoockh/texttalk/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logger.New(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, closeRecords := mustRecordStore(cfg, log)
	defer closeRecords()

	var sessions cache.Cache
	if config.RedisConfigured() {
		if err := config.InitRedis(); err != nil {
			log.WithError(err).Fatal("redis init")
		}
		defer config.RedisClient.Close()
		sessions = cache.NewRedisCache(config.RedisClient, cfg.CacheKeyPrefix)
		log.Info("redis connected")
	} else {
		sessions = cache.NewMemoryCache()
		log.Warn("REDIS_ADDR not set; sessions are kept in process memory")
	}

	var backend services.ConversionBackend = tts.NewHTTPBackend(cfg.TTS.BackendURL, nil)
	if cfg.GCS.Bucket != "" {
		signer, err := storage.NewGCSSigner(ctx, cfg.GCS.Bucket, cfg.GCS.CredentialsFile)
		if err != nil {
			log.WithError(err).Fatal("gcs signer init")
		}
		defer signer.Close()
		backend = tts.WithSigner(backend, signer, storage.SignOptions{TTL: cfg.GCS.SignTTL})
	}

	auth := identity.NewClient(identity.Config{
		URL:        cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		JWTSecret:  cfg.Supabase.JWTSecret,
		SessionTTL: cfg.Supabase.SessionTTL,
	}, sessions, log)

	registry := services.NewWorkspaceRegistry(services.WorkspaceDeps{
		Backend: backend,
		Records: records,
		Logger:  log,
	}, func(clientID string) services.IdentityProvider {
		return auth.ForClient(clientID)
	})
	defer registry.Close()
	go registry.Run(ctx, cfg.Client.SweepEvery, cfg.Client.IdleTimeout)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Workspaces: registry,
		Cookie: middleware.ClientCookie{
			Name:   cfg.Client.CookieName,
			Secure: cfg.Client.CookieSecure,
			MaxAge: cfg.Supabase.SessionTTL,
		},
		Auth:    handlers.NewAuthHandler(),
		Convert: handlers.NewConvertHandler(),
		History: handlers.NewHistoryHandler(),
		View:    handlers.NewViewHandler(),
		WS:      handlers.NewWSHandler(nil, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
}

func mustRecordStore(cfg *config.Settings, log *logrus.Logger) (services.OwnedRecordRepo, func()) {
	switch cfg.Records.Backend {
	case "mongo":
		if err := config.InitMongo(); err != nil {
			log.WithError(err).Fatal("mongo init")
		}
		if err := config.EnsureMongoIndexes(cfg.Records.MongoDB); err != nil {
			log.WithError(err).Warn("mongo indexes")
		}
		log.Info("mongo connected")
		return mongorepo.NewConversionRepo(config.MongoClient.Database(cfg.Records.MongoDB)), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = config.CloseMongo(ctx)
		}
	default:
		if err := config.InitPostgres(); err != nil {
			log.WithError(err).Fatal("postgres init")
		}
		if cfg.Records.AutoMigrate {
			if err := config.MigratePostgres(); err != nil {
				log.WithError(err).Fatal("postgres migrate")
			}
		}
		log.Info("postgres connected")
		return pgrepo.NewConversionRepo(config.PostgresDB), func() { _ = config.ClosePostgres() }
	}
}
