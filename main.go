package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"eproba-editor/api"
	"eproba-editor/config"
	"eproba-editor/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	logger.SetLevel(log.GetLevel())
	logger.SetFormatter(&log.JSONFormatter{})

	redisOpts, err := cfg.Redis.RedisOptions()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	rc := redis.NewClient(redisOpts)
	defer rc.Close()

	base, closeStore := openStorage(cfg.Storage)
	defer closeStore()
	store := storage.NewCache(base, rc, cfg.Redis.DraftCacheTTL.D())
	deduper := api.NewRedisDeduper(rc, cfg.Redis.DeduperTTL.D())

	var auth *api.Auth
	if cfg.Auth.TestMode {
		issuer := ""
		if cfg.Auth.Domain != "" {
			issuer = cfg.Auth.Issuer()
		}
		auth = api.NewTestAuth([]byte(cfg.Auth.TestSecret), cfg.Auth.Audience, issuer)
	} else {
		jwks, err := keyfunc.Get(cfg.Auth.JWKSURL(), keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
		})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		defer jwks.EndBackground()
		auth = api.NewAuth(jwks, cfg.Auth.Audience, cfg.Auth.Issuer(), cfg.Auth.JWKSCacheTTL.D())
	}

	sender := api.NewSubmissionSender(store, deduper, logger, api.SenderOptions{
		Workers:        cfg.Submit.Workers,
		Buffer:         cfg.Submit.Buffer,
		Timeout:        cfg.Submit.Timeout.D(),
		HandoffTimeout: cfg.Submit.HandoffTimeout.D(),
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.Decompress())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	if cfg.Debug {
		pprof.Register(e)
	}

	api.Register(e, store, auth, deduper, sender, logger, api.Options{
		DefaultTasksPerCategory: cfg.DefaultTasksPerCategory,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	sender.Close()
}

// openStorage returns the configured draft backend and its close function.
func openStorage(cfg config.StorageConfig) (api.Storage, func()) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		return db, func() {
			if err := db.Close(); err != nil {
				log.Errorf("close sqlite: %v", err)
			}
		}
	default:
		st, err := storage.New(cfg.ConnectionString, cfg.DraftsTable, cfg.SubmissionQueue)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		return st, func() {}
	}
}
