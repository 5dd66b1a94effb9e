package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/harborhq/harbor/internal/auth"
	"github.com/harborhq/harbor/internal/config"
	"github.com/harborhq/harbor/internal/database"
	"github.com/harborhq/harbor/internal/handler"
	"github.com/harborhq/harbor/internal/middleware"
	"github.com/harborhq/harbor/internal/queue"
	"github.com/harborhq/harbor/internal/repository"
	"github.com/harborhq/harbor/internal/router"
	"github.com/harborhq/harbor/internal/service"
)

func main() {
	_ = godotenv.Load() // best-effort; real deployments set env directly

	cfg := config.Load()

	db, err := database.Open(database.Config{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	docs := repository.NewDocumentRepo(db)
	conns := repository.NewConnectionRepo(db)

	authCfg := auth.Config{
		AccessSecret:  []byte(cfg.AccessSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		AccessTTL:     time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL:    time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
	}
	issuer := auth.NewIssuer(authCfg)
	verifier := auth.NewVerifier(authCfg)
	rotator := auth.NewRotator(verifier, issuer, users)

	publisher := service.NewPublisher()
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	authHandler := handler.NewAuthHandler(cfg, users, issuer, verifier, rotator, publisher)
	docHandler := handler.NewDocumentHandler(docs)
	connHandler := handler.NewConnectionHandler(conns, cfg.EncryptionKey)
	adminHandler := handler.NewAdminHandler(users)

	e := echo.New()
	e.HideBanner = true

	rdb := config.NewRedisClient()

	var authLimiter echo.MiddlewareFunc
	if rl := config.LoadRateLimitConfig(); rl.Enabled && rdb != nil {
		authLimiter = middleware.NewTokenBucket(rl, rdb)
	}
	var cacheGET echo.MiddlewareFunc
	if cc := config.LoadCacheConfig(); cc.Enabled && rdb != nil {
		cacheGET = middleware.NewRedisCache(cc, rdb)
	}

	router.RegisterRoutes(e)
	if authLimiter != nil {
		router.RegisterAuth(e, authHandler, authLimiter)
	} else {
		router.RegisterAuth(e, authHandler)
	}
	router.RegisterWorkspace(e, authHandler, docHandler, connHandler, cacheGET)
	router.RegisterAdmin(e, authHandler, adminHandler)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
