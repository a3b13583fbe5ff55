package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pong_server/internal/config"
	"pong_server/internal/db"
	"pong_server/internal/game"
	httpServer "pong_server/internal/http"
	"pong_server/internal/http/handlers"
	"pong_server/internal/http/middleware"
	"pong_server/internal/logger"
	"pong_server/internal/repository"
	"pong_server/internal/service"
	"pong_server/internal/tournament"
	"pong_server/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "pong-server",
		Usage:   "real-time pong rooms, matchmaking and tournaments",
		Version: Version,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the game server (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create the match history schema",
				Action: migrate,
			},
			{
				Name:  "token",
				Usage: "mint a bearer token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: mintToken,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal("command failed", "error", err)
	}
}

func setup() config.Config {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	return cfg
}

func serve(c *cli.Context) error {
	cfg := setup()
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UsesDevSecret() {
		log.Warn("JWT_SECRET not set, tokens are signed with the dev secret")
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// без DATABASE_URL результаты только логируются
	var (
		store service.MatchStore
		stats handlers.StatsReader
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		repo := repository.NewMatchRepository(pool)
		store, stats = repo, repo
	} else {
		log.Warn("DATABASE_URL not set, match results are log-only")
	}

	results := service.NewResultService(store)
	auth := service.NewAuthenticator(cfg.JWTSecret)

	hub := ws.NewHub(game.DefaultConfig(), results)
	cup := tournament.New(hub.Locker(), hub, results)
	hub.SetMatchListener(cup)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		hub.Run(loopCtx)
	}()

	sweeper, err := hub.StartSweeper(ws.SweepInterval)
	if err != nil {
		stopLoop()
		return err
	}

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	httpServer.RegisterRoutes(r, httpServer.Deps{
		WS:                   ws.NewHandler(hub, cup, auth, cfg.AllowedOrigin),
		Stats:                handlers.NewStatsHandler(stats),
		AllowedOrigin:        cfg.AllowedOrigin,
		ConnectRatePerMinute: cfg.ConnectRatePerMinute,
		Version:              Version,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	if err := sweeper.Shutdown(); err != nil {
		log.Warn("sweeper shutdown", "error", err)
	}
	stopLoop()
	<-loopDone
	results.Wait()

	log.Info("server exited")
	return nil
}

func migrate(c *cli.Context) error {
	cfg := setup()
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	pool, err := db.Connect(c.Context, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(c.Context, pool); err != nil {
		return err
	}
	logger.Info("schema up to date")
	return nil
}

func mintToken(c *cli.Context) error {
	cfg := setup()
	token, err := service.NewAuthenticator(cfg.JWTSecret).Issue(c.String("user"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}
