package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/hexfront/internal/auth"
	"github.com/freeeve/hexfront/internal/config"
	"github.com/freeeve/hexfront/internal/handler"
	"github.com/freeeve/hexfront/internal/logger"
	"github.com/freeeve/hexfront/internal/repository"
	redisrepo "github.com/freeeve/hexfront/internal/repository/redis"
	"github.com/freeeve/hexfront/internal/repository/sqlrepo"
	"github.com/freeeve/hexfront/internal/service"
	"github.com/freeeve/hexfront/pkg/hexgame"
)

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "Optional config file (json, yaml or toml)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Init(logger.Options{})
		log.Fatal().Err(err).Msg("Config load failed")
	}
	logger.Init(logger.Options{Dev: cfg.DevMode})
	log.Info().Bool("postgres", repository.IsPostgresURL(cfg.DatabaseURL)).
		Str("movement", cfg.MovementMode).Dur("turnTimeout", cfg.TurnTimeout).Msg("Config loaded")

	// Database
	db, err := repository.OpenDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()

	// Redis is optional: without it games are not recovered after a restart
	// and turn deadlines rely on the poller.
	var cache repository.GameCache
	var redisClient *redisrepo.Client
	if cfg.RedisURL != "" {
		redisClient, err = redisrepo.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer redisClient.Close()
		cache = redisClient

		// Enable Redis keyspace notifications for timer expiry events.
		if err := redisClient.Underlying().ConfigSet(context.Background(), "notify-keyspace-events", "Ex").Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (timer expiry may not work)")
		}
	}

	// Repos
	userRepo := sqlrepo.NewUserRepo(db)
	gameRepo := sqlrepo.NewGameRepo(db)
	historyRepo := sqlrepo.NewHistoryRepo(db)

	// Auth
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	googleOAuth := auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)

	// WebSocket hub
	wsHub := handler.NewHub()

	// Services
	gameSvc := service.NewGameService(gameRepo, historyRepo, cache, wsHub, service.Options{
		AIDelay:       cfg.AIDelay,
		AnimationTime: cfg.AnimationTime,
		TurnTimeout:   cfg.TurnTimeout,
		Movement:      hexgame.ParseMovementMode(cfg.MovementMode),
	})
	defer gameSvc.Close()

	var timerListener *service.TimerListener
	if redisClient != nil {
		timerListener = service.NewTimerListener(redisClient.Underlying(), gameSvc)
	} else {
		timerListener = service.NewTimerListener(nil, gameSvc)
	}

	root := handler.NewRouter(handler.Routes{
		Auth:        handler.NewAuthHandler(googleOAuth, jwtMgr, userRepo, cfg.DevMode),
		Users:       handler.NewUserHandler(userRepo),
		Games:       handler.NewGameHandler(gameSvc),
		WS:          handler.NewWSHandler(wsHub, jwtMgr, gameSvc),
		JWT:         jwtMgr,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Rebuild live sessions from cached snapshots after a restart
	if err := gameSvc.RecoverActiveGames(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to recover active games (non-fatal)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timerListener.Start(ctx)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server stopped")
}
