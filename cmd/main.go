package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"whisperlink/backend/internal/api/handler"
	"whisperlink/backend/internal/config"
	"whisperlink/backend/internal/dialogue"
	"whisperlink/backend/internal/localization"
	"whisperlink/backend/internal/models"
	"whisperlink/backend/internal/relay"
	"whisperlink/backend/internal/storage"
	"whisperlink/backend/internal/telegram"
)

func newLogger(debug bool) *zap.SugaredLogger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	return logger.Sugar()
}

func setupDependencies(cfg config.Config, logger *zap.SugaredLogger) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatalw("Failed to connect PostgreSQL", "err", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.RelayRecord{}); err != nil {
		logger.Fatalw("Failed to run migrations", "err", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.Fatalw("Failed to connect Redis", "err", err)
	}

	logger.Info("Database and Redis connections established, migrations complete")
	return db, rdb
}

// serveHTTP runs the server until it fails or ctx is cancelled, in which
// case it drains in-flight requests before returning. An orderly close is
// not an error.
func serveHTTP(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := newLogger(cfg.Debug)
	defer logger.Sync()

	db, rdb := setupDependencies(cfg, logger)
	store := storage.NewService(db, rdb, logger)

	localizer, err := localization.NewLocalizer()
	if err != nil {
		logger.Fatalw("Failed to load locales", "err", err)
	}

	bot, err := telegram.NewBotService(cfg.BotToken, localizer, cfg.Language, cfg.Debug, logger)
	if err != nil {
		logger.Fatalw("Failed to start Telegram bot", "err", err)
	}

	tracker := dialogue.NewTracker()
	orchestrator := relay.NewOrchestrator(store, tracker, bot, localizer, cfg.Language, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go bot.Run(ctx, orchestrator)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h := handler.NewHandler(store, bot.DeepLink, logger)
	r.GET("/healthz", h.Health)
	r.GET("/qr/:code", h.ShareQR)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logger.Infow("Starting HTTP server", "addr", cfg.HTTPAddr)
	if err := serveHTTP(ctx, server); err != nil {
		logger.Fatalw("HTTP server failed", "err", err)
	}
	logger.Info("Shutdown complete")
}
