package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	httpapi "github.com/hostelhub/hostelchat/internal/api/http"
	"github.com/hostelhub/hostelchat/internal/config"
	"github.com/hostelhub/hostelchat/internal/repository"
	"github.com/hostelhub/hostelchat/internal/repository/model"
	"github.com/hostelhub/hostelchat/internal/service"
	"github.com/hostelhub/hostelchat/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	db, err := connectDatabase(cfg.Database)
	if err != nil {
		log.Error("failed to connect database", slog.Any("error", err))
		os.Exit(1)
	}

	chatRepo := repository.NewGormChatRoomRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)

	stateRepo, err := connectRoomState(cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect redis", slog.Any("error", err))
		os.Exit(1)
	}

	roomService := service.NewRoomService(messageRepo, stateRepo, log, cfg.Chat.MaxMessageLength)
	historyService := service.NewHistoryService(messageRepo, chatRepo, log, cfg.Chat.PageSize)

	chatController := httpapi.NewChatController(roomService, historyService, log)

	router := httpapi.SetupRouter(chatController, cfg.Auth.JWTSecret)

	log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
	if err := router.Run(cfg.HTTP.Address); err != nil {
		log.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, errors.New("unsupported database driver: " + cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(&model.ChatRoom{}, &model.Message{})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

func connectRoomState(cfg config.RedisConfig, log *slog.Logger) (repository.RoomStateRepository, error) {
	if cfg.Addr == "" {
		log.Info("no redis address configured, using in-memory room state")
		return repository.NewInMemoryRoomStateRepository(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return repository.NewRedisRoomStateRepository(ctx, cfg.Addr)
}
