package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/riftline/tournament-engine/brackets"
	"github.com/riftline/tournament-engine/config"
	"github.com/riftline/tournament-engine/db"
	"github.com/riftline/tournament-engine/handlers"
	"github.com/riftline/tournament-engine/repositories"
	api "github.com/riftline/tournament-engine/routes"
	"github.com/riftline/tournament-engine/services"
	"github.com/riftline/tournament-engine/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn, cfg.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema up to date")

	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("banner storage not configured, uploads disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	logRepo := repositories.NewPostgresLogRepository(dbConn)

	txRunner := services.NewTxRunner(dbConn)

	tournamentService := services.NewTournamentService(tournamentRepo, participantRepo, bracketRepo, matchRepo, txRunner, uploader, logger)
	lifecycleService := services.NewLifecycleService(tournamentRepo, participantRepo, bracketRepo, matchRepo, txRunner, logRepo, wsHub, logger)
	seedingService := services.NewSeedingService(tournamentRepo, participantRepo, bracketRepo, matchRepo, txRunner, logRepo, logger)
	bracketService := services.NewBracketService(tournamentRepo, participantRepo, bracketRepo, matchRepo, txRunner, logRepo, wsHub, logger)
	swissService := services.NewSwissService(tournamentRepo, participantRepo, matchRepo, txRunner, logRepo, wsHub, logger)
	matchService := services.NewMatchService(tournamentRepo, participantRepo, matchRepo, txRunner, logRepo, wsHub, logger)
	roundService := services.NewRoundControlService(tournamentRepo, participantRepo, bracketRepo, matchRepo, txRunner, logRepo, wsHub, logger)
	logger.Info("services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService, logRepo),
		Lifecycle:  handlers.NewLifecycleHandler(lifecycleService),
		Seeding:    handlers.NewSeedingHandler(seedingService),
		Bracket:    handlers.NewBracketHandler(bracketService),
		Swiss:      handlers.NewSwissHandler(swissService),
		Round:      handlers.NewRoundHandler(roundService),
		Match:      handlers.NewMatchHandler(matchService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, tournamentService),
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if err := server.Close(); err != nil {
				logger.Error("forced close failed", slog.Any("error", err))
			}
		} else {
			logger.Info("server shut down gracefully")
		}
	}
}
