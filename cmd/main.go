package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/svleague/swiss-system/config"
	"github.com/svleague/swiss-system/db"
	"github.com/svleague/swiss-system/handlers"
	"github.com/svleague/swiss-system/live"
	"github.com/svleague/swiss-system/repositories"
	api "github.com/svleague/swiss-system/routes"
	"github.com/svleague/swiss-system/services"
	"github.com/svleague/swiss-system/storage"
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

	if err := db.EnsureSchema(context.Background(), dbConn); err != nil {
		logger.Error("failed to ensure database schema", slog.Any("error", err))
		os.Exit(1)
	}

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
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
		logger.Warn("R2 storage not configured, archive export disabled")
	}

	hub := live.NewHub(logger)
	go hub.Run()

	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	metaRepo := repositories.NewPostgresMetaRepository(dbConn)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	standingsService := services.NewStandingsService(playerRepo, matchRepo, services.DefaultTieBreakWeights())
	pairingService := services.NewPairingService(playerRepo, matchRepo, rng)
	resultService := services.NewResultService(dbConn, matchRepo, roundRepo, playerRepo, metaRepo, tournamentRepo, logger)
	tournamentService := services.NewTournamentService(
		dbConn, tournamentRepo, playerRepo, roundRepo, matchRepo,
		pairingService, standingsService, resultService, logger,
	)
	metaService := services.NewMetaService(metaRepo, matchRepo, logger)
	statsService := services.NewStatsService(matchRepo, metaRepo)
	adminService := services.NewAdminService(dbConn, matchRepo, playerRepo, tournamentRepo, resultService, logger)
	exportService := services.NewExportService(
		tournamentRepo, playerRepo, roundRepo, matchRepo, metaRepo,
		standingsService, uploader, logger,
	)
	authService := services.NewAuthService(cfg.OrganizerLogin, cfg.AdminPasswordHash, cfg.JWTSecretKey)

	router := api.InitRoutes(api.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Tournament: handlers.NewTournamentHandler(tournamentService, standingsService, hub),
		Match:      handlers.NewMatchHandler(resultService, metaService, hub),
		Standings:  handlers.NewStandingsHandler(standingsService, statsService),
		Admin:      handlers.NewAdminHandler(adminService, exportService, hub),
		WebSocket:  handlers.NewWebSocketHandler(hub, logger),
	}, cfg.JWTSecretKey)
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
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}
