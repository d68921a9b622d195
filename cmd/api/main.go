package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/team-raffle-backend/api/routes"
	"github.com/ArowuTest/team-raffle-backend/internal/config"
	"github.com/ArowuTest/team-raffle-backend/internal/handlers"
	"github.com/ArowuTest/team-raffle-backend/internal/seed"
	"github.com/ArowuTest/team-raffle-backend/internal/services"
	"github.com/ArowuTest/team-raffle-backend/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"
)

func main() {
	// A missing .env is fine outside development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	if cfg.JWT.Secret == "" {
		slog.Error("JWT secret is not configured (JWT_SECRET)")
		os.Exit(1)
	}

	catalog, err := seed.Load(cfg.Raffle.SeedFile)
	if err != nil {
		slog.Error("Failed to load seed catalog", "file", cfg.Raffle.SeedFile, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	repos, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Initialize Services
	reservationService := services.NewReservationService(repos)
	presenceService := services.NewPresenceService(repos)
	boardService := services.NewBoardService(repos)
	allocationService := services.NewAllocationService(repos, cfg.Raffle.LowestPrize)
	lifecycleService := services.NewLifecycleService(repos, catalog)
	authService := services.NewAuthService(cfg)

	// The memory store starts empty
	if cfg.Store.Driver == config.DriverMemory {
		for _, team := range catalog.TeamNames() {
			if err := lifecycleService.Provision(ctx, team); err != nil {
				slog.Error("Failed to provision team", "team", team, "error", err)
				os.Exit(1)
			}
		}
	}

	// Initialize Handlers
	handlerDeps := routes.HandlerDependencies{
		AuthHandler:        handlers.NewAuthHandler(authService),
		RaffleHandler:      handlers.NewRaffleHandler(reservationService),
		FacilitatorHandler: handlers.NewFacilitatorHandler(boardService, presenceService, allocationService, lifecycleService),
		WatchHandler:       handlers.NewWatchHandler(boardService, cfg.Server.AllowedHosts),
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(cfg, handlerDeps)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Server starting", "port", cfg.Server.Port, "store", cfg.Store.Driver)

	// Run server in a goroutine so that it doesn't block
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}

// setupLogger installs a JSON slog handler at the configured level
func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
