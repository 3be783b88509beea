package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"battsim/internal/api"
	"battsim/internal/auth"
	"battsim/internal/chat"
	"battsim/internal/config"
	"battsim/internal/database"
	"battsim/internal/notification"
	"battsim/internal/otp"
	"battsim/internal/ratelimit"
	"battsim/internal/simulation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	repos := database.NewRepositories(db)

	authSvc := auth.NewService(cfg.Auth)
	solver := simulation.NewCircuitSolver()
	renderer := simulation.NewPlotRenderer(cfg.Simulation.PlotWidthCm, cfg.Simulation.PlotHeightCm)
	runner := simulation.NewRunner(solver, renderer, logger)
	completer := chat.NewClient(cfg.OpenAI, logger)
	mailer := notification.NewSMTPMailer(cfg.Email, logger)
	otpMgr := otp.NewManager()

	limiter := ratelimit.NewLimiter(cfg.Redis, cfg.RateLimit.Enabled, logger)
	defer limiter.Close()

	stores := api.Stores{
		Users:     repos.Users,
		Profiles:  repos.Profiles,
		Runs:      repos.Runs,
		Templates: repos.Templates,
		Shares:    repos.Shares,
		OTPs:      repos.OTPs,
	}

	handler := api.NewHandler(cfg, logger, stores, authSvc, runner, completer, mailer, otpMgr, limiter)
	router := api.SetupRouter(cfg, logger, handler, authSvc, repos.Usage)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	logger.Info("Battery simulation service started",
		zap.String("addr", srv.Addr),
		zap.String("environment", cfg.Environment))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
