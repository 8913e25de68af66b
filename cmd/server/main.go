package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/applymail/applymail/internal/auth"
	"github.com/applymail/applymail/internal/config"
	"github.com/applymail/applymail/internal/dispatcher"
	"github.com/applymail/applymail/internal/logger"
	"github.com/applymail/applymail/internal/mailer"
	"github.com/applymail/applymail/internal/repository"
	"github.com/applymail/applymail/internal/secrets"
	"github.com/applymail/applymail/internal/web"
	"github.com/applymail/applymail/internal/web/handlers"
)

func main() {
	// 1. Load .env if present, then config
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting application mail service")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Initialize storage
	usersRepo, err := repository.NewUsersRepository(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init user storage")
	}
	recordsRepo := repository.NewRecordsRepository(cfg.RecordsPath)

	// 5. Initialize mail pipeline
	cipher := secrets.New(cfg.JWTSecret)
	sender := dispatcher.NewApplicationSender(mailer.New(), recordsRepo, usersRepo, cipher, cfg)
	batch := dispatcher.NewBatchDispatcher(sender)

	// 6. Initialize auth
	tokens := auth.NewTokenManager(cfg.JWTSecret)
	google := auth.NewIDTokenVerifier(cfg.GoogleClientID)
	if cfg.GoogleClientID == "" {
		log.Warn().Msg("GOOGLE_CLIENT_ID is not set, sign-in will be rejected")
	}
	if !cfg.SMTP.IsComplete() {
		log.Warn().Msg("global smtp config is incomplete, only users with a stored app-password can send")
	}

	// 7. Initialize web handlers and server
	appsHandler := handlers.NewApplicationsHandler(batch, sender)
	authHandler := handlers.NewAuthHandler(usersRepo, google, tokens, cipher)

	server := web.NewServer(&web.Config{Port: cfg.HTTPPort}, tokens, appsHandler, authHandler)

	log.Info().Int("port", cfg.HTTPPort).Msg("starting web server")
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 8. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Stop(shutdownCtx)

	log.Info().Msg("shutdown complete")
}
