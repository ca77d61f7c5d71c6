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

	"tripweaver/auth"
	"tripweaver/config"
	"tripweaver/database"
	"tripweaver/handlers"
	"tripweaver/itinerary"
	"tripweaver/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var skipDB bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), skipDB)
		},
	}
	cmd.Flags().BoolVar(&skipDB, "no-db", false, "run without Postgres (inquiries, bookings and saved plans are disabled)")
	return cmd
}

func runServer(parent context.Context, skipDB bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(logger.WithContext(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := handlers.Dependencies{
		Sessions: itinerary.NewSessions(cfg.SessionTTL),
		Planner:  services.NewPlannerClient(cfg.PlannerURL, cfg.PlannerTimeout),
		Hotels:   services.NewHotelClient(cfg.AmadeusClientID, cfg.AmadeusClientSecret, cfg.AmadeusEnv),
		PDF:      services.PDFOptions{FontPath: cfg.PDFFontPath},
	}

	if !skipDB {
		db, err := database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		store := database.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		logger.Info().Msg("database connected and migrated")
		deps.Repo = store
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" && cfg.JWTPublicKeyFile == "" {
		logger.Warn().Msg("AUTH_JWT_SECRET not set, authenticated routes will reject every request")
	}
	if cfg.AmadeusClientID == "" {
		logger.Warn().Msg("Amadeus credentials not set, hotel search uses estimated results")
	}

	go deps.Sessions.Run(ctx, time.Minute)

	router := handlers.NewRouter(handlers.NewHandler(deps), handlers.RouterConfig{
		FrontendURLs: cfg.FrontendURLs,
		Verifier:     verifier,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("starting server")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
			return server.Close()
		}
	}
	return nil
}

func newVerifier(cfg *config.Config) (*auth.Verifier, error) {
	if cfg.JWTPublicKeyFile == "" {
		return auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil
	}
	pemKey, err := os.ReadFile(cfg.JWTPublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read AUTH_JWT_PUBLIC_KEY_FILE: %w", err)
	}
	return auth.NewRSAVerifier(pemKey, cfg.JWTIssuer)
}
