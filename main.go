package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/FACorreiaa/go-travel-booking-agent/app/db"
	appLogger "github.com/FACorreiaa/go-travel-booking-agent/app/logger"
	appMiddleware "github.com/FACorreiaa/go-travel-booking-agent/app/middleware"
	"github.com/FACorreiaa/go-travel-booking-agent/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-booking-agent/app/tracer"
	"github.com/FACorreiaa/go-travel-booking-agent/config"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api/planner"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api/profile"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api/search"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api/trip"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/booking"
	appRouter "github.com/FACorreiaa/go-travel-booking-agent/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracer.InitTracingAndMetrics(cfg.Handlers.Prometheus.Port)
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Dependency Injection ---
	cipher, err := profile.NewCipherFromEnv()
	if err != nil {
		logger.Error("Failed to initialize profile cipher", slog.Any("error", err))
		os.Exit(1)
	}
	profileRepo := profile.NewRepository(pool, logger)
	profileService := profile.NewService(profileRepo, cipher, logger)
	profileHandler := profile.NewHandler(profileService, logger)

	gemini, err := planner.NewGeminiClient(ctx, cfg.Gemini.Model)
	if err != nil {
		logger.Error("Failed to initialize Gemini client", slog.Any("error", err))
		os.Exit(1)
	}
	var aiClient planner.AIClient
	if gemini != nil {
		aiClient = gemini
	} else {
		logger.Warn("GOOGLE_GEMINI_API_KEY not set, trip parsing runs in rule-based mode")
	}
	parser := planner.NewParser(aiClient, logger)

	searchService := search.NewService(cfg.Amadeus.Env, cfg.Amadeus.SearchResult, logger)

	bookingRepo := booking.NewRepository(pool, logger)
	tripRepo := trip.NewRepository(pool, logger)
	cardIssuer := booking.NewStripeCardIssuer(logger)
	mailer := booking.NewSendGridMailer(cfg.Email.FromAddress, cfg.Email.FromName, logger)

	var agent booking.Agent
	if cfg.Booking.MockMode {
		agent = booking.NewSimAgent(bookingRepo, cfg.Booking.SimStepDelay, logger)
		logger.Info("Booking agent running in mock mode")
	} else {
		visionModel, err := booking.NewGeminiVisionModel(ctx, cfg.Gemini.Model)
		if err != nil {
			logger.Error("Failed to initialize vision model for live booking", slog.Any("error", err))
			os.Exit(1)
		}
		agent = booking.NewVisionAgent(bookingRepo, visionModel, cfg.Booking.MaxAgentSteps,
			cfg.Booking.BrowserlessURL, logger)
		logger.Info("Booking agent running in live browser mode")
	}

	engine := booking.NewEngine(tripRepo, bookingRepo, profileService, cardIssuer, agent, mailer,
		cfg.Booking.Workers, cfg.Booking.QueueSize, cfg.Booking.RetryDelay, logger)
	engine.Start(ctx)
	if err := engine.Recover(ctx); err != nil {
		logger.Error("Failed to recover interrupted bookings", slog.Any("error", err))
	}

	tripService := trip.NewService(tripRepo, bookingRepo, profileService, parser, searchService, engine, logger)
	tripHandler := trip.NewHandler(tripService, logger)

	// --- Router Setup ---
	mainRouter := appRouter.SetupRouter(&appRouter.Config{
		TripHandler:            tripHandler,
		ProfileHandler:         profileHandler,
		AuthenticateMiddleware: appMiddleware.Authenticate,
	})

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(cfg.Server.Timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	// Workers observe the cancelled signal context and drain.
	engine.Shutdown()

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		jsonOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
