// Command api starts the NextFare HTTP API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"nextfare/config"
	"nextfare/internal/adapters/auth"
	adapteremail "nextfare/internal/adapters/email"
	"nextfare/internal/cache"
	deliveryhttp "nextfare/internal/delivery/http"
	"nextfare/internal/delivery/http/controllers"
	"nextfare/internal/delivery/http/middleware"
	"nextfare/internal/repository/postgres"
	"nextfare/internal/repository/redisdoc"
	"nextfare/internal/services"
)

const shutdownTimeout = 10 * time.Second

// @title NextFare API
// @version 1.0
// @description Event discovery and user profile backend for the NextFare mobile app.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Event source of truth
	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Info("connected to postgres")

	// Cache and document store share one Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	logger.Info("connected to redis")

	eventCache := cache.NewRedis(redisClient, "", 15*time.Minute)

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	profileRepo := redisdoc.NewProfileRepository(redisClient)
	reservationRepo := redisdoc.NewReservationRepository(redisClient)

	// Email
	mailer, err := adapteremail.NewMailer(adapteremail.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: adapteremail.SESConfig{
			Region:          cfg.Email.SESRegion,
			AccessKeyID:     cfg.Email.SESAccessKeyID,
			SecretAccessKey: cfg.Email.SESSecretAccessKey,
		},
	})
	if err != nil {
		return err
	}
	emailService := services.NewEmailService(mailer, adapteremail.NewTemplateRenderer())

	// Services
	eventService := services.NewEventService(eventRepo, eventCache, logger)
	profileService := services.NewProfileService(profileRepo, reservationRepo, emailService, logger)

	// Delivery
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	eventController := controllers.NewEventController(logger, eventService)
	userController := controllers.NewUserController(logger, profileService)
	mux := deliveryhttp.NewRouter(eventController, userController, verifier)

	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port, "env", cfg.Environment)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
