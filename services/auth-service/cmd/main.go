package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/config"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/handler"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/repository"
	"github.com/vasapolrittideah/storefront-api/services/auth-service/internal/usecase"
	"github.com/vasapolrittideah/storefront-api/shared/auth"
	"github.com/vasapolrittideah/storefront-api/shared/discovery"
	"github.com/vasapolrittideah/storefront-api/shared/logger"
	"github.com/vasapolrittideah/storefront-api/shared/mailer"
	"github.com/vasapolrittideah/storefront-api/shared/ratelimit"
	"github.com/vasapolrittideah/storefront-api/shared/security"
	"github.com/vasapolrittideah/storefront-api/shared/validator"
)

const serviceName = "auth-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(serviceName, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mongodb")
	}
	db := client.Database(cfg.Mongo.Database)

	userRepo := repository.NewUserMongoRepository(ctx, log, db)
	otpRepo := repository.NewOTPMongoRepository(ctx, log, db)

	dispatcher := mailer.NewDispatcher(newSender(cfg, log), cfg.SMTP.Workers, cfg.SMTP.Buffer,
		func(derr *mailer.DeliveryError) {
			log.Warn().Err(derr.Err).Strs("to", derr.Email.To).Str("subject", derr.Email.Subject).
				Msg("failed to deliver email")
		},
	)

	jwtAuth := auth.NewJWTAuthenticator(serviceName, cfg.Token.Issuer)
	tokens := usecase.NewTokenIssuer(jwtAuth, cfg.Token)
	credentials := usecase.NewCredentialStore(userRepo, security.NewDefaultPasswordHasher(), cfg, nil)
	otps := usecase.NewOTPUsecase(otpRepo, nil)
	authUsecase := usecase.NewAuthUsecase(credentials, otps, tokens, dispatcher, cfg, log)
	passwordResetUsecase := usecase.NewPasswordResetUsecase(credentials, dispatcher, cfg, log)

	if promoted, err := credentials.SeedAdmin(ctx); err != nil {
		log.Error().Err(err).Msg("failed to seed admin user")
	} else if promoted {
		log.Info().Str("email", cfg.AdminEmail).Msg("admin role granted")
	}

	v, err := validator.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build validator")
	}

	opts := handler.Options{
		Health: func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter := ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Prefix, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		opts.RateLimit = ratelimit.Middleware(limiter, cfg.RateLimit.Limit, log)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.NewRouter(authUsecase, passwordResetUsecase, tokens, v, log, opts),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	registrar := register(cfg, log)

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if registrar != nil {
		if err := registrar.Deregister(); err != nil {
			log.Error().Err(err).Msg("failed to deregister from consul")
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server forced to shutdown")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("email queue not drained")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to disconnect from mongodb")
	}
}

func newSender(cfg *config.AuthServiceConfig, log *zerolog.Logger) mailer.Sender {
	if cfg.SMTP.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, emails will only be logged")
		return mailer.LogSender{Log: func(email mailer.Email) {
			log.Info().Strs("to", email.To).Str("subject", email.Subject).Msg("email not sent")
		}}
	}

	m, err := mailer.NewMailer(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure mailer")
	}

	return m
}

func register(cfg *config.AuthServiceConfig, log *zerolog.Logger) *discovery.ConsulRegistrar {
	if cfg.Consul.Addr == "" {
		return nil
	}

	_, portStr, err := net.SplitHostPort(cfg.HTTP.Addr)
	if err != nil {
		log.Error().Err(err).Msg("invalid HTTP_ADDR, skipping consul registration")
		return nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Error().Err(err).Msg("invalid HTTP_ADDR port, skipping consul registration")
		return nil
	}

	registrar, err := discovery.NewConsulRegistrar(cfg.Consul.Addr)
	if err != nil {
		log.Error().Err(err).Msg("failed to create consul client")
		return nil
	}

	err = registrar.Register(discovery.Registration{
		Name:      cfg.Consul.ServiceName,
		Host:      cfg.Consul.ServiceHost,
		Port:      port,
		HealthURL: fmt.Sprintf("http://%s:%d/healthz", cfg.Consul.ServiceHost, port),
		Tags:      []string{"http", "auth"},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to register with consul")
		return nil
	}

	return registrar
}
