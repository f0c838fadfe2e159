package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartplate/smartplate/internal/config"
	"github.com/smartplate/smartplate/internal/database"
	"github.com/smartplate/smartplate/internal/handler"
	"github.com/smartplate/smartplate/internal/logging"
	"github.com/smartplate/smartplate/internal/middleware"
	"github.com/smartplate/smartplate/internal/provider/google"
	"github.com/smartplate/smartplate/internal/queue"
	"github.com/smartplate/smartplate/internal/repository"
	"github.com/smartplate/smartplate/internal/router"
	"github.com/smartplate/smartplate/internal/service"
	"github.com/smartplate/smartplate/internal/utils"
)

func main() {
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.IsProd(), cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server exited", "err", err)
		os.Exit(1)
	}
}

// warnInsecureDefaults flags settings that are tolerable in development but
// weaken authentication in production.
func warnInsecureDefaults(ctx context.Context, cfg config.Config, log logging.Logger) {
	if cfg.IsProd() && cfg.GoogleClientID == "" {
		log.Warn(ctx, "GOOGLE_CLIENT_ID is unset; Google ID tokens issued to any client will be accepted")
	}
}

func run(ctx context.Context, cfg config.Config, log logging.Logger) error {
	warnInsecureDefaults(ctx, cfg, log)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	users := repository.NewUserRepo(db)
	requests := repository.NewFoodRequestRepo(db)
	fulfillments := repository.NewFulfillmentRepo(db)

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	hasher := utils.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency)
	verifier := google.New(google.Config{
		TokenInfoURL: cfg.GoogleTokenInfoURL,
		ClientID:     cfg.GoogleClientID,
		Timeout:      cfg.ProviderTimeout,
		Retries:      cfg.ProviderRetries,
	})

	var events service.EventPublisher = queue.Discard{}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.BrokerURL)
		defer pub.Close()
		events = pub

		audit := queue.NewAuditConsumer(cfg.BrokerURL, cfg.AuditLogPath, log)
		go func() {
			if err := audit.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(ctx, "audit consumer stopped", "err", err)
			}
		}()
	}

	authSvc := service.NewAuthService(service.AuthDeps{
		Users:    users,
		Hasher:   hasher,
		Tokens:   tokens,
		Identity: verifier,
		Events:   events,
		Log:      log,
	})
	donSvc := service.NewDonationService(service.DonationDeps{
		Requests:     requests,
		Fulfillments: fulfillments,
		Users:        users,
		Events:       events,
		Log:          log,
	})

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn(ctx, "redis unavailable; rate limiting and analytics cache disabled", "addr", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}

	e := router.New(cfg.CORSOrigins, log)
	auth := middleware.JWTAuth(service.NewSessionResolver(tokens, users))
	donations := handler.NewDonationHandler(donSvc, log)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, log), auth, middleware.NewTokenBucket(cfg.RateLimit, rdb, log))
	router.RegisterDonations(e, donations, auth)
	router.RegisterAdmin(e, handler.NewAdminHandler(authSvc, log), auth)
	router.RegisterPublic(e, donations, middleware.NewRedisCache(cfg.Cache, rdb))

	return serve(ctx, e, ":"+cfg.Port, log, cfg.Env)
}

func serve(ctx context.Context, e *echo.Echo, addr string, log logging.Logger, env string) error {
	errc := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", addr, "env", env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info(shutdownCtx, "shutting down")
	return e.Shutdown(shutdownCtx)
}
