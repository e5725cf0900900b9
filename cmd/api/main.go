package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-checkout/internal/auth"
	"github.com/ariefcatur/go-shop-checkout/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout/internal/config"
	"github.com/ariefcatur/go-shop-checkout/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-checkout/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout/internal/logging"
	"github.com/ariefcatur/go-shop-checkout/internal/notify"
	"github.com/ariefcatur/go-shop-checkout/internal/payment"
	"github.com/ariefcatur/go-shop-checkout/internal/postgres"
	"github.com/ariefcatur/go-shop-checkout/internal/shop"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.Setup(cfg.ServiceName, cfg.LogLevel)
	if err := cfg.ValidateAPI(); err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("db migrate")
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("token issuer")
	}

	// Kafka producer for confirmation notices; its loop outlives ctx so the
	// inbox is flushed after the HTTP server has drained.
	prod := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicOrderConfirmed, 1024, logger)
	prod.Start(context.Background())

	repo := shop.NewRepo(db)
	svc := checkout.NewService(
		repo,
		payment.NewStripeGateway(cfg.StripeSecretKey, cfg.Currency),
		notify.NewPublisher(prod, cfg.ServiceName),
		logger,
	)
	limiter := httpx.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	router := httpx.NewRouter(logger)
	api := &httpx.API{
		Checkout: svc,
		Store:    repo,
		Catalog:  repo,
		Issuer:   issuer,
		Limiter:  limiter,
		Log:      logger,
	}
	api.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exit")
	}
	prod.Close()      // close inbox, flush, close writer
	prod.WaitClosed() // drain
}
