// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"audio-commerce/internal/config"
	pg "audio-commerce/internal/infra/db/postgres"
	"audio-commerce/internal/infra/invoice"
	"audio-commerce/internal/infra/logging"
	"audio-commerce/internal/infra/metrics"
	"audio-commerce/internal/infra/payment"
	red "audio-commerce/internal/infra/redis"
	"audio-commerce/internal/infra/sched"
	"audio-commerce/internal/infra/web"
	"audio-commerce/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed timeouts)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()
	txm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	checkoutState := red.NewCheckoutStateRepo(redisClient, cfg.Checkout.ContextTTL)
	webhookCache := red.NewWebhookCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	userRepo := pg.NewUserRepo(pool)
	catalogRepo := pg.NewCatalogRepo(pool)
	cartRepo := pg.NewCartRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	discountRepo := pg.NewDiscountRepo(pool)
	webhookEventRepo := pg.NewWebhookEventRepo(pool)

	// ---- Gateway & invoices ----
	gateway := payment.NewPayPalGateway(&cfg.Payment)
	logger.Info().Str("provider", gateway.Name()).Bool("sandbox", cfg.Payment.Sandbox).
		Msg("payment gateway configured")
	invoices := invoice.NewJournal(logger)

	// ---- Use cases ----
	discountUC := usecase.NewDiscountUseCase(discountRepo, logger)
	entitlementUC := usecase.NewEntitlementUseCase(purchaseRepo, subRepo, catalogRepo, userRepo, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, planRepo, discountUC, invoices, txm, logger)
	checkoutUC := usecase.NewCheckoutUseCase(
		cartRepo, catalogRepo, purchaseRepo, planRepo, checkoutState,
		discountUC, gateway, invoices, txm, cfg.Checkout.CaptureTimeout, logger,
	)
	purchaseUC := usecase.NewPurchaseQueryUseCase(purchaseRepo, logger)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	webhooks := web.NewWebhookHandler(gateway, webhookEventRepo, webhookCache, checkoutUC, subUC, logger)
	srv := web.NewServer(checkoutUC, entitlementUC, subUC, discountUC, purchaseUC, webhooks, auth, logger)

	router := chi.NewRouter()
	srv.RegisterRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Workers ----
	sweeper := sched.NewPendingSweeper(checkoutUC, purchaseRepo, cfg.Sweeper.Interval, cfg.Sweeper.Retention, logger)
	go sweeper.Start(ctx)
	expiry := sched.NewExpiryWorker(subUC, subRepo, time.Hour, logger)
	go expiry.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
