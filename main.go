package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"auto-focus.app/updates/internal/config"
	"auto-focus.app/updates/internal/entitlement"
	"auto-focus.app/updates/internal/handlers"
	"auto-focus.app/updates/internal/lemonsqueezy"
	"auto-focus.app/updates/internal/logger"
	"auto-focus.app/updates/internal/metrics"
	"auto-focus.app/updates/internal/ratelimit"
	"auto-focus.app/updates/internal/stripeorders"
)

var version = "dev"

// newServer wires the upstream clients, the entitlement service and the HTTP
// routes for cfg. It never fails on missing credentials; those surface per request.
func newServer(cfg *config.Config, reg *prometheus.Registry) (*handlers.Server, error) {
	m := metrics.New(reg)

	lemon, err := lemonsqueezy.New(cfg.LemonAPIURL, cfg.LemonAPIKey, cfg.UpstreamTimeout,
		lemonsqueezy.WithHTTPClient(&http.Client{}),
		lemonsqueezy.WithObserver(m),
		lemonsqueezy.WithMaintenanceVariant(cfg.MaintenanceVariantID),
	)
	if err != nil {
		return nil, err
	}

	var orders entitlement.OrderFetcher = lemon
	if cfg.OrderProvider == config.ProviderStripe {
		orders = stripeorders.New(cfg.StripeSecret, cfg.UpstreamTimeout, m)
	}

	var opts []entitlement.Option
	if err := cfg.CredentialsError(); err != nil {
		logger.Error("CRITICAL: upstream credentials missing, sync requests will fail", map[string]interface{}{
			"error": err.Error(),
		})
		opts = append(opts, entitlement.WithConfigError(err))
	}

	service := entitlement.NewService(lemon, orders, entitlement.NewCalculator(cfg.MaintenanceVariantID), opts...)

	return handlers.NewHttpServer(service, handlers.Options{
		Version:           version,
		AllowedOrigins:    cfg.AllowedOrigins,
		Limiter:           ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Metrics:           m,
		Gatherer:          reg,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}), nil
}

// newHTTPServer sets no write deadline: a sync runs as many upstream calls as
// the order history has pages, and each call carries its own timeout.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func main() {
	if versionBytes, err := os.ReadFile("VERSION"); err == nil {
		version = strings.TrimSpace(string(versionBytes))
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Release:          version,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server, err := newServer(cfg, reg)
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	httpServer := newHTTPServer(cfg, sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(server))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Maintenance sync API starting", map[string]interface{}{
			"version":        version,
			"port":           cfg.Port,
			"order_provider": cfg.OrderProvider,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	server.SetReady(false)
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
