// mockplatform serves the in-memory fake of the Conversimple platform API
// so SDK code can be exercised locally without an account.
//
// Usage:
//
//	go run ./cmd/mockplatform --addr :8080 --api-key cs_dev_key
//	export CONVERSIMPLE_API_ENDPOINT=http://localhost:8080
//	export CONVERSIMPLE_API_KEY=cs_dev_key
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conversimple/conversimple-go/config"
	"github.com/conversimple/conversimple-go/internal/buildconfig"
	"github.com/conversimple/conversimple-go/platform/platformtest"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	_ = config.Load()
	settings := config.FromEnv()

	addr := pflag.String("addr", ":8080", "listen address")
	apiKey := pflag.String("api-key", settings.APIKey, "API key accepted by the server (default: $CONVERSIMPLE_API_KEY or a fixed test key)")
	rps := pflag.Float64("rate-limit-rps", platformtest.DefaultRateLimitRPS, "token refill rate in requests per second")
	burst := pflag.Int("rate-limit-burst", platformtest.DefaultRateLimitBurst, "token bucket size")
	pflag.Parse()

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(settings.ZapLevel())
	logger, err := zapCfg.Build()
	if err != nil {
		logger = zap.NewExample()
	}
	defer func() { _ = logger.Sync() }()

	if *apiKey == "" {
		*apiKey = platformtest.DefaultAPIKey
	}

	p := platformtest.New(
		platformtest.WithAPIKey(*apiKey),
		platformtest.WithLogger(logger),
		platformtest.WithRateLimit(*rps, *burst),
	)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           p,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("mock platform starting",
			zap.String("addr", *addr),
			zap.String("version", buildconfig.Version()),
			zap.String("commit", buildconfig.Commit()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped",
		zap.Int64("requests", p.Metrics.Requests()),
		zap.Int64("errors", p.Metrics.Errors()),
	)
}
