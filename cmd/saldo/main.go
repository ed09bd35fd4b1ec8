package main

import (
	"context"
	"net/http"
	"time"

	"saldo/internal/cli"
	apphttp "saldo/internal/http"
	"saldo/internal/log"
	"saldo/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)

	srv := apphttp.NewServer(":"+cfg.Port, res.Templates, res.Projections, apphttp.Options{
		Logger: logger,
		RateLimit: ratelimit.Config{
			RequestsPerMinute: cfg.WriteRateLimit,
			CleanupInterval:   5 * time.Minute,
		},
		TrustedProxies: cfg.TrustedProxyCIDRs(),
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
		tr, rl := srv.Metrics()
		logger.Info("Request totals",
			"requests", tr.TotalRequests,
			"avg_response_us", tr.AverageResponseTime,
			"rate_limited", rl.Rejected)
	})

	logger.Info("Starting saldo server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", res.AMQP != nil,
		"projection_months", cfg.ProjectionMonths)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
