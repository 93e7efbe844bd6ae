// Command matchengine-server wires internal/dispatch.Engine to a small
// HTTP surface (internal/httpapi) and a Prometheus /metrics endpoint.
// It is not the "sample driver" spec.md excludes from scope: it
// generates no synthetic orders of its own, it only exposes the
// engine's programmatic operations over JSON. Bootstrap sequence is
// grounded in JhonesBR-go-clob/cmd/main.go's
// config/logger/engine/routes/listen shape; the engine's own
// registry (not prometheus.DefaultGatherer) is served on a separate
// net/http mux/port, since Engine.MetricsRegistry is private to it.
package main

import (
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lxbook/matchcore/internal/config"
	"github.com/lxbook/matchcore/internal/dispatch"
	"github.com/lxbook/matchcore/internal/httpapi"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	engine := dispatch.New(cfg.WorkerCount, dispatch.WithLogger(logger))
	if err := engine.SetUp(dispatch.VariantTable, cfg.InitialSymbols); err != nil {
		logger.Fatal("failed to set up engine", zap.Error(err))
	}
	defer engine.Shutdown()

	go serveMetrics(cfg.MetricsAddr, engine.MetricsRegistry(), logger)

	app := fiber.New()
	httpapi.RegisterRoutes(app, engine, logger)

	logger.Info("matchengine-server listening", zap.String("addr", cfg.ListenAddr), zap.Strings("symbols", cfg.InitialSymbols))
	log.Fatal(app.Listen(cfg.ListenAddr))
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	logger.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

func newLogger(level string) *zap.Logger {
	var cfg zap.Config
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	return logger
}
