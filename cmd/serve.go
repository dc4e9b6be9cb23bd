package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"pnodeatlas/config"
	"pnodeatlas/handlers"
	"pnodeatlas/metrics"
	"pnodeatlas/middleware"
	"pnodeatlas/services"
	"pnodeatlas/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server with background cache refresh",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info().
		Str("endpoint", cfg.RPC.Endpoint).
		Str("listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("configuration loaded")

	// Core services. The cache is constructed once here and injected
	// everywhere, never a package-level singleton.
	cache := services.NewCache()
	cache.StartSweeper(cfg.SweepInterval())

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	geo, err := utils.NewGeoResolver(cache, cfg.Geo.DBPath, cfg.GeoTimeout(), logger)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Geo.DBPath).Msg("geoip database unavailable, using HTTP lookups only")
		geo, _ = utils.NewGeoResolver(cache, "", cfg.GeoTimeout(), logger)
	}
	defer geo.Close()

	rpc := services.NewClusterClient(cfg, logger)
	enricher := services.NewEnricher(geo, logger)
	history := services.NewHistory(cache)
	pipeline := services.NewPipeline(rpc, enricher, cache, history, m, logger)

	// Warm the cache before serving, tolerating upstream failure at boot.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), cfg.RefreshInterval())
	if _, _, err := pipeline.FetchAllPNodes(warmCtx); err != nil {
		logger.Warn().Err(err).Msg("initial fetch failed, serving will retry on demand")
	}
	cancelWarm()
	pipeline.StartRefresher(cfg.RefreshInterval())

	// Web server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.LoggerMiddleware(logger))
	e.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	h := handlers.NewHandler(cfg, pipeline, geo, history, rpc, logger)

	e.GET("/health", h.GetHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := e.Group("/api")
	api.GET("/pnodes", h.GetPNodes)
	api.GET("/stats", h.GetStats)
	api.GET("/geo", h.GetGeo)
	api.GET("/history", h.GetHistory)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.Info().Str("addr", serverAddr).Msg("server running")
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown initiated")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline.Stop()
	cache.Stop()

	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server exited")
	return nil
}
