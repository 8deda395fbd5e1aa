// Command api serves the enriched hex table over HTTP. Send SIGHUP to reload
// the table from disk.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/h3grid"
	httpadapter "github.com/couchcryptid/tent-hex-enrichment/internal/adapter/http"
	"github.com/couchcryptid/tent-hex-enrichment/internal/config"
	"github.com/couchcryptid/tent-hex-enrichment/internal/lookup"
	"github.com/couchcryptid/tent-hex-enrichment/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// A bad enriched table must stop startup before any request is served.
	store := lookup.NewStore()
	tbl, err := store.Reload(cfg.EnrichedCSVPath)
	if err != nil {
		logger.Error("failed to load enriched table", "path", cfg.EnrichedCSVPath, "error", err)
		os.Exit(1)
	}
	metrics.TableRows.Set(float64(tbl.Len()))
	logger.Info("enriched table loaded", "path", cfg.EnrichedCSVPath, "rows", tbl.Len(), "count_columns", len(tbl.CountColumns()))

	indexer := h3grid.NewCachedIndexer(h3grid.NewIndexer(logger), cfg.LookupCacheSize)
	srv := httpadapter.NewServer(cfg.HTTPAddr, store, indexer, httpadapter.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		DefaultResolution:  cfg.HexResolution,
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				t, err := store.Reload(cfg.EnrichedCSVPath)
				if err != nil {
					logger.Error("reload failed, keeping previous table", "path", cfg.EnrichedCSVPath, "error", err)
					continue
				}
				metrics.TableRows.Set(float64(t.Len()))
				logger.Info("enriched table reloaded", "rows", t.Len())
			}
		}
	}()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
