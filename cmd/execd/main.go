package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/algotrade/execd/internal/clock"
	"github.com/algotrade/execd/internal/config"
	"github.com/algotrade/execd/internal/core"
	"github.com/algotrade/execd/internal/execdb"
	"github.com/algotrade/execd/internal/obs"
	"github.com/algotrade/execd/internal/risk"
	"github.com/algotrade/execd/internal/venue"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config")
	metricsAddr := flag.String("metrics-addr", ":9090", "listen address for the Prometheus metrics endpoint")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN; when empty the in-memory database is used")
	flag.Parse()

	loaded, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("execd: config load failed: %v", err)
	}

	db, err := openDatabase(loaded, *postgresDSN)
	if err != nil {
		log.Fatalf("execd: database open failed: %v", err)
	}

	registry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(registry)

	engine := core.NewEngine(core.Config{
		TraderID:         loaded.TraderID,
		Database:         db,
		Client:           venue.NewStubClient(loaded.EventQueueSize),
		Risk:             risk.NewEngine(loaded.Risk),
		Clock:            clock.RealClock{},
		Metrics:          metrics,
		CommandTimeout:   loaded.CommandTimeout,
		CommandQueueSize: loaded.CommandQueueSize,
		EventQueueSize:   loaded.EventQueueSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go serveMetrics(*metricsAddr, registry)

	log.Printf("execd: trader %s starting with %d configured symbols", loaded.TraderID, len(loaded.Symbols))
	engine.Run(ctx)
	log.Printf("execd: shutting down")
}

func openDatabase(loaded config.Loaded, postgresDSN string) (execdb.Database, error) {
	if postgresDSN == "" {
		return execdb.NewMemoryDatabase(), nil
	}
	return execdb.OpenPostgres(postgresDSN, loaded.TraderID)
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("execd: metrics server stopped: %v", err)
	}
}
