package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"zlibsearch/internal/config"
	"zlibsearch/internal/healthcheck"
	"zlibsearch/internal/logger"
	"zlibsearch/internal/metrics"
	"zlibsearch/internal/search"
	"zlibsearch/internal/server"
	"zlibsearch/internal/storage/index"
)

func main() {
	cfg := config.Get()

	log, logFile, err := logger.Setup(cfg.Log)
	if err != nil {
		logrus.Fatalf("failed to set up logging: %v", err)
	}
	defer logFile.Close()
	log.Info("zlibsearch started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := index.Open(ctx, cfg.Index.Path, index.Options{
		ReadOnly:     true,
		MaxOpenConns: 2 * runtime.NumCPU(),
	}, log)
	if err != nil {
		log.Fatalf("failed to open search index: %v", err)
	}
	defer engine.Close()

	books, err := engine.Count(ctx)
	if err != nil {
		log.Fatalf("search index unreadable: %v", err)
	}

	opts := server.RouterOptions{
		CORS:      cfg.CORS.Enabled,
		RateLimit: cfg.RateLimit,
	}
	var observer search.Observer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.NewHTTP(reg)
		observer = m
		opts.Metrics = m
		opts.MetricsPath = cfg.Metrics.Path
		opts.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	state := server.NewState(engine, observer, cfg.Search.DefaultLimit)
	log.WithFields(logrus.Fields{
		"index": engine.Path(),
		"books": books,
	}).Info("application state initialized")

	srv := server.New(cfg.Server, server.NewRouter(state, opts), log)
	ln, err := srv.Listen()
	if err != nil {
		log.Fatalf("failed to start web server: %v", err)
	}

	if cfg.GRPCHealth.Enabled {
		hc := healthcheck.New()
		hln, err := net.Listen("tcp", cfg.GRPCHealth.Address())
		if err != nil {
			log.Fatalf("failed to start grpc health server: %v", err)
		}
		go func() {
			if err := hc.Serve(hln); err != nil {
				log.WithError(err).Error("grpc health server stopped")
			}
		}()
		defer hc.Stop()
		hc.SetServing(true)
		go func() {
			<-ctx.Done()
			hc.SetServing(false)
		}()
		log.WithField("addr", hln.Addr().String()).Info("grpc health service started")
	}

	if err := srv.Serve(ctx, ln); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("web server failed")
		stop()
		os.Exit(1)
	}
	log.Info("zlibsearch stopped")
}
