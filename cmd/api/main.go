package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/settlement-tracker/internal/api"
	"github.com/dvloznov/settlement-tracker/internal/api/handlers"
	"github.com/dvloznov/settlement-tracker/internal/app"
	"github.com/dvloznov/settlement-tracker/internal/config"
	"github.com/dvloznov/settlement-tracker/internal/gcsuploader"
	infraBQ "github.com/dvloznov/settlement-tracker/internal/infra/bigquery"
	"github.com/dvloznov/settlement-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/settlement-tracker/internal/logger"
	"github.com/dvloznov/settlement-tracker/internal/metrics"
)

func main() {
	envFile := flag.String("env-file", "", "Path to a .env file (defaults to ./.env when present)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := logger.WithContext(context.Background(), log)
	m := metrics.New()

	proc, err := app.NewProcessor(cfg, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create settlement processor")
	}

	loc, _ := cfg.Location()

	h := api.Handlers{
		Settlements: handlers.NewSettlementsHandler(proc, nil),
	}

	// Storage-backed endpoints need a BigQuery project.
	var jobQueue *inmemory.Queue
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := cfg.RequireCloud(); err != nil {
		log.Warn().Err(err).Msg("BigQuery not configured - only /api/settlements/parse is served")
	} else {
		repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create sales repository")
		}
		defer repo.Close()

		jobStore := inmemory.NewStore()
		jobQueue = inmemory.NewQueue(jobStore, inmemory.QueueOptions{
			BufferSize: cfg.QueueSize,
			Workers:    cfg.WorkerCount,
			MaxRetries: cfg.MaxRetries,
			Metrics:    m,
		})

		jobHandler := app.IngestJobHandler(gcsuploader.NewGCSStorageService(), repo, proc)
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Fatal().Err(err).Msg("Failed to start job workers")
		}
		log.Info().Int("workers", cfg.WorkerCount).Msg("Job workers started")

		h.Settlements = handlers.NewSettlementsHandler(proc, jobQueue)
		h.Sales = handlers.NewSalesHandler(repo, loc)
		h.Imports = handlers.NewImportsHandler(repo)
		h.Jobs = handlers.NewJobsHandler(jobStore)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      api.NewRouter(h, m, log),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if jobQueue != nil {
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping job queue")
		}
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
