package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendsheet/internal/api"
	"spendsheet/internal/archive"
	"spendsheet/internal/expense"
	"spendsheet/internal/llm"
	"spendsheet/internal/logger"
	"spendsheet/internal/sheetstore"
)

func main() {
	var (
		port   = flag.String("port", "8080", "HTTP server port")
		model  = flag.String("model", os.Getenv("GEMINI_MODEL"), "Gemini model name (or set GEMINI_MODEL env)")
		bucket = flag.String("bucket", os.Getenv("RECEIPTS_BUCKET"), "GCS bucket for receipt archival (or set RECEIPTS_BUCKET env); empty disables archival")
	)
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	store, err := sheetstore.New(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}

	completer, err := llm.New(ctx, *model, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}

	var archiver expense.Archiver
	if *bucket != "" {
		archiver = archive.New(*bucket, log)
		log.Info().Str("bucket", *bucket).Msg("Receipt archival enabled")
	} else {
		log.Warn().Msg("No receipts bucket configured, archival disabled")
	}

	svc := expense.NewService(store, completer, archiver, log)
	handler := api.NewHandler(svc, store, log)
	router := api.NewRouter(handler, log)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  60 * time.Second, // image payloads can be large
		WriteTimeout: 60 * time.Second, // model calls take multiple seconds
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
