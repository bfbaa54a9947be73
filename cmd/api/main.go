package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"voice-cleanup-go/internal/api"
	"voice-cleanup-go/internal/cleaning"
	"voice-cleanup-go/internal/config"
	"voice-cleanup-go/internal/logger"
	"voice-cleanup-go/internal/pipeline"
	"voice-cleanup-go/internal/transcription"
	"voice-cleanup-go/internal/upstream"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.Default()
	log.WithField("service", "voice-cleanup-go").Info("starting service")

	cfg, err := config.Load(os.LookupEnv)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	composer := buildComposer(cfg, log)
	handler := api.NewHandler(composer, cfg.MaxUploadBytes, log)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}

// buildComposer resolves both upstream clients. Missing credentials do not stop
// the server; every transcribe request then reports the configuration error.
func buildComposer(cfg config.Config, log *logger.Logger) *pipeline.Composer {
	transcriptionClient, err := upstream.Resolve(os.LookupEnv, upstream.KindTranscription)
	if err != nil {
		log.WithError(err).Error("transcription client not configured")
		return pipeline.New(nil, nil, log.Entry)
	}
	cleanupClient, err := upstream.Resolve(os.LookupEnv, upstream.KindCleanup)
	if err != nil {
		log.WithError(err).Error("cleanup client not configured")
		return pipeline.New(nil, nil, log.Entry)
	}
	opts := cfg.CleaningOptions()
	opts.Logger = log.Entry

	transcriber := transcription.NewOpenAITranscriber(transcriptionClient.API, cfg.TranscriptionModel)
	cleaner := cleaning.NewService(cleaning.NewOpenAICompleter(cleanupClient.API), opts)

	log.WithField("transcription_azure", transcriptionClient.Profile.UseAzure).
		WithField("transcription_model", transcriber.Model()).
		WithField("cleanup_azure", cleanupClient.Profile.UseAzure).
		WithField("cleanup_model", cleaner.Options().Model).
		Info("upstream clients resolved")

	return pipeline.New(transcriber, cleaner, log.Entry)
}
