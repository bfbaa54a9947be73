// Package pipeline runs transcription followed by cleanup for one uploaded file.
//
// Transcription failures fail the request. Cleanup failures never do: the
// uncleaned transcript is returned together with the cleanup error.
package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"voice-cleanup-go/internal/cleaning"
	"voice-cleanup-go/internal/logger"
	"voice-cleanup-go/internal/metrics"
	"voice-cleanup-go/internal/transcription"
	"voice-cleanup-go/internal/types"
)

const (
	NoFileMessage      = "No file uploaded"
	ConfigErrorMessage = "Server configuration error: missing OpenAI credentials"
	ServerErrorMessage = "Server error"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audio types.Audio) (transcription.Result, error)
}

type Cleaner interface {
	CleanText(ctx context.Context, rawText string) (string, error)
}

var (
	_ Transcriber = (*transcription.OpenAITranscriber)(nil)
	_ Cleaner     = (*cleaning.Service)(nil)
)

// Composer is safe for concurrent use; it holds no per-request state.
type Composer struct {
	transcriber Transcriber
	cleaner     Cleaner
	log         *logrus.Entry
}

// New builds a Composer. A nil transcriber or cleaner means the upstream clients
// could not be configured, and every request is answered with ConfigErrorMessage.
func New(transcriber Transcriber, cleaner Cleaner, log *logrus.Entry) *Composer {
	if log == nil {
		log = logger.Default().Entry
	}
	return &Composer{
		transcriber: transcriber,
		cleaner:     cleaner,
		log:         log.WithField("component", "pipeline"),
	}
}

// Handle produces exactly one response for the upload. audio is nil when the
// request carried no file.
func (c *Composer) Handle(ctx context.Context, audio *types.Audio) types.Response {
	log := c.log
	if entry := logger.FromContext(ctx, nil); entry != nil {
		log = entry.WithField("component", "pipeline")
	}

	resp := c.handle(ctx, log, audio)
	metrics.RecordResponse(string(resp.Shape))
	log.WithFields(logrus.Fields{"shape": resp.Shape, "status": resp.Status()}).Info("pipeline finished")
	return resp
}

func (c *Composer) handle(ctx context.Context, log *logrus.Entry, audio *types.Audio) types.Response {
	if audio == nil || len(audio.Data) == 0 {
		log.Warn("no audio file in request")
		return types.Failure(http.StatusBadRequest, NoFileMessage)
	}
	if c.transcriber == nil || c.cleaner == nil {
		log.Error("upstream clients are not configured")
		return types.Failure(http.StatusInternalServerError, ConfigErrorMessage)
	}

	start := time.Now()
	result, err := capture(func() (transcription.Result, error) {
		return c.transcriber.Transcribe(ctx, *audio)
	}, ServerErrorMessage)
	metrics.RecordUpstreamDuration("transcription", time.Since(start).Seconds())
	if err != nil {
		log.WithField("error", err.Error()).Error("transcription error")
		return types.Failure(http.StatusInternalServerError, messageOr(err, ServerErrorMessage))
	}
	original := result.Original()

	log.Info("starting text cleaning process")
	cleaned, err := capture(func() (string, error) {
		return c.cleaner.CleanText(ctx, original)
	}, cleaning.DefaultFailureMessage)
	if err != nil {
		msg := messageOr(err, cleaning.DefaultFailureMessage)
		log.WithField("error", msg).Warn("text cleaning failed, returning original text")
		return types.Fallback(original, msg)
	}

	log.Info("text cleaning completed successfully")
	return types.Success(cleaned, original)
}

// capture runs fn and turns a panic into an error; panics that are not errors
// become fallback.
func capture[T any](fn func() (T, error), fallback string) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
			if e, ok := r.(error); ok && e.Error() != "" {
				err = e
			} else {
				err = errors.New(fallback)
			}
		}
	}()
	return fn()
}

func messageOr(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
