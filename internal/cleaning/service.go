// Package cleaning rewrites raw transcripts into readable prose with a chat model,
// retrying failed calls with exponential backoff and classifying what went wrong.
package cleaning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"voice-cleanup-go/internal/logger"
	"voice-cleanup-go/internal/metrics"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 1
	DefaultModel       = "gpt-5"
	DefaultTemperature = 0.1

	// minResponseTokens is the floor of the completion budget, even for tiny inputs.
	minResponseTokens = 1000
	baseRetryDelay    = time.Second
)

const cleaningPrompt = `Please clean and improve the following transcribed text. Make it more readable by:
- Fixing grammar and punctuation
- Removing filler words (um, uh, like, you know)
- Removing repetitions and false starts
- Creating proper paragraph breaks
- Ensuring consistent capitalization

Preserve the original meaning and don't add any new information. Return only the cleaned text.

Text to clean:
`

// CompletionRequest is a single-message chat completion.
type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completer performs one upstream chat completion and returns the first choice's content.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Options are fixed for the lifetime of a Service. Start from DefaultOptions: a zero
// MaxRetries means a single attempt.
type Options struct {
	Timeout     time.Duration
	MaxRetries  int
	Model       string
	Temperature float64
	// Timer drives the wait between attempts; nil uses the wall clock.
	Timer  backoff.Timer
	Logger *logrus.Entry
}

func DefaultOptions() Options {
	return Options{
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
	}
}

type Service struct {
	completer Completer
	opts      Options
	log       *logrus.Entry
}

func NewService(completer Completer, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = DefaultModel
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default().Entry
	}
	return &Service{
		completer: completer,
		opts:      opts,
		log:       log.WithField("component", "text-cleaning"),
	}
}

// Options returns the effective configuration.
func (s *Service) Options() Options {
	return s.opts
}

// CleanText returns the cleaned text, or the last attempt's error once
// MaxRetries+1 attempts have failed. Blank input fails without calling upstream.
func (s *Service) CleanText(ctx context.Context, rawText string) (string, error) {
	log := s.logFor(ctx)
	if strings.TrimSpace(rawText) == "" {
		log.WithField("error", ErrEmptyText.Error()).Error("text cleaning validation failed")
		return "", ErrEmptyText
	}

	maxAttempts := s.opts.MaxRetries + 1
	attempt := 0
	op := func() (string, error) {
		attempt++
		attemptLog := log.WithFields(logrus.Fields{"attempt": attempt, "max_attempts": maxAttempts})
		attemptLog.Info("text cleaning attempt")

		cleaned, err := s.attempt(ctx, attemptLog, rawText)
		if err != nil {
			attemptLog.WithField("error", err.Error()).Warn("text cleaning attempt failed")
			return "", err
		}
		if attempt > 1 {
			attemptLog.Info("text cleaning succeeded on retry")
		}
		return cleaned, nil
	}
	notify := func(err error, next time.Duration) {
		log.WithFields(logrus.Fields{
			"attempt":     attempt,
			"retry_in_ms": next.Milliseconds(),
		}).Info("retrying text cleaning")
	}

	cleaned, err := backoff.RetryNotifyWithTimerAndData(op, backoff.WithContext(s.newBackOff(), ctx), notify, s.opts.Timer)
	if err != nil {
		log.WithFields(logrus.Fields{
			"attempts": attempt,
			"error":    err.Error(),
		}).Error("text cleaning failed after all retry attempts")
		return "", err
	}
	return cleaned, nil
}

// attempt runs one upstream call under its own deadline.
func (s *Service) attempt(ctx context.Context, log *logrus.Entry, rawText string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	content, err := s.completer.Complete(attemptCtx, CompletionRequest{
		Model:       s.opts.Model,
		Prompt:      cleaningPrompt + "\n\n" + rawText,
		Temperature: s.opts.Temperature,
		MaxTokens:   ResponseBudget(rawText),
	})
	metrics.RecordUpstreamDuration("cleanup", time.Since(start).Seconds())
	if err != nil {
		metrics.RecordCleanupAttempt(false)
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			log.WithField("timeout_ms", s.opts.Timeout.Milliseconds()).Warn("text cleaning timeout triggered")
			return "", fmt.Errorf("%w after %dms", ErrTimeout, s.opts.Timeout.Milliseconds())
		}
		return "", err
	}

	cleaned := strings.TrimSpace(content)
	if cleaned == "" {
		metrics.RecordCleanupAttempt(false)
		return "", ErrNoCleanedText
	}
	metrics.RecordCleanupAttempt(true)
	return cleaned, nil
}

func (s *Service) logFor(ctx context.Context) *logrus.Entry {
	if entry := logger.FromContext(ctx, nil); entry != nil {
		return entry.WithField("component", "text-cleaning")
	}
	return s.log
}

// newBackOff yields 1s, 2s, 4s, ... between attempts with no jitter, MaxRetries times.
func (s *Service) newBackOff() backoff.BackOff {
	if s.opts.MaxRetries == 0 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseRetryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(1<<62 - 1)
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(s.opts.MaxRetries))
}

// ResponseBudget is the completion token budget for rawText: twice its length, at least 1000.
func ResponseBudget(rawText string) int {
	return max(minResponseTokens, 2*utf8.RuneCountInString(rawText))
}
