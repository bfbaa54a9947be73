package cleaning

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"voice-cleanup-go/internal/metrics"
)

// Result is the classified kind of a cleanup outcome.
type Result string

const (
	ResultSuccess  Result = "success"
	ResultTimeout  Result = "timeout"
	ResultAPIError Result = "api_error"
	// ResultFallback is reserved for a manual fallback path; Classify never returns it.
	ResultFallback Result = "fallback"
)

// Outcome is the detailed result of CleanTextWithDetails. On failure CleanedText
// holds the original text so callers can always show something.
type Outcome struct {
	CleanedText  string `json:"cleanedText"`
	Result       Result `json:"result"`
	OriginalText string `json:"originalText,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Classify maps a cleanup error to its Result by looking for "timeout" in the message.
func Classify(err error) Result {
	if err == nil {
		return ResultSuccess
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return ResultTimeout
	}
	return ResultAPIError
}

// CleanTextWithDetails never fails: errors and panics from the cleanup call are
// classified and the original text is returned in their place.
func (s *Service) CleanTextWithDetails(ctx context.Context, rawText string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = s.fallback(ctx, rawText, NormalizeFailure(r))
		}
	}()

	cleaned, err := s.CleanText(ctx, rawText)
	if err != nil {
		return s.fallback(ctx, rawText, NormalizeFailure(err))
	}

	s.logFor(ctx).Info("text cleaning completed successfully")
	metrics.RecordCleanupOutcome(string(ResultSuccess))
	return Outcome{
		CleanedText:  cleaned,
		Result:       ResultSuccess,
		OriginalText: rawText,
	}
}

func (s *Service) fallback(ctx context.Context, rawText string, err error) Outcome {
	result := Classify(err)
	log := s.logFor(ctx).WithFields(logrus.Fields{"result": result, "error": err.Error()})
	if result == ResultTimeout {
		log.Error("text cleaning failed due to timeout")
	} else {
		log.Error("text cleaning failed with API error")
	}
	log.Warn("falling back to original transcription text")

	metrics.RecordCleanupOutcome(string(result))
	return Outcome{
		CleanedText:  rawText,
		Result:       result,
		OriginalText: rawText,
		Error:        err.Error(),
	}
}
