package transcription

import (
	"bytes"
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"voice-cleanup-go/internal/logger"
	"voice-cleanup-go/internal/types"
)

const DefaultModel = "gpt-4o-transcribe"

// Result is the upstream transcription. Raw is the whole response body.
type Result struct {
	Text string
	Raw  string
}

// Original is the text handed to cleanup: Text, or the raw response when the
// upstream returned no text field.
func (r Result) Original() string {
	if r.Text != "" {
		return r.Text
	}
	return r.Raw
}

// OpenAITranscriber makes one audio transcription call per request, without retries.
type OpenAITranscriber struct {
	client openai.Client
	model  string
}

func NewOpenAITranscriber(client openai.Client, model string) *OpenAITranscriber {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &OpenAITranscriber{client: client, model: model}
}

func (t *OpenAITranscriber) Model() string {
	return t.model
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio types.Audio) (Result, error) {
	log := logger.FromContext(ctx, logger.Default().Entry).WithField("module", "transcription")

	filename := audio.Filename
	if filename == "" {
		filename = "audio"
	}
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	log.WithField("model", t.model).WithField("bytes", len(audio.Data)).Info("sending transcription request")
	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio.Data), filename, contentType),
		Model: openai.AudioModel(t.model),
	})
	if err != nil {
		return Result{}, err
	}
	if resp == nil {
		return Result{}, errors.New("audio transcriptions API returned nil response")
	}
	return Result{Text: resp.Text, Raw: resp.RawJSON()}, nil
}
