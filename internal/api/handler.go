// Package api exposes the transcription pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"voice-cleanup-go/internal/logger"
	"voice-cleanup-go/internal/metrics"
	"voice-cleanup-go/internal/pipeline"
	"voice-cleanup-go/internal/types"
)

const (
	MethodNotAllowedMessage = "Method not allowed"
	FileTooLargeMessage     = "File too large"

	// multipart parts beyond this are spooled to disk by net/http.
	formMemoryBytes = 8 << 20
)

// Processor turns one upload into one response. *pipeline.Composer implements it.
type Processor interface {
	Handle(ctx context.Context, audio *types.Audio) types.Response
}

type Handler struct {
	processor      Processor
	maxUploadBytes int64
	log            *logger.Logger
}

func NewHandler(processor Processor, maxUploadBytes int64, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{processor: processor, maxUploadBytes: maxUploadBytes, log: log}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h.log.WithRequest(r).Debug("health check")
		fmt.Fprint(w, "ok")
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/transcribe", h.transcribe)
	return mux
}

func (h *Handler) transcribe(w http.ResponseWriter, r *http.Request) {
	reqLog := h.log.WithRequest(r).WithField("handler", "transcribe")

	if r.Method != http.MethodPost {
		reqLog.Warn("method not allowed")
		w.Header().Set("Allow", http.MethodPost)
		h.reject(w, reqLog, http.StatusMethodNotAllowed, MethodNotAllowedMessage)
		return
	}
	reqLog.Info("transcribe request received")

	audio, err := h.readAudio(w, r)
	switch {
	case tooLarge(err):
		reqLog.WithField("error", err.Error()).Warn("upload rejected")
		h.reject(w, reqLog, http.StatusRequestEntityTooLarge, FileTooLargeMessage)
		return
	case err != nil:
		reqLog.WithField("error", err.Error()).Error("failed to read upload")
		h.reject(w, reqLog, http.StatusInternalServerError, messageOr(err, pipeline.ServerErrorMessage))
		return
	}
	if audio != nil {
		reqLog = reqLog.WithField("filename", audio.Filename).WithField("size_bytes", len(audio.Data))
	}

	ctx := logger.IntoContext(r.Context(), reqLog)
	h.write(w, reqLog, h.processor.Handle(ctx, audio))
}

// readAudio returns nil audio when the request has no "file" part or is not
// multipart at all. Any other failure while reading the body is returned.
func (h *Handler) readAudio(w http.ResponseWriter, r *http.Request) (*types.Audio, error) {
	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			return nil, &http.MaxBytesError{Limit: h.maxUploadBytes}
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(formMemoryBytes); err != nil {
		if noFile(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		if noFile(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &types.Audio{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func noFile(err error) bool {
	return errors.Is(err, http.ErrNotMultipart) ||
		errors.Is(err, http.ErrMissingBoundary) ||
		errors.Is(err, http.ErrMissingFile)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// reject answers a request the pipeline never sees.
func (h *Handler) reject(w http.ResponseWriter, reqLog *logrus.Entry, status int, msg string) {
	resp := types.Failure(status, msg)
	metrics.RecordResponse(string(resp.Shape))
	h.write(w, reqLog, resp)
}

func messageOr(err error, fallback string) string {
	if err.Error() == "" {
		return fallback
	}
	return err.Error()
}

func (h *Handler) write(w http.ResponseWriter, reqLog *logrus.Entry, resp types.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status())
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		reqLog.WithField("error", err.Error()).Error("failed to write response")
	}
}
