package types

import (
	"encoding/json"
	"net/http"
)

// Audio is one uploaded audio file.
type Audio struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Shape string

const (
	ShapeSuccess  Shape = "success"
	ShapeFallback Shape = "fallback"
	ShapeError    Shape = "error"
)

// SuccessBody is returned when both transcription and cleanup succeeded.
type SuccessBody struct {
	Text         string `json:"text"`
	OriginalText string `json:"originalText"`
}

// FallbackBody carries the uncleaned transcript when cleanup failed.
type FallbackBody struct {
	Text          string `json:"text"`
	CleaningError string `json:"cleaningError"`
}

type ErrorBody struct {
	Error string `json:"error"`
}

// Response is exactly one of the three bodies above. Build it with Success,
// Fallback or Failure; the JSON form only ever contains that body's fields.
type Response struct {
	Shape         Shape
	Text          string
	OriginalText  string
	CleaningError string
	Error         string
	status        int
}

func Success(cleaned, original string) Response {
	return Response{Shape: ShapeSuccess, Text: cleaned, OriginalText: original, status: http.StatusOK}
}

func Fallback(original, cleaningError string) Response {
	return Response{Shape: ShapeFallback, Text: original, CleaningError: cleaningError, status: http.StatusOK}
}

func Failure(status int, message string) Response {
	return Response{Shape: ShapeError, Error: message, status: status}
}

// Status is the HTTP status code for the response.
func (r Response) Status() int {
	if r.status == 0 {
		return http.StatusInternalServerError
	}
	return r.status
}

// Body returns the shape-specific payload.
func (r Response) Body() any {
	switch r.Shape {
	case ShapeSuccess:
		return SuccessBody{Text: r.Text, OriginalText: r.OriginalText}
	case ShapeFallback:
		return FallbackBody{Text: r.Text, CleaningError: r.CleaningError}
	default:
		return ErrorBody{Error: r.Error}
	}
}

func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Body())
}
