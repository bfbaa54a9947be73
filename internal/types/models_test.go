package types

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, r Response) map[string]any {
	t.Helper()
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestResponseShapesAreExclusive(t *testing.T) {
	tests := []struct {
		name   string
		resp   Response
		status int
		want   map[string]any
	}{
		{
			name:   "success",
			resp:   Success("Hello there.", "um, hello there"),
			status: http.StatusOK,
			want:   map[string]any{"text": "Hello there.", "originalText": "um, hello there"},
		},
		{
			name:   "fallback",
			resp:   Fallback("test", "rate limit"),
			status: http.StatusOK,
			want:   map[string]any{"text": "test", "cleaningError": "rate limit"},
		},
		{
			name:   "error",
			resp:   Failure(http.StatusBadRequest, "No file uploaded"),
			status: http.StatusBadRequest,
			want:   map[string]any{"error": "No file uploaded"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := decode(t, tt.resp)
			assert.Equal(t, tt.want, body)
			assert.Equal(t, tt.status, tt.resp.Status())

			present := 0
			for _, key := range []string{"originalText", "cleaningError", "error"} {
				if _, ok := body[key]; ok {
					present++
				}
			}
			assert.Equal(t, 1, present)
		})
	}
}

func TestSuccessKeepsEmptyFields(t *testing.T) {
	body := decode(t, Success("x", ""))
	assert.Contains(t, body, "originalText")
}

func TestZeroResponseIsServerError(t *testing.T) {
	var r Response
	assert.Equal(t, http.StatusInternalServerError, r.Status())
	assert.Equal(t, map[string]any{"error": ""}, decode(t, r))
}
