package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"message": "test"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteOK(w, map[string]string{"state": "primary"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"primary"}`, w.Body.String())
}

func TestWriteAccepted(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteAccepted(w, map[string]string{"id": "123", "status": "pending"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"id":"123","status":"pending"}`, w.Body.String())
}

func TestWriteBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	details := map[string]interface{}{"idea": "idea is required"}

	err := WriteBadRequest(w, "Validation failed", details)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "bad_request", response.Error)
	assert.Equal(t, "Validation failed", response.Message)
	assert.Equal(t, "idea is required", response.Details["idea"])
}

func TestDefaultMessages(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter) error
		status  int
		errType string
		message string
	}{
		{
			name:    "not found",
			write:   func(w http.ResponseWriter) error { return WriteNotFound(w, "") },
			status:  http.StatusNotFound,
			errType: "not_found",
			message: "Resource not found",
		},
		{
			name:    "too many requests",
			write:   func(w http.ResponseWriter) error { return WriteTooManyRequests(w, "", nil) },
			status:  http.StatusTooManyRequests,
			errType: "rate_limit_exceeded",
			message: "Rate limit exceeded",
		},
		{
			name:    "internal error",
			write:   func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") },
			status:  http.StatusInternalServerError,
			errType: "internal_error",
			message: "Internal server error",
		},
		{
			name:    "service unavailable",
			write:   func(w http.ResponseWriter) error { return WriteServiceUnavailable(w, "", nil) },
			status:  http.StatusServiceUnavailable,
			errType: "service_unavailable",
			message: "Service temporarily unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.status, w.Code)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.errType, response.Error)
			assert.Equal(t, tt.message, response.Message)
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name              string
		status            int
		expectedErrorType string
	}{
		{"bad request", http.StatusBadRequest, "bad_request"},
		{"not found", http.StatusNotFound, "not_found"},
		{"method not allowed", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"rate limit", http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"bad gateway", http.StatusBadGateway, "bad_gateway"},
		{"unavailable", http.StatusServiceUnavailable, "service_unavailable"},
		{"internal", http.StatusInternalServerError, "internal_error"},
		{"unmapped", http.StatusTeapot, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			err := WriteError(w, tt.status, "message", map[string]interface{}{"k": "v"})
			require.NoError(t, err)

			assert.Equal(t, tt.status, w.Code)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedErrorType, response.Error)
			assert.Equal(t, "message", response.Message)
			assert.Equal(t, "v", response.Details["k"])
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Idea string `json:"idea"`
	}

	tests := []struct {
		name    string
		payload string
		want    string
		errMsg  string
	}{
		{name: "valid", payload: `{"idea":"A dog walking app"}`, want: "A dog walking app"},
		{name: "empty body", payload: ``, errMsg: "request body is required"},
		{name: "malformed", payload: `{"idea":`, errMsg: "invalid JSON body"},
		{name: "unknown field", payload: `{"idea":"x","budget":1}`, errMsg: "invalid JSON body"},
		{name: "trailing object", payload: `{"idea":"x"}{"idea":"y"}`, errMsg: "single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))

			var dst body
			err := DecodeJSON(req, &dst)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dst.Idea)
		})
	}
}
