package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ingestgate/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("storage failure hides cause", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeStorage, "failed to persist event"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Internal server error", body.Error)
		assert.Nil(t, body.Details)
	})

	t.Run("foreign errors become 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("validation failure carries flattened details", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Validation("Invalid event data", nil, map[string][]string{
			"payload.userId": {"Required"},
		}))

		require.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Invalid event data", body["error"])
		details := body["details"].(map[string]any)
		assert.Equal(t, []any{}, details["formErrors"])
		fields := details["fieldErrors"].(map[string]any)
		assert.Equal(t, []any{"Required"}, fields["payload.userId"])
	})
}

func TestStatusFor(t *testing.T) {
	tests := map[dErrors.Code]int{
		dErrors.CodeMalformedInput:  http.StatusBadRequest,
		dErrors.CodeValidation:      http.StatusBadRequest,
		dErrors.CodeUnauthenticated: http.StatusUnauthorized,
		dErrors.CodeRateLimited:     http.StatusTooManyRequests,
		dErrors.CodeStorage:         http.StatusInternalServerError,
		dErrors.CodeNotFound:        http.StatusNotFound,
		dErrors.CodeDerivation:      http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusFor(code), "code %s", code)
	}
}
