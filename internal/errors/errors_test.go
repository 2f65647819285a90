package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedpulse/internal/shared/testutil"
)

func TestAPIErrorImplementsError(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad input")
	assert.Equal(t, "bad input", err.Error())
}

func TestHandleErrorRendersAPIError(t *testing.T) {
	logger, captured := testutil.NewCaptureLogger()
	h := NewErrorHandler(logger)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/housing/upload", nil)
	h.HandleError(w, r, ErrMissingColumns)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "MISSING_COLUMNS", resp.Error.ErrorCode)

	assert.True(t, captured.HasMessage("request failed"))
}

func TestHandleErrorWrappedAPIError(t *testing.T) {
	logger, _ := testutil.NewCaptureLogger()
	h := NewErrorHandler(logger)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/housing/grouped", nil)
	h.HandleError(w, r, fmt.Errorf("context: %w", ErrValidationFailed))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleErrorUnknownErrorIsInternal(t *testing.T) {
	logger, _ := testutil.NewCaptureLogger()
	h := NewErrorHandler(logger)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/housing/history", nil)
	h.HandleError(w, r, fmt.Errorf("disk exploded at /dev/sda1"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "/dev/sda1", "internal detail must not leak to clients")
}
