package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
		wantMsg    string
	}{
		{"not found", NotFound("Listing"), CodeNotFound, http.StatusNotFound, "Listing not found"},
		{"validation", Validation("Batch validation failed", nil), CodeValidation, http.StatusUnprocessableEntity, "Batch validation failed"},
		{"invalid input", InvalidInput("invalid JSON body"), CodeInvalidInput, http.StatusBadRequest, "invalid JSON body"},
		{"conflict", Conflict("run already imported"), CodeConflict, http.StatusConflict, "run already imported"},
		{"timeout", Timeout("Import timed out"), CodeTimeout, http.StatusGatewayTimeout, "Import timed out"},
		{"unavailable", Unavailable("Listing store"), CodeUnavailable, http.StatusServiceUnavailable, "Listing store is temporarily unavailable"},
		{"too large", TooLarge("batch exceeds 10 rows"), CodeTooLarge, http.StatusRequestEntityTooLarge, "batch exceeds 10 rows"},
		{"cancelled", Cancelled("Import was cancelled", nil), CodeCancelled, 499, "Import was cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode())
			assert.Equal(t, tt.wantMsg, tt.err.Message)
		})
	}
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: listing not found", New(CodeNotFound, "listing not found", http.StatusNotFound).Error())

	wrapped := Wrap(errors.New("connection refused"), CodeInternal, "store failed", http.StatusInternalServerError)
	assert.Equal(t, "INTERNAL_ERROR: store failed (caused by: connection refused)", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("write conflict")
	appErr := Internal("Failed to store listings", cause)

	assert.ErrorIs(t, appErr, cause)
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Listing", "https://example.com/enter")

	assert.Equal(t, "Listing", err.Details["resource"])
	assert.Equal(t, "https://example.com/enter", err.Details["id"])
}

func TestWithDetails(t *testing.T) {
	err := Validation("Batch validation failed", nil).WithDetails(map[string]any{"field": "rows"})

	assert.Equal(t, "rows", err.Details["field"])
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Listing")
	assert.Same(t, appErr, AsAppError(appErr))
	assert.Same(t, appErr, AsAppError(fmt.Errorf("lookup: %w", appErr)))

	plain := errors.New("boom")
	got := AsAppError(plain)
	assert.Equal(t, CodeInternal, got.Code)
	assert.ErrorIs(t, got, plain)

	assert.True(t, IsAppError(fmt.Errorf("wrapped: %w", appErr)))
	assert.False(t, IsAppError(plain))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"deadline", fmt.Errorf("process: %w", context.DeadlineExceeded), CodeTimeout},
		{"cancelled", context.Canceled, CodeCancelled},
		{"app error passes through", InvalidInput("bad"), CodeInvalidInput},
		{"other", errors.New("disk full"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromContext(tt.err, "Import")
			assert.Equal(t, tt.wantCode, got.Code)
		})
	}
}

func TestAppError_ToJSON(t *testing.T) {
	data := NotFoundWithID("Listing", "abc").ToJSON()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, CodeNotFound, resp.Code)
	assert.Equal(t, "Listing not found", resp.Message)
	assert.Equal(t, "abc", resp.Details["id"])
}
