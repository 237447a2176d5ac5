package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sweeps/pkg/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        apperrors.Validation("Batch validation failed", map[string]any{"rows": "required"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperrors.CodeValidation,
			wantMsg:    "Batch validation failed",
		},
		{
			name:       "wrapped app error",
			err:        fmt.Errorf("import: %w", apperrors.InvalidInput("bad json")),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
			wantMsg:    "bad json",
		},
		{
			name:       "timeout",
			err:        apperrors.Timeout("Processing timed out"),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   apperrors.CodeTimeout,
			wantMsg:    "Processing timed out",
		},
		{
			name:       "plain error hides detail",
			err:        fmt.Errorf("mongo: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.CodeInternal,
			wantMsg:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteError(rec, tt.err))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestWritePaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WritePaginated(rec, []string{"a"}, 42, 10, 20))

	var body PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(42), body.TotalCount)
	assert.Equal(t, 10, body.Limit)
	assert.Equal(t, int64(20), body.Offset)
}

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{name: "defaults", query: "", wantLimit: 10, wantOffset: 0},
		{name: "explicit", query: "limit=25&offset=50", wantLimit: 25, wantOffset: 50},
		{name: "clamped", query: "limit=5000&offset=-4", wantLimit: 100, wantOffset: 0},
		{name: "bad limit", query: "limit=abc", wantErr: true},
		{name: "bad offset", query: "offset=x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/listings?"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}
