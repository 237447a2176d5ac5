package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"sweeps/internal/ingest"
	"sweeps/pkg/config"
	apperrors "sweeps/pkg/errors"
	"sweeps/pkg/logger"
	"sweeps/pkg/model"
)

type mockListingService struct {
	validateFunc       func(ctx context.Context, req *model.BatchRequest) (*model.ProcessResult, error)
	importFunc         func(ctx context.Context, req *model.BatchRequest) (*model.ImportSummary, error)
	getAllFunc         func(ctx context.Context, limit int, offset int64) ([]*model.Listing, int64, error)
	getByURLFunc       func(ctx context.Context, rawURL string) (*model.Listing, error)
	getRunFunc         func(ctx context.Context, runID string) (*model.ImportSummary, error)
	getRunListingsFunc func(ctx context.Context, runID string, limit int, offset int64) ([]*model.Listing, int64, error)
}

func (m *mockListingService) Validate(ctx context.Context, req *model.BatchRequest) (*model.ProcessResult, error) {
	if m.validateFunc != nil {
		return m.validateFunc(ctx, req)
	}
	return &model.ProcessResult{}, nil
}

func (m *mockListingService) Import(ctx context.Context, req *model.BatchRequest) (*model.ImportSummary, error) {
	if m.importFunc != nil {
		return m.importFunc(ctx, req)
	}
	return &model.ImportSummary{}, nil
}

func (m *mockListingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Listing, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, limit, offset)
	}
	return []*model.Listing{}, 0, nil
}

func (m *mockListingService) GetByURL(ctx context.Context, rawURL string) (*model.Listing, error) {
	if m.getByURLFunc != nil {
		return m.getByURLFunc(ctx, rawURL)
	}
	return &model.Listing{}, nil
}

func (m *mockListingService) GetRun(ctx context.Context, runID string) (*model.ImportSummary, error) {
	if m.getRunFunc != nil {
		return m.getRunFunc(ctx, runID)
	}
	return &model.ImportSummary{}, nil
}

func (m *mockListingService) GetRunListings(ctx context.Context, runID string, limit int, offset int64) ([]*model.Listing, int64, error) {
	if m.getRunListingsFunc != nil {
		return m.getRunListingsFunc(ctx, runID, limit, offset)
	}
	return []*model.Listing{}, 0, nil
}

func newTestHandler(svc *mockListingService) (*ListingHandler, *httprouter.Router) {
	h := &ListingHandler{
		service:  svc,
		csv:      ingest.NewReader(config.Columns{}),
		defaults: model.DefaultProcessOptions(),
		log:      logger.Discard(),
	}
	router := httprouter.New()
	h.RegisterRoutes(router)
	return h, router
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestValidate_JSONBody(t *testing.T) {
	var got *model.BatchRequest
	svc := &mockListingService{
		validateFunc: func(_ context.Context, req *model.BatchRequest) (*model.ProcessResult, error) {
			got = req
			return &model.ProcessResult{Diagnostics: model.Diagnostics{TotalRows: len(req.Rows)}}, nil
		},
	}
	_, router := newTestHandler(svc)

	body := `{"source":"sheet","rows":[{"title":"Win","url":"https://a.com","end_date":45838,"row_index":0}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "sheet", got.Source)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, model.KindNumber, got.Rows[0].EndDate.Kind())
	assert.Nil(t, got.Options)

	var resp struct {
		Data model.ProcessResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Diagnostics.TotalRows)
}

func TestImport_CSVBody(t *testing.T) {
	var got *model.BatchRequest
	svc := &mockListingService{
		importFunc: func(_ context.Context, req *model.BatchRequest) (*model.ImportSummary, error) {
			got = req
			return &model.ImportSummary{RunID: "run-1", Stored: len(req.Rows)}, nil
		},
	}
	_, router := newTestHandler(svc)

	body := "Scrub_Title,Entry_Link,End_Date\nWin a Car,https://a.com,2025-06-30\nTrip,https://b.com,\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/import?source=upload&fuzzy=true&max_live_checks=7", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv; charset=utf-8")

	w := serve(router, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "upload", got.Source)
	assert.Len(t, got.Rows, 2)
	require.NotNil(t, got.Options)
	assert.True(t, got.Options.EnableFuzzyDuplicateDetection)
	assert.Equal(t, 7, got.Options.MaxLiveChecks)
	assert.Equal(t, model.DefaultProcessOptions().EnableExactURLDuplicateDetection, got.Options.EnableExactURLDuplicateDetection)
}

func TestImport_RejectedBodies(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		path        string
		body        string
		wantStatus  int
	}{
		{
			name:        "malformed json",
			contentType: "application/json",
			path:        "/api/v1/listings/import",
			body:        `{"rows":`,
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "empty json body",
			contentType: "application/json",
			path:        "/api/v1/listings/import",
			body:        "",
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "csv missing column",
			contentType: "text/csv",
			path:        "/api/v1/listings/import",
			body:        "Scrub_Title,Entry_Link\nA,B\n",
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "csv bad option",
			contentType: "text/csv",
			path:        "/api/v1/listings/import?live=maybe",
			body:        "Scrub_Title,Entry_Link,End_Date\nA,B,C\n",
			wantStatus:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockListingService{
				importFunc: func(context.Context, *model.BatchRequest) (*model.ImportSummary, error) {
					called = true
					return &model.ImportSummary{}, nil
				},
			}
			_, router := newTestHandler(svc)

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			w := serve(router, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, called)
		})
	}
}

func TestImport_BodyTooLarge(t *testing.T) {
	h, _ := newTestHandler(&mockListingService{})

	body := `{"rows":[{"title":"` + strings.Repeat("x", 256) + `"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(w, req.Body, 32)

	h.Import(w, req, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestImport_ServiceErrorMapped(t *testing.T) {
	svc := &mockListingService{
		importFunc: func(context.Context, *model.BatchRequest) (*model.ImportSummary, error) {
			return nil, apperrors.Validation("Batch validation failed", map[string]any{"rows[0].row_index": "must be at least 0"})
		},
	}
	_, router := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/import", strings.NewReader(`{"rows":[{"row_index":-1}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := serve(router, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeValidation)
}

func TestGetAll_Pagination(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	svc := &mockListingService{
		getAllFunc: func(_ context.Context, limit int, offset int64) ([]*model.Listing, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Listing{{Title: "Win"}}, 12, nil
		},
	}
	_, router := newTestHandler(svc)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{name: "valid", query: "?limit=5&offset=10", wantStatus: http.StatusOK},
		{name: "alphabetic limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "alphabetic offset", query: "?offset=xyz", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/listings"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, int64(10), gotOffset)
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
	}{
		{name: "found", query: "?url=https%3A%2F%2Fa.com%2Fx", wantStatus: http.StatusOK},
		{name: "missing parameter", query: "", wantStatus: http.StatusBadRequest},
		{name: "not found", query: "?url=https%3A%2F%2Fb.com", err: apperrors.NotFound("Listing"), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotURL string
			svc := &mockListingService{
				getByURLFunc: func(_ context.Context, rawURL string) (*model.Listing, error) {
					gotURL = rawURL
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.Listing{URL: rawURL}, nil
				},
			}
			_, router := newTestHandler(svc)

			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/listings/lookup"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.name == "found" {
				assert.Equal(t, "https://a.com/x", gotURL)
			}
		})
	}
}

func TestGetRun_RoutesRunID(t *testing.T) {
	var gotRun, gotListingsRun string
	svc := &mockListingService{
		getRunFunc: func(_ context.Context, runID string) (*model.ImportSummary, error) {
			gotRun = runID
			return &model.ImportSummary{RunID: runID}, nil
		},
		getRunListingsFunc: func(_ context.Context, runID string, _ int, _ int64) ([]*model.Listing, int64, error) {
			gotListingsRun = runID
			return nil, 0, nil
		},
	}
	_, router := newTestHandler(svc)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/listings/runs/abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", gotRun)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/listings/runs/abc/listings", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", gotListingsRun)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context, *readpref.ReadPref) error { return p.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
		wantHealth string
	}{
		{name: "health", path: "/health", wantStatus: http.StatusOK, wantHealth: "ok"},
		{name: "ready", path: "/ready", wantStatus: http.StatusOK, wantHealth: "ready"},
		{name: "not ready", path: "/ready", pingErr: errors.New("no primary"), wantStatus: http.StatusServiceUnavailable, wantHealth: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(stubPinger{err: tt.pingErr}, logger.Discard()).RegisterRoutes(router)

			w := serve(router, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantHealth, resp.Status)
		})
	}
}
