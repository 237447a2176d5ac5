package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"sweeps/internal/ingest"
	"sweeps/internal/listings/service"
	"sweeps/pkg/config"
	apperrors "sweeps/pkg/errors"
	httputil "sweeps/pkg/http"
	"sweeps/pkg/logger"
	"sweeps/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const contentTypeCSV = "text/csv"

// Query parameters accepted alongside a CSV body. JSON bodies carry their
// options inline.
const (
	paramSource        = "source"
	paramFuzzy         = "fuzzy"
	paramExactURL      = "exact_url"
	paramLive          = "live"
	paramMaxLiveChecks = "max_live_checks"
	paramLiveTimeoutMs = "live_timeout_ms"
)

type ListingHandler struct {
	service  service.ListingService
	csv      *ingest.Reader
	defaults model.ProcessOptions
	log      *logger.Logger
}

func NewListingHandler(service service.ListingService, cfg *config.Config) *ListingHandler {
	return &ListingHandler{
		service:  service,
		csv:      ingest.NewReader(cfg.CSVColumns()),
		defaults: cfg.ProcessOptions(),
		log:      cfg.Log,
	}
}

func (h *ListingHandler) Validate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := h.decodeBatch(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Validate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.Validate(r.Context(), req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Validate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Validate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) Import(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, err := h.decodeBatch(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Import", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	summary, err := h.service.Import(r.Context(), req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Import", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, summary); err != nil {
		h.log.Error("failed to write created response", "handler", "Import", "operation", "WriteCreated", "error", err)
	}
}

func (h *ListingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	listings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, listings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *ListingHandler) Lookup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("'url' query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Lookup", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	listing, err := h.service.GetByURL(r.Context(), rawURL)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Lookup", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, listing); err != nil {
		h.log.Error("failed to write success response", "handler", "Lookup", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) GetRun(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	summary, err := h.service.GetRun(r.Context(), ps.ByName("run_id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetRun", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, summary); err != nil {
		h.log.Error("failed to write success response", "handler", "GetRun", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) GetRunListings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetRunListings", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	listings, total, err := h.service.GetRunListings(r.Context(), ps.ByName("run_id"), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetRunListings", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, listings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetRunListings", "operation", "WritePaginated", "error", err)
	}
}

// decodeBatch reads a JSON BatchRequest, or a CSV document whose options come
// from the query string.
func (h *ListingHandler) decodeBatch(r *http.Request) (*model.BatchRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == contentTypeCSV {
		return h.decodeCSV(r)
	}

	var req model.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, bodyError(err, "Invalid request body")
	}
	return &req, nil
}

func (h *ListingHandler) decodeCSV(r *http.Request) (*model.BatchRequest, error) {
	query := r.URL.Query()

	opts, err := h.queryOptions(query)
	if err != nil {
		return nil, err
	}

	rows, err := h.csv.Read(r.Body)
	if err != nil {
		if errors.Is(err, ingest.ErrMissingColumn) || errors.Is(err, ingest.ErrNoHeader) {
			return nil, apperrors.InvalidInput(err.Error())
		}
		return nil, bodyError(err, "Invalid CSV body")
	}

	return &model.BatchRequest{
		Source:  query.Get(paramSource),
		Rows:    rows,
		Options: opts,
	}, nil
}

// queryOptions returns nil when no option parameter is present so the
// service falls back to its configured defaults.
func (h *ListingHandler) queryOptions(query url.Values) (*model.ProcessOptions, error) {
	get := func(key string) (string, bool) {
		return query.Get(key), query.Has(key)
	}

	opts := h.defaults
	set := false

	for key, dst := range map[string]*bool{
		paramFuzzy:    &opts.EnableFuzzyDuplicateDetection,
		paramExactURL: &opts.EnableExactURLDuplicateDetection,
		paramLive:     &opts.EnableLiveURLValidation,
	} {
		s, ok := get(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter: %s", key, s))
		}
		*dst = b
		set = true
	}

	if s, ok := get(paramMaxLiveChecks); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter: %s", paramMaxLiveChecks, s))
		}
		opts.MaxLiveChecks = n
		set = true
	}
	if s, ok := get(paramLiveTimeoutMs); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter: %s", paramLiveTimeoutMs, s))
		}
		opts.LiveCheckTimeoutMs = n
		set = true
	}

	if !set {
		return nil, nil
	}
	return &opts, nil
}

func bodyError(err error, message string) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperrors.TooLarge(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
	}
	if errors.Is(err, io.EOF) {
		return apperrors.InvalidInput("Request body is empty")
	}
	return apperrors.InvalidInput(message)
}

func (h *ListingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/listings/validate", h.Validate)
	router.POST("/api/v1/listings/import", h.Import)
	router.GET("/api/v1/listings", h.GetAll)
	router.GET("/api/v1/listings/lookup", h.Lookup)
	router.GET("/api/v1/listings/runs/:run_id", h.GetRun)
	router.GET("/api/v1/listings/runs/:run_id/listings", h.GetRunListings)
}
