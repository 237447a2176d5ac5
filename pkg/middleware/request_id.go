package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	apperrors "sweeps/pkg/errors"
	httputil "sweeps/pkg/http"
)

type contextKey string

const (
	RequestIDKey    contextKey = "request_id"
	RequestIDHeader            = "X-Request-ID"
)

// RequestIDFrom returns the ID RequestLogging stored on ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// requestID keeps a caller-supplied ID when it parses as a UUID.
func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		if err := uuid.Validate(id); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	_ = httputil.WriteError(w, err)
}
