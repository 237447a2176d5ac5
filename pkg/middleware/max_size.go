package middleware

import (
	"fmt"
	"net/http"

	apperrors "sweeps/pkg/errors"
)

// MaxRequestSize caps the body at limit bytes. Reads past the cap fail with
// *http.MaxBytesError, which handlers report as 413.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, apperrors.TooLarge(fmt.Sprintf("request body exceeds %d bytes", limit)))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
