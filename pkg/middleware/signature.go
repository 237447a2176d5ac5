package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	apperrors "sweeps/pkg/errors"
	"sweeps/pkg/logger"
)

const SignatureHeader = "X-Signature-256"

// SignatureVerification requires POST bodies to carry an HMAC-SHA256 of the
// body under secret, hex encoded, optionally prefixed with "sha256=". It is
// meant for automated uploaders such as a spreadsheet export hook.
func SignatureVerification(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			signature := extractSignature(r)
			if signature == "" {
				rejectSignature(w, log, r, "missing "+SignatureHeader+" header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				rejectSignature(w, log, r, "failed to read request body")
				return
			}

			if !verifySignature(body, signature, secret) {
				rejectSignature(w, log, r, "signature mismatch")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractSignature(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(SignatureHeader))
	if signature, found := strings.CutPrefix(header, "sha256="); found {
		return signature
	}
	return header
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}

func verifySignature(body []byte, received, secret string) bool {
	return hmac.Equal([]byte(bodyMAC(body, secret)), []byte(strings.ToLower(received)))
}

// Sign returns the header value SignatureVerification expects for body.
func Sign(body []byte, secret string) string {
	return "sha256=" + bodyMAC(body, secret)
}

func bodyMAC(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func rejectSignature(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Request signature verification failed",
		"request_id", RequestIDFrom(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	writeError(w, apperrors.Unauthorized("Invalid request signature"))
}
