// Package middleware provides HTTP middleware shared by the API routes.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/tbd/internal/logger"
)

// HeaderRequestID carries the per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID tags every request with a correlation ID. A well-formed
// X-Request-ID from the client is reused, anything else is replaced by a
// fresh UUID. The ID lands in the context for logging and is echoed back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// validRequestID accepts printable ASCII only so the value is safe to log.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
