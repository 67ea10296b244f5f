package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/tbd/internal/port/cache"
)

const (
	// HeaderIdempotencyKey names the client-chosen key for a retried POST.
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderReplayed marks a response served from the recorded copy.
	HeaderReplayed = "Idempotent-Replayed"

	maxIdempotencyBody = 1 << 20 // 1 MB
	idempotencyPrefix  = "idem:"
)

// idempotencyEntry stores a recorded HTTP response.
type idempotencyEntry struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
}

// Idempotency returns middleware that replays the recorded response of a
// POST carrying an Idempotency-Key seen within ttl. Requests sharing a key
// run the handler once, whether they are retried later or arrive while the
// first is still in flight, so a retried activation does not draw a second
// time. Only successful (2xx) responses are recorded; after a failure the
// next request with the key runs the handler again.
func Idempotency(store cache.Cache, ttl time.Duration) func(http.Handler) http.Handler {
	var inflight singleflight.Group

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderIdempotencyKey)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			cacheKey := idempotencyPrefix + r.URL.Path + ":" + key

			if recorded, ok := lookupRecorded(r.Context(), store, cacheKey); ok {
				replay(w, recorded)
				return
			}

			executed := false
			v, _, _ := inflight.Do(cacheKey, func() (any, error) {
				// A flight for the key may have finished since the lookup above.
				if recorded, ok := lookupRecorded(r.Context(), store, cacheKey); ok {
					return recorded, nil
				}
				executed = true
				return record(w, r, next, store, cacheKey, ttl), nil
			})
			if executed {
				return
			}
			if recorded, _ := v.(*idempotencyEntry); recorded != nil {
				replay(w, recorded)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func lookupRecorded(ctx context.Context, store cache.Cache, cacheKey string) (*idempotencyEntry, bool) {
	data, ok, err := store.Get(ctx, cacheKey)
	if err != nil || !ok {
		return nil, false
	}
	var recorded idempotencyEntry
	if err := json.Unmarshal(data, &recorded); err != nil {
		slog.WarnContext(ctx, "idempotency: corrupt cache entry", "key", cacheKey)
		return nil, false
	}
	return &recorded, true
}

// replay writes a recorded response. Recorded header values replace the
// ones outer middleware already set on w, since the recording was taken
// through the same chain.
func replay(w http.ResponseWriter, recorded *idempotencyEntry) {
	h := w.Header()
	for k, vals := range recorded.Headers {
		h[http.CanonicalHeaderKey(k)] = append([]string(nil), vals...)
	}
	h.Set(HeaderReplayed, "true")
	w.WriteHeader(recorded.StatusCode)
	_, _ = w.Write(recorded.Body)
}

// record runs next and stores its response when it is worth replaying.
// It returns the stored entry, or nil when nothing was recorded.
func record(w http.ResponseWriter, r *http.Request, next http.Handler, store cache.Cache, cacheKey string, ttl time.Duration) *idempotencyEntry {
	rec := &responseRecorder{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
	}
	next.ServeHTTP(rec, r)

	if rec.statusCode < 200 || rec.statusCode >= 300 || rec.body.Len() > maxIdempotencyBody {
		return nil
	}
	headers := w.Header().Clone()
	headers.Del(HeaderRequestID)
	recorded := &idempotencyEntry{
		StatusCode: rec.statusCode,
		Headers:    headers,
		Body:       rec.body.Bytes(),
	}
	data, err := json.Marshal(recorded)
	if err != nil {
		return nil
	}
	if err := store.Set(r.Context(), cacheKey, data, ttl); err != nil {
		slog.WarnContext(r.Context(), "idempotency: failed to store response", "key", cacheKey, "error", err)
	}
	return recorded
}

// responseRecorder wraps http.ResponseWriter to capture the response.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
