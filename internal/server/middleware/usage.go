package middleware

import (
	"net/http"
	"time"

	"github.com/guildsight/guildsight/internal/service"
)

// RecordUsage returns an HTTP middleware that enqueues a usage record
// for every authenticated request after the handler completes. It must
// run after Authenticate; unauthenticated requests are skipped. The
// recorder never blocks the response path.
func RecordUsage(rec *service.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapResponseWriter(w)

			next.ServeHTTP(rw, r)

			ac := GetAuthContext(r.Context())
			if ac == nil {
				return
			}
			rec.Record(ac.CredentialID, r.URL.Path, r.Method, rw.status, time.Since(start))
		})
	}
}
