package middleware

import (
	"net/http"
	"time"

	"carehive/internal/platform/logger"
	"carehive/internal/platform/metrics"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger loguea cada request con el id que pone chi (RequestID debe
// ir antes en la cadena) y lo cuenta en metrics.
func RequestLogger(log logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(r.Method, status)

			fields := map[string]any{
				"request_id":  chimw.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if status >= 500 {
				log.Warn("request", fields)
				return
			}
			log.Debug("request", fields)
		})
	}
}
