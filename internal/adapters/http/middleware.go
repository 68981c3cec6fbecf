package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// observe logs every request and records it under its route pattern, so
// /api/entity/{id} is one series whatever the id.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		h.metrics.ObserveRequest(route, r.Method, status, elapsed)

		fields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		if id := middleware.GetReqID(r.Context()); id != "" {
			fields = append(fields, "request_id", id)
		}
		switch {
		case status >= 500:
			h.log.Error("http request", fields...)
		case status >= 400:
			h.log.Warn("http request", fields...)
		default:
			h.log.Info("http request", fields...)
		}
	})
}
