package http

import (
	"net/http"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HTTPObserver получает длительность каждого запроса.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// snapshotMiddleware кладёт в контекст снимок реестра депонентов на время запроса.
// Если снимок недоступен, сценарии загрузят его сами.
func snapshotMiddleware(provider usecase.SnapshotProvider, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, err := provider.Snapshot(r.Context())
			if err != nil {
				log.Warnf("depositor snapshot unavailable: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(usecase.ContextWithSnapshot(r.Context(), snap)))
		})
	}
}

// bodyLimit ограничивает размер тела запроса.
func bodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accessLog(log logger.Logger, observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			if observer != nil {
				observer.ObserveHTTP(r.Method, route, status, elapsed)
			}
			log.Debugf("%s %s %d %s", r.Method, r.URL.Path, status, elapsed)
		})
	}
}
