package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jonathanlei/messagely/internal/auth"
	"github.com/jonathanlei/messagely/internal/metrics"
)

type ctxKey int

const principalKey ctxKey = 0

// principal returns the authenticated username, empty outside requireAuth.
func principal(ctx context.Context) string {
	u, _ := ctx.Value(principalKey).(string)
	return u
}

// requireAuth resolves "Authorization: Bearer <token>" to a principal and
// stores it on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errBody("unauthorized", errors.New("missing bearer token")))
			return
		}
		username, err := auth.UsernameFromToken(token, s.secret)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errBody("unauthorized", errors.New("invalid token")))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, username)))
	})
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// Default to path; try to replace with the route pattern.
		handler := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if rp := rc.RoutePattern(); rp != "" {
				handler = rp
			}
		}

		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start).Seconds()

		metrics.HTTPRequests.WithLabelValues(handler, r.Method, http.StatusText(ww.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(handler, r.Method).Observe(elapsed)
	})
}
