package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/example/calendar-bridge/internal/application"
)

// RequireAdmin guards the admin surface with HTTP basic auth checked against
// the configured argon2id credential.
func RequireAdmin(adminUser, adminPasswordHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="calendar-bridge"`)
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingCredentials)
				return
			}

			userMatches := subtle.ConstantTimeCompare([]byte(user), []byte(adminUser)) == 1
			if err := application.VerifyPassword(adminPasswordHash, password); err != nil || !userMatches {
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
					Message: "invalid administrative credentials",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
