package http

import (
	"context"
	"net/http"
	"time"

	"github.com/etrshop/etr-brand/internal/logger"
	"github.com/etrshop/etr-brand/internal/repository"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// VisitorCookie identifies one browsing context. Its value is a uuid.
const VisitorCookie = "etr_visitor"

const visitorMaxAge = 365 * 24 * time.Hour

type cartKeyCtx struct{}

// VisitorMiddleware reads the visitor cookie, issuing a fresh one when it is
// missing or not a uuid, and stores the cart key derived from it in the
// request context.
func VisitorMiddleware(prefix string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(VisitorCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     VisitorCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   int(visitorMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), cartKeyCtx{}, repository.Key(prefix, id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cartKeyFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(cartKeyCtx{}).(string); ok {
		return key
	}
	return ""
}

// RequestLogger replaces chi's middleware.Logger with a zerolog access log
// and attaches the request id to the context logger.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}
			ctx := log.WithRequestID(r.Context(), requestID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			log.Zerolog().Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}
