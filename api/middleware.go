package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coreybb/eventhub/auth"
	"github.com/coreybb/eventhub/logging"
	"github.com/coreybb/eventhub/webutil"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RequestLogger logs every request once it has been served.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// RequireAuth resolves the bearer token to a user and stores it on the
// request context. Any failure ends the request with 401.
func RequireAuth(svc *auth.Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				webutil.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					webutil.RespondWithError(w, http.StatusUnauthorized, "Token expired")
				case errors.Is(err, auth.ErrUnauthorized):
					webutil.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
				default:
					log.Error("failed to authenticate request",
						slog.String("request_id", middleware.GetReqID(r.Context())),
						logging.Err(err),
					)
					webutil.RespondWithError(w, http.StatusInternalServerError, "Internal Server Error")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(webutil.HeaderAuthorization)
	if len(header) < len(webutil.BearerPrefix) || !strings.EqualFold(header[:len(webutil.BearerPrefix)], webutil.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(webutil.BearerPrefix):])
	return token, token != ""
}

// CORS allows the configured frontend origin to call the API with credentials.
func CORS(frontendURL string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{webutil.HeaderAccept, webutil.HeaderAuthorization, webutil.HeaderContentType},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
