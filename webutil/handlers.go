package webutil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// AppHandler represents a handler function that returns an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to the standard http.HandlerFunc signature.
// It executes the AppHandler and handles any returned error by logging appropriately
// and sending a standardized JSON error response.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		err := handler(ww, r)
		if err == nil {
			// The handler wrote its own successful response.
			return
		}

		body, statusCode := errorResponse(r, err)

		if ww.Status() != 0 {
			slog.Warn("Handler returned error after writing response header",
				"path", r.URL.Path,
				"method", r.Method,
				"error", err,
			)
			return
		}

		RespondWithJSON(ww, statusCode, body)
	}
}

func errorResponse(r *http.Request, err error) (ErrorResponse, int) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		slog.ErrorContext(r.Context(), "Unhandled internal error",
			"path", r.URL.Path,
			"method", r.Method,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		return ErrorResponse{Message: msgInternalServer}, http.StatusInternalServerError
	}

	// Client errors are warnings server-side.
	logLevel := slog.LevelWarn
	if httpErr.Code >= http.StatusInternalServerError {
		logLevel = slog.LevelError
	}

	attrs := []any{
		"code", httpErr.Code,
		"msg", httpErr.Message,
		"path", r.URL.Path,
		"method", r.Method,
		"request_id", middleware.GetReqID(r.Context()),
	}
	if cause := errors.Unwrap(httpErr); cause != nil && cause.Error() != httpErr.Message {
		attrs = append(attrs, "cause", cause)
	}
	slog.Log(r.Context(), logLevel, "Client error response", attrs...)

	return ErrorResponse{Message: httpErr.Message, Errors: httpErr.Fields}, httpErr.Code
}
