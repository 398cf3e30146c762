package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coreybb/eventhub/auth"
	"github.com/coreybb/eventhub/metrics"
	rh "github.com/coreybb/eventhub/route-handlers"
	"github.com/coreybb/eventhub/webutil"
)

const (
	apiBasePath    = "/api"
	authBasePath   = "/auth"
	eventsBasePath = "/events"
)

const (
	paramID = "id" // General parameter name for resource IDs
)

const defaultRequestTimeout = 60 * time.Second

type RouterOptions struct {
	FrontendURL    string
	RequestTimeout time.Duration
}

func SetupRoutes(
	log *slog.Logger,
	authService *auth.Service,
	authHandler *rh.AuthHandler,
	eventHandler *rh.EventHandler,
	m *metrics.Metrics,
	opts RouterOptions,
) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}
	r.Use(middleware.Timeout(opts.RequestTimeout))
	if opts.FrontendURL != "" {
		r.Use(CORS(opts.FrontendURL))
	}

	requireAuth := RequireAuth(authService, log)

	r.Route(apiBasePath, func(r chi.Router) {
		configureAuthRoutes(r, authHandler, requireAuth)
		configureEventRoutes(r, eventHandler, requireAuth)
	})

	r.NotFound(webutil.MakeHandler(func(http.ResponseWriter, *http.Request) error {
		return webutil.ErrNotFound("")
	}))
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		webutil.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- Auth Routes ---
func configureAuthRoutes(r chi.Router, handler *rh.AuthHandler, requireAuth func(http.Handler) http.Handler) {
	r.Route(authBasePath, func(r chi.Router) {
		r.Post("/register", webutil.MakeHandler(handler.HandleRegister))
		r.Post("/login", webutil.MakeHandler(handler.HandleLogin))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/verify", webutil.MakeHandler(handler.HandleVerify))
			r.Post("/refresh", webutil.MakeHandler(handler.HandleRefresh))
			r.Get("/me", webutil.MakeHandler(handler.HandleMe))
		})
	})
}

// --- Event Routes ---
func configureEventRoutes(r chi.Router, handler *rh.EventHandler, requireAuth func(http.Handler) http.Handler) {
	specificEventPath := pathWithParam("", paramID) // e.g., "/{id}"

	r.Route(eventsBasePath, func(r chi.Router) {
		// Public listings
		r.Get("/", webutil.MakeHandler(handler.HandleGetEvents))
		r.Get("/upcoming", webutil.MakeHandler(handler.HandleGetUpcomingEvents))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", webutil.MakeHandler(handler.HandleCreateEvent))
			r.Get("/my-events", webutil.MakeHandler(handler.HandleGetMyEvents))
			r.Route(specificEventPath, func(r chi.Router) {
				r.Get("/", webutil.MakeHandler(handler.HandleGetEvent))
				r.Put("/", webutil.MakeHandler(handler.HandleUpdateEvent))
				r.Delete("/", webutil.MakeHandler(handler.HandleDeleteEvent))
				r.Post("/join", webutil.MakeHandler(handler.HandleJoinEvent)) // POST /events/{id}/join
			})
		})
	})
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
