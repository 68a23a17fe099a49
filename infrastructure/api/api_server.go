package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/atas-platform/atas"
	apimiddleware "github.com/atas-platform/atas/infrastructure/api/middleware"
	v1 "github.com/atas-platform/atas/infrastructure/api/v1"
)

// requestTimeout bounds every non-streaming request.
const requestTimeout = 60 * time.Second

// Option configures an APIServer.
type Option func(*APIServer)

// WithCORSOrigins sets the allowed CORS origins. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(a *APIServer) { a.corsOrigins = origins }
}

// WithRateLimit limits each client address to rps requests per second with
// the given burst. Zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(a *APIServer) { a.limiter = apimiddleware.NewRateLimiter(rps, burst) }
}

// WithWebSocket mounts handler at /ws.
func WithWebSocket(handler http.Handler) Option {
	return func(a *APIServer) { a.websocket = handler }
}

// APIServer provides an HTTP API backed by an atas Client.
type APIServer struct {
	client      *atas.Client
	corsOrigins []string
	limiter     *apimiddleware.RateLimiter
	websocket   http.Handler
	routes      func(chi.Router)
	logger      *slog.Logger

	once    sync.Once
	handler http.Handler
}

// NewAPIServer creates the ATAS API: auth, profiles, events, bookings,
// organizations, notifications, the admin queue view and both semantic
// search endpoints.
func NewAPIServer(client *atas.Client, opts ...Option) *APIServer {
	a := newAPIServer(client, opts)
	a.routes = a.atasRoutes
	return a
}

// NewCommServer creates the comm API: auth, the community feed,
// notifications and, when configured, the WebSocket push endpoint.
func NewCommServer(client *atas.Client, opts ...Option) *APIServer {
	a := newAPIServer(client, opts)
	a.routes = a.commRoutes
	return a
}

func newAPIServer(client *atas.Client, opts []Option) *APIServer {
	a := &APIServer{
		client: client,
		logger: client.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the API with its middleware stack. The router is built
// on first use.
func (a *APIServer) Handler() http.Handler {
	a.once.Do(func() {
		router := chi.NewRouter()
		a.mountRoutes(router)
		a.handler = router
	})
	return a.handler
}

// ListenAndServe serves the API on addr until ctx is done, then shuts down
// gracefully.
func (a *APIServer) ListenAndServe(ctx context.Context, addr string, opts ...ServerOption) error {
	server := NewServer(addr, a.logger, opts...)
	server.Router().Mount("/", a.Handler())
	return server.Serve(ctx)
}

// mountRoutes applies the shared middleware stack, then the surface's routes.
func (a *APIServer) mountRoutes(router chi.Router) {
	router.Use(apimiddleware.Correlation)
	router.Use(apimiddleware.Logging(a.logger))
	if len(a.corsOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.corsOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", apimiddleware.CorrelationHeader},
			ExposedHeaders:   []string{apimiddleware.CorrelationHeader, apimiddleware.SearchModeHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if a.limiter != nil {
		router.Use(a.limiter.Middleware(a.logger))
	}

	router.Get("/health", a.health)
	if a.websocket != nil {
		router.Handle("/ws", a.websocket)
	}

	router.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))
		r.Use(apimiddleware.Authenticate(a.client.Auth, a.logger))
		a.routes(r)
	})
}

func (a *APIServer) atasRoutes(router chi.Router) {
	c := a.client
	search := v1.NewSearchHandlers(c)
	authRouter := v1.NewAuthRouter(c)
	eventsRouter := v1.NewEventsRouter(c)
	requireAuth := apimiddleware.RequireAuth(a.logger)

	// The semantic search endpoints are also served outside /api/v1.
	router.Get("/profiles/semantic-search", search.Profiles)
	router.Get("/events/semantic-search", search.Events)

	router.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authRouter.Routes())
		r.With(requireAuth).Get("/me", authRouter.Me)
		r.Mount("/profiles", v1.NewProfilesRouter(c).Routes())
		r.Mount("/events", eventsRouter.Routes())
		r.With(requireAuth).Get("/bookings", eventsRouter.Bookings)
		r.Mount("/organizations", v1.NewOrganizationsRouter(c).Routes())
		r.Mount("/notifications", v1.NewNotificationsRouter(c).Routes())
		r.Mount("/queue", v1.NewQueueRouter(c).Routes())
	})
}

func (a *APIServer) commRoutes(router chi.Router) {
	c := a.client
	authRouter := v1.NewAuthRouter(c)

	router.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authRouter.Routes())
		r.With(apimiddleware.RequireAuth(a.logger)).Get("/me", authRouter.Me)
		r.Mount("/notifications", v1.NewNotificationsRouter(c).Routes())
		v1.NewCommunityRouter(c).Mount(r)
	})
}

type healthResponse struct {
	Status       string `json:"status"`
	Database     string `json:"database"`
	Embeddings   string `json:"embeddings"`
	PendingTasks int64  `json:"pending_tasks"`
}

// health reports database reachability and whether embeddings are on.
func (a *APIServer) health(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Embeddings: "disabled"}
	if a.client.EmbeddingsEnabled() {
		resp.Embeddings = "enabled"
	}

	status := http.StatusOK
	if err := a.client.Ping(ctx); err != nil {
		a.logger.Warn("health check failed", "error", err)
		resp.Status, resp.Database = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	} else if n, err := a.client.Tasks.Count(ctx); err == nil {
		resp.PendingTasks = n
	}
	apimiddleware.WriteJSON(w, status, resp)
}
