package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/infrastructure/api/jsonapi"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
)

// NotificationsRouter lists and acknowledges the caller's notifications.
type NotificationsRouter struct {
	client     *atas.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewNotificationsRouter creates a new NotificationsRouter.
func NewNotificationsRouter(client *atas.Client) *NotificationsRouter {
	return &NotificationsRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for /notifications.
func (r *NotificationsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(r.logger))

	router.Get("/", r.List)
	router.Post("/{id}/read", r.MarkRead)

	return router
}

// List handles GET /api/v1/notifications?unread=true&page_size=.
func (r *NotificationsRouter) List(w http.ResponseWriter, req *http.Request) {
	pg, err := parsePage(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	unread := req.URL.Query().Get("unread") == "true"

	items, err := r.client.Notifications.List(req.Context(), viewer(req), unread, pg.limit())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(r.serializer.NotificationResources(items)))
}

// MarkRead handles POST /api/v1/notifications/{id}/read.
func (r *NotificationsRouter) MarkRead(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	n, err := r.client.Notifications.MarkRead(req.Context(), viewer(req), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.NotificationResource(n)))
}
