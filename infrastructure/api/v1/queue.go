package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/task"
	"github.com/atas-platform/atas/infrastructure/api/jsonapi"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
)

// QueueRouter exposes the pending embedding jobs to admins.
type QueueRouter struct {
	client     *atas.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewQueueRouter creates a new QueueRouter.
func NewQueueRouter(client *atas.Client) *QueueRouter {
	return &QueueRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for /queue.
func (r *QueueRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireRole(r.logger, account.RoleAdmin))

	router.Get("/", r.List)
	router.Get("/{id}", r.Get)

	return router
}

// List handles GET /api/v1/queue?operation=&page=&page_size=.
func (r *QueueRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	pg, err := parsePage(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	params := &service.TaskListParams{
		Limit:  pg.limit(),
		Offset: pg.offset(),
	}
	if raw := req.URL.Query().Get("operation"); raw != "" {
		op := task.Operation(raw)
		params.Operation = &op
	}

	tasks, err := r.client.Tasks.List(ctx, params)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	total, err := r.client.Tasks.Count(ctx)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	doc := jsonapi.NewListResponse(r.serializer.TaskResources(tasks))
	doc.Meta = pg.meta(&total)
	doc.Links = pg.links(req, total)
	middleware.WriteJSON(w, http.StatusOK, doc)
}

// Get handles GET /api/v1/queue/{id}.
func (r *QueueRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	t, err := r.client.Tasks.Get(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.TaskResource(t)))
}
