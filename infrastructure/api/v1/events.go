package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/event"
	"github.com/atas-platform/atas/infrastructure/api/jsonapi"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
	"github.com/atas-platform/atas/infrastructure/api/v1/dto"
)

// EventsRouter handles event and booking endpoints.
type EventsRouter struct {
	client     *atas.Client
	search     *SearchHandlers
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewEventsRouter creates a new EventsRouter.
func NewEventsRouter(client *atas.Client) *EventsRouter {
	return &EventsRouter{
		client:     client,
		search:     NewSearchHandlers(client),
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for /events.
func (r *EventsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Get("/semantic-search", r.search.Events)
	router.Get("/{id}", r.Get)

	router.Group(func(router chi.Router) {
		router.Use(middleware.RequireAuth(r.logger))
		router.With(middleware.RequireRole(r.logger, account.RoleOrganizer)).Post("/", r.Create)
		router.Put("/{id}", r.Update)
		router.Post("/{id}/publish", r.Publish)
		router.Post("/{id}/cancel", r.Cancel)
		router.Delete("/{id}", r.Delete)
		router.Post("/{id}/bookings", r.Book)
		router.Delete("/{id}/bookings", r.CancelBooking)
	})

	return router
}

// List handles GET /api/v1/events.
func (r *EventsRouter) List(w http.ResponseWriter, req *http.Request) {
	pg, err := parsePage(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	params := service.EventListParams{
		Limit:  pg.limit(),
		Offset: pg.offset(),
	}
	q := req.URL.Query()
	if raw := q.Get("format"); raw != "" {
		format, err := event.ParseFormat(raw)
		if err != nil {
			middleware.WriteError(w, req, err, r.logger)
			return
		}
		params.Format = format
	}
	if raw := q.Get("organizer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			middleware.WriteError(w, req, fmt.Errorf("%w: organizer_id must be a positive integer", domain.ErrValidation), r.logger)
			return
		}
		params.OrganizerID = id
	}

	events, err := r.client.Events.List(req.Context(), params)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	doc := jsonapi.NewListResponse(r.serializer.EventResources(events))
	doc.Meta = pg.meta(nil)
	middleware.WriteJSON(w, http.StatusOK, doc)
}

// Get handles GET /api/v1/events/{id}. Drafts are only visible to their
// organizer and admins.
func (r *EventsRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	e, err := r.client.Events.Get(req.Context(), viewer(req), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	r.writeEvent(w, http.StatusOK, e)
}

// Create handles POST /api/v1/events.
func (r *EventsRouter) Create(w http.ResponseWriter, req *http.Request) {
	details, err := r.details(w, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	e, err := r.client.Events.Create(req.Context(), viewer(req), details)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	r.writeEvent(w, http.StatusCreated, e)
}

// Update handles PUT /api/v1/events/{id}.
func (r *EventsRouter) Update(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	details, err := r.details(w, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	e, err := r.client.Events.Update(req.Context(), viewer(req), id, details)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	r.writeEvent(w, http.StatusOK, e)
}

// Publish handles POST /api/v1/events/{id}/publish.
func (r *EventsRouter) Publish(w http.ResponseWriter, req *http.Request) {
	r.transition(w, req, r.client.Events.Publish)
}

// Cancel handles POST /api/v1/events/{id}/cancel.
func (r *EventsRouter) Cancel(w http.ResponseWriter, req *http.Request) {
	r.transition(w, req, r.client.Events.Cancel)
}

// Delete handles DELETE /api/v1/events/{id}. The event's embedding and
// pending embedding job go with it.
func (r *EventsRouter) Delete(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if err := r.client.Events.Delete(req.Context(), viewer(req), id); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Book handles POST /api/v1/events/{id}/bookings.
func (r *EventsRouter) Book(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	b, err := r.client.Bookings.Book(req.Context(), viewer(req), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, jsonapi.NewSingleResponse(r.serializer.BookingResource(b)))
}

// CancelBooking handles DELETE /api/v1/events/{id}/bookings.
func (r *EventsRouter) CancelBooking(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	b, err := r.client.Bookings.Cancel(req.Context(), viewer(req), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.BookingResource(b)))
}

// Bookings handles GET /api/v1/bookings.
func (r *EventsRouter) Bookings(w http.ResponseWriter, req *http.Request) {
	bookings, err := r.client.Bookings.Mine(req.Context(), viewer(req))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(r.serializer.BookingResources(bookings)))
}

func (r *EventsRouter) transition(w http.ResponseWriter, req *http.Request, fn func(ctx context.Context, actor service.Actor, id int64) (event.Event, error)) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	e, err := fn(req.Context(), viewer(req), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	r.writeEvent(w, http.StatusOK, e)
}

func (r *EventsRouter) details(w http.ResponseWriter, req *http.Request) (event.Details, error) {
	var body dto.EventRequest
	if err := decode(w, req, &body); err != nil {
		return event.Details{}, err
	}
	format, err := event.ParseFormat(body.Format)
	if err != nil {
		return event.Details{}, err
	}
	details := event.Details{
		OrganizationID: body.OrganizationID,
		Title:          body.Title,
		Description:    body.Description,
		Format:         format,
		Location:       body.Location,
		StartsAt:       body.StartsAt,
		Capacity:       body.Capacity,
	}
	if body.EndsAt != nil {
		details.EndsAt = *body.EndsAt
	}
	return details, nil
}

func (r *EventsRouter) writeEvent(w http.ResponseWriter, status int, e event.Event) {
	middleware.WriteJSON(w, status, jsonapi.NewSingleResponse(r.serializer.EventResource(e)))
}
