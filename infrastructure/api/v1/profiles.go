package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/infrastructure/api/jsonapi"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
	"github.com/atas-platform/atas/infrastructure/api/v1/dto"
)

// ProfilesRouter handles expert profile endpoints.
type ProfilesRouter struct {
	client     *atas.Client
	search     *SearchHandlers
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewProfilesRouter creates a new ProfilesRouter.
func NewProfilesRouter(client *atas.Client) *ProfilesRouter {
	return &ProfilesRouter{
		client:     client,
		search:     NewSearchHandlers(client),
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for /profiles.
func (r *ProfilesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/semantic-search", r.search.Profiles)
	router.With(middleware.RequireAuth(r.logger)).Put("/me", r.UpdateMine)
	router.Get("/{userID}", r.Get)

	return router
}

// Get handles GET /api/v1/profiles/{userID}. Private profiles are only
// visible to their owner and admins.
func (r *ProfilesRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "userID")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	view, err := r.client.Profiles.Get(req.Context(), viewer(req), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.ProfileResource(view)))
}

// UpdateMine handles PUT /api/v1/profiles/me.
func (r *ProfilesRouter) UpdateMine(w http.ResponseWriter, req *http.Request) {
	var body dto.ProfileUpdateRequest
	if err := decode(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	update := account.ProfileUpdate{
		Title:        body.Title,
		Bio:          body.Bio,
		Skills:       body.Skills,
		Tags:         body.Tags,
		Availability: body.Availability,
	}
	if body.Visibility != nil {
		v, err := account.ParseVisibility(*body.Visibility)
		if err != nil {
			middleware.WriteError(w, req, err, r.logger)
			return
		}
		update.Visibility = &v
	}

	view, err := r.client.Profiles.Update(req.Context(), viewer(req), update)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.ProfileResource(view)))
}
