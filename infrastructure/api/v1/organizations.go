package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/domain/organization"
	"github.com/atas-platform/atas/infrastructure/api/jsonapi"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
	"github.com/atas-platform/atas/infrastructure/api/v1/dto"
)

// OrganizationsRouter handles organization and membership endpoints.
type OrganizationsRouter struct {
	client     *atas.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewOrganizationsRouter creates a new OrganizationsRouter.
func NewOrganizationsRouter(client *atas.Client) *OrganizationsRouter {
	return &OrganizationsRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for /organizations. Every route needs a
// caller.
func (r *OrganizationsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth(r.logger))

	router.Post("/", r.Create)
	router.Get("/{id}", r.Get)
	router.Get("/{id}/members", r.Members)
	router.Post("/{id}/members", r.AddMember)
	router.Delete("/{id}/members/{userID}", r.RemoveMember)

	return router
}

// Create handles POST /api/v1/organizations. The caller becomes its owner.
func (r *OrganizationsRouter) Create(w http.ResponseWriter, req *http.Request) {
	var body dto.OrganizationRequest
	if err := decode(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	o, err := r.client.Organizations.Create(req.Context(), viewer(req), body.Name, body.Description)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, jsonapi.NewSingleResponse(r.serializer.OrganizationResource(o)))
}

// Get handles GET /api/v1/organizations/{id}.
func (r *OrganizationsRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	o, err := r.client.Organizations.Get(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.OrganizationResource(o)))
}

// Members handles GET /api/v1/organizations/{id}/members.
func (r *OrganizationsRouter) Members(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	members, err := r.client.Organizations.Members(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(r.serializer.MembershipResources(members)))
}

// AddMember handles POST /api/v1/organizations/{id}/members.
func (r *OrganizationsRouter) AddMember(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	var body dto.MemberRequest
	if err := decode(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	role, err := organization.ParseMemberRole(body.Role)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	m, err := r.client.Organizations.AddMember(req.Context(), viewer(req), id, body.UserID, role)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, jsonapi.NewSingleResponse(r.serializer.MembershipResource(m)))
}

// RemoveMember handles DELETE /api/v1/organizations/{id}/members/{userID}.
func (r *OrganizationsRouter) RemoveMember(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	userID, err := pathID(req, "userID")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if err := r.client.Organizations.RemoveMember(req.Context(), viewer(req), id, userID); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
