package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/infrastructure/api/jsonapi"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
	"github.com/atas-platform/atas/infrastructure/api/v1/dto"
)

// AuthRouter handles registration, login and the caller's own account.
type AuthRouter struct {
	client     *atas.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewAuthRouter creates a new AuthRouter.
func NewAuthRouter(client *atas.Client) *AuthRouter {
	return &AuthRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns the chi router for /auth.
func (r *AuthRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", r.Register)
	router.Post("/login", r.Login)

	return router
}

// Register handles POST /api/v1/auth/register.
func (r *AuthRouter) Register(w http.ResponseWriter, req *http.Request) {
	var body dto.RegisterRequest
	if err := decode(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	session, err := r.client.Auth.Register(req.Context(), service.RegisterParams{
		Email:    body.Email,
		Password: body.Password,
		FullName: body.FullName,
		Role:     body.Role,
	})
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, r.session(session))
}

// Login handles POST /api/v1/auth/login.
func (r *AuthRouter) Login(w http.ResponseWriter, req *http.Request) {
	var body dto.LoginRequest
	if err := decode(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	session, err := r.client.Auth.Login(req.Context(), body.Email, body.Password)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, r.session(session))
}

// Me handles GET /api/v1/me.
func (r *AuthRouter) Me(w http.ResponseWriter, req *http.Request) {
	user, err := r.client.Auth.Me(req.Context(), viewer(req))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.UserResource(user)))
}

func (r *AuthRouter) session(s service.Session) dto.SessionResponse {
	return dto.SessionResponse{
		AccessToken: s.Token,
		TokenType:   "bearer",
		ExpiresAt:   s.ExpiresAt,
		User:        r.serializer.UserResource(s.User),
	}
}
