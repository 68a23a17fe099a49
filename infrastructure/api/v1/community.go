package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/infrastructure/api/jsonapi"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
	"github.com/atas-platform/atas/infrastructure/api/v1/dto"
)

// CommunityRouter serves the comm feed: posts, comments, likes and follows.
// Every route needs a caller.
type CommunityRouter struct {
	client     *atas.Client
	serializer *jsonapi.Serializer
	logger     *slog.Logger
}

// NewCommunityRouter creates a new CommunityRouter.
func NewCommunityRouter(client *atas.Client) *CommunityRouter {
	return &CommunityRouter{
		client:     client,
		serializer: jsonapi.NewSerializer(),
		logger:     client.Logger(),
	}
}

// Routes returns a router with /feed, /posts and /users.
func (r *CommunityRouter) Routes() chi.Router {
	router := chi.NewRouter()
	r.Mount(router)
	return router
}

// Mount registers the community routes directly on router, so they can
// share a prefix with other routers.
func (r *CommunityRouter) Mount(router chi.Router) {
	router.Group(func(router chi.Router) {
		router.Use(middleware.RequireAuth(r.logger))

		router.Get("/feed", r.Feed)

		router.Route("/posts", func(router chi.Router) {
			router.Post("/", r.CreatePost)
			router.Get("/{id}", r.GetPost)
			router.Delete("/{id}", r.DeletePost)
			router.Get("/{id}/comments", r.Comments)
			router.Post("/{id}/comments", r.Comment)
			router.Post("/{id}/like", r.Like)
			router.Delete("/{id}/like", r.Unlike)
		})

		router.Post("/users/{id}/follow", r.Follow)
		router.Delete("/users/{id}/follow", r.Unfollow)
	})
}

// Feed handles GET /api/v1/feed: posts by the caller and the users they
// follow, newest first.
func (r *CommunityRouter) Feed(w http.ResponseWriter, req *http.Request) {
	pg, err := parsePage(req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	posts, err := r.client.Community.Feed(req.Context(), viewer(req), pg.limit(), pg.offset())
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	doc := jsonapi.NewListResponse(r.serializer.PostResources(posts))
	doc.Meta = pg.meta(nil)
	middleware.WriteJSON(w, http.StatusOK, doc)
}

// CreatePost handles POST /api/v1/posts.
func (r *CommunityRouter) CreatePost(w http.ResponseWriter, req *http.Request) {
	var body dto.BodyRequest
	if err := decode(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	post, err := r.client.Community.CreatePost(req.Context(), viewer(req), body.Body)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, jsonapi.NewSingleResponse(r.serializer.PostResource(post)))
}

// GetPost handles GET /api/v1/posts/{id}.
func (r *CommunityRouter) GetPost(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	post, err := r.client.Community.GetPost(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewSingleResponse(r.serializer.PostResource(post)))
}

// DeletePost handles DELETE /api/v1/posts/{id}.
func (r *CommunityRouter) DeletePost(w http.ResponseWriter, req *http.Request) {
	r.noContent(w, req, "id", r.client.Community.DeletePost)
}

// Comments handles GET /api/v1/posts/{id}/comments.
func (r *CommunityRouter) Comments(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	comments, err := r.client.Community.Comments(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jsonapi.NewListResponse(r.serializer.CommentResources(comments)))
}

// Comment handles POST /api/v1/posts/{id}/comments.
func (r *CommunityRouter) Comment(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	var body dto.BodyRequest
	if err := decode(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	c, err := r.client.Community.Comment(req.Context(), viewer(req), id, body.Body)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, jsonapi.NewSingleResponse(r.serializer.CommentResource(c)))
}

// Like handles POST /api/v1/posts/{id}/like.
func (r *CommunityRouter) Like(w http.ResponseWriter, req *http.Request) {
	r.noContent(w, req, "id", r.client.Community.Like)
}

// Unlike handles DELETE /api/v1/posts/{id}/like.
func (r *CommunityRouter) Unlike(w http.ResponseWriter, req *http.Request) {
	r.noContent(w, req, "id", r.client.Community.Unlike)
}

// Follow handles POST /api/v1/users/{id}/follow.
func (r *CommunityRouter) Follow(w http.ResponseWriter, req *http.Request) {
	r.noContent(w, req, "id", r.client.Community.Follow)
}

// Unfollow handles DELETE /api/v1/users/{id}/follow.
func (r *CommunityRouter) Unfollow(w http.ResponseWriter, req *http.Request) {
	r.noContent(w, req, "id", r.client.Community.Unfollow)
}

func (r *CommunityRouter) noContent(w http.ResponseWriter, req *http.Request, param string, fn actorAction) {
	id, err := pathID(req, param)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if err := fn(req.Context(), viewer(req), id); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
