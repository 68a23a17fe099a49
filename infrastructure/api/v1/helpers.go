package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func pathID(req *http.Request, name string) (int64, error) {
	raw := chi.URLParam(req, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid %s %q", domain.ErrValidation, name, raw)
	}
	return id, nil
}

func decode(w http.ResponseWriter, req *http.Request, body any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(body); err != nil {
		return fmt.Errorf("%w: malformed body: %v", domain.ErrValidation, err)
	}
	return nil
}

// viewer returns the caller, or the zero Actor for anonymous requests.
func viewer(req *http.Request) service.Actor {
	actor, _ := middleware.ActorFrom(req.Context())
	return actor
}

// actorAction is a service call on one entity that returns only an error.
type actorAction func(ctx context.Context, actor service.Actor, id int64) error
