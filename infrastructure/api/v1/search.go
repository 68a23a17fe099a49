package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/event"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
	"github.com/atas-platform/atas/infrastructure/api/v1/dto"
	"github.com/atas-platform/atas/internal/config"
)

// SearchHandlers serve the semantic search endpoints. They answer with a
// JSON array and report the path taken in the X-Search-Mode header.
type SearchHandlers struct {
	client *atas.Client
	logger *slog.Logger
}

// NewSearchHandlers creates SearchHandlers.
func NewSearchHandlers(client *atas.Client) *SearchHandlers {
	return &SearchHandlers{
		client: client,
		logger: client.Logger(),
	}
}

// Profiles handles GET /profiles/semantic-search?q_text=&top_k=&role=.
func (h *SearchHandlers) Profiles(w http.ResponseWriter, req *http.Request) {
	text, opts, err := parseSearch(req)
	if err != nil {
		middleware.WriteError(w, req, err, h.logger)
		return
	}
	if raw := req.URL.Query().Get("role"); raw != "" {
		role, err := account.ParseRole(raw)
		if err != nil {
			middleware.WriteError(w, req, err, h.logger)
			return
		}
		opts = append(opts, service.WithRole(role))
	}

	res, err := h.client.Search.Profiles(req.Context(), text, opts...)
	if err != nil {
		middleware.WriteError(w, req, err, h.logger)
		return
	}

	out := make([]dto.ProfileSummary, len(res.Hits))
	for i, hit := range res.Hits {
		v := hit.Item
		out[i] = dto.ProfileSummary{
			ID:           v.User.ID(),
			FullName:     v.User.FullName(),
			Role:         string(v.User.Role()),
			Title:        v.Profile.Title(),
			Bio:          v.Profile.Bio(),
			Skills:       orEmpty(v.Profile.Skills()),
			Tags:         orEmpty(v.Profile.Tags()),
			Availability: v.Profile.Availability(),
			Similarity:   similarity(res.Mode, hit.Similarity),
		}
	}
	w.Header().Set(middleware.SearchModeHeader, string(res.Mode))
	middleware.WriteJSON(w, http.StatusOK, out)
}

// Events handles GET /events/semantic-search?q_text=&top_k=&format=.
func (h *SearchHandlers) Events(w http.ResponseWriter, req *http.Request) {
	text, opts, err := parseSearch(req)
	if err != nil {
		middleware.WriteError(w, req, err, h.logger)
		return
	}
	if raw := req.URL.Query().Get("format"); raw != "" {
		format, err := event.ParseFormat(raw)
		if err != nil {
			middleware.WriteError(w, req, err, h.logger)
			return
		}
		opts = append(opts, service.WithFormat(format))
	}

	res, err := h.client.Search.Events(req.Context(), text, opts...)
	if err != nil {
		middleware.WriteError(w, req, err, h.logger)
		return
	}

	out := make([]dto.EventSummary, len(res.Hits))
	for i, hit := range res.Hits {
		e := hit.Item
		out[i] = dto.EventSummary{
			ID:          e.ID(),
			Title:       e.Title(),
			Description: e.Description(),
			Format:      string(e.Format()),
			Location:    e.Location(),
			StartsAt:    e.StartsAt(),
			Capacity:    e.Capacity(),
			Similarity:  similarity(res.Mode, hit.Similarity),
		}
		if end := e.EndsAt(); !end.IsZero() {
			out[i].EndsAt = &end
		}
	}
	w.Header().Set(middleware.SearchModeHeader, string(res.Mode))
	middleware.WriteJSON(w, http.StatusOK, out)
}

// parseSearch reads q_text and top_k. A top_k that is present must be an
// integer in [1, MaxSearchLimit].
func parseSearch(req *http.Request) (string, []service.SearchOption, error) {
	q := req.URL.Query()
	text := q.Get("q_text")
	if text == "" {
		return "", nil, fmt.Errorf("%w: q_text is required", domain.ErrValidation)
	}

	var opts []service.SearchOption
	if raw := q.Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > config.MaxSearchLimit {
			return "", nil, fmt.Errorf("%w: top_k must be an integer between 1 and %d", domain.ErrValidation, config.MaxSearchLimit)
		}
		opts = append(opts, service.WithTopK(n))
	}
	return text, opts, nil
}

func similarity(mode service.SearchMode, v float64) *float64 {
	if mode != service.ModeSemantic {
		return nil
	}
	return &v
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
