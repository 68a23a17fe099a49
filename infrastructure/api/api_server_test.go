package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/infrastructure/api"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
	"github.com/atas-platform/atas/infrastructure/api/v1/dto"
	"github.com/atas-platform/atas/internal/log"
)

// clockGenerator maps text onto an evening axis and a morning axis.
type clockGenerator struct {
	fail atomic.Bool
}

func (g *clockGenerator) Generate(_ context.Context, text string) ([]float32, bool) {
	if g.fail.Load() {
		return nil, false
	}
	t := strings.ToLower(text)
	vec := []float32{0, 0}
	for _, w := range []string{"evening", "night", "7pm", "after work"} {
		if strings.Contains(t, w) {
			vec[0] = 1
		}
	}
	for _, w := range []string{"morning", "9am", "breakfast"} {
		if strings.Contains(t, w) {
			vec[1] = 1
		}
	}
	if vec[0] == 0 && vec[1] == 0 {
		return nil, false
	}
	return vec, true
}

func (g *clockGenerator) Model() string  { return "clock" }
func (g *clockGenerator) Dimension() int { return 2 }

type harness struct {
	t      *testing.T
	client *atas.Client
	gen    *clockGenerator
	h      http.Handler
}

func newHarness(t *testing.T, build func(*atas.Client) *api.APIServer) *harness {
	t.Helper()
	gen := &clockGenerator{}
	client, err := atas.New(
		atas.WithSQLite(":memory:"),
		atas.WithJWT("api-test-secret", time.Hour),
		atas.WithBcryptCost(bcrypt.MinCost),
		atas.WithLogger(log.Discard().Slog()),
		atas.WithGenerator(gen),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return &harness{t: t, client: client, gen: gen, h: build(client).Handler()}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.h.ServeHTTP(w, req)
	return w
}

func (h *harness) register(email, name, role string) string {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Email: email, Password: "long enough", FullName: name, Role: role,
	})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var session dto.SessionResponse
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &session))
	require.NotEmpty(h.t, session.AccessToken)
	return session.AccessToken
}

func (h *harness) drain() {
	h.t.Helper()
	_, err := h.client.ProcessPending(context.Background())
	require.NoError(h.t, err)
}

func atasServer(c *atas.Client) *api.APIServer { return api.NewAPIServer(c) }

func TestAPIServer_ProfileSemanticSearch(t *testing.T) {
	h := newHarness(t, atasServer)

	night := h.register("night@example.com", "Nina", "expert")
	early := h.register("early@example.com", "Ed", "expert")
	for token, availability := range map[string]string{night: "Weekday evenings after work", early: "Monday 9am"} {
		w := h.do(http.MethodPut, "/api/v1/profiles/me", token, map[string]any{"availability": availability})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	h.drain()

	for _, path := range []string{"/profiles/semantic-search", "/api/v1/profiles/semantic-search"} {
		t.Run(path, func(t *testing.T) {
			w := h.do(http.MethodGet, path+"?q_text=Tuesday+night&top_k=5", "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "semantic", w.Header().Get(middleware.SearchModeHeader))

			var hits []dto.ProfileSummary
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hits))
			require.NotEmpty(t, hits)
			assert.Equal(t, "Nina", hits[0].FullName)
			require.NotNil(t, hits[0].Similarity)
		})
	}

	t.Run("provider failure falls back to text", func(t *testing.T) {
		h.gen.fail.Store(true)
		defer h.gen.fail.Store(false)

		w := h.do(http.MethodGet, "/profiles/semantic-search?q_text=monday", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text", w.Header().Get(middleware.SearchModeHeader))

		var hits []dto.ProfileSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hits))
		require.Len(t, hits, 1)
		assert.Equal(t, "Ed", hits[0].FullName)
		assert.Nil(t, hits[0].Similarity)
	})

	t.Run("no match is an empty array", func(t *testing.T) {
		h.gen.fail.Store(true)
		defer h.gen.fail.Store(false)

		w := h.do(http.MethodGet, "/profiles/semantic-search?q_text=zzz", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestAPIServer_SemanticSearchValidation(t *testing.T) {
	h := newHarness(t, atasServer)

	for _, query := range []string{
		"",
		"?top_k=5",
		"?q_text=x&top_k=abc",
		"?q_text=x&top_k=0",
		"?q_text=x&top_k=51",
		"?q_text=x&role=wizard",
	} {
		w := h.do(http.MethodGet, "/profiles/semantic-search"+query, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
	w := h.do(http.MethodGet, "/events/semantic-search?q_text=x&format=underwater", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIServer_EventLifecycle(t *testing.T) {
	h := newHarness(t, atasServer)
	organizer := h.register("org@example.com", "Olga", "organizer")
	attendee := h.register("att@example.com", "Abe", "attendee")

	create := dto.EventRequest{
		Title:    "Evening Go Meetup",
		Format:   "in_person",
		Location: "Berlin",
		StartsAt: time.Date(2031, 5, 1, 19, 0, 0, 0, time.UTC),
		Capacity: 1,
	}
	w := h.do(http.MethodPost, "/api/v1/events", attendee, create)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, "/api/v1/events", organizer, create)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	path := "/api/v1/events/" + doc.Data.ID

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, attendee, nil).Code, "drafts are hidden")
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, path+"/publish", organizer, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, path, "", nil).Code)
	h.drain()

	w = h.do(http.MethodGet, "/events/semantic-search?q_text=night+out&format=in_person", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "semantic", w.Header().Get(middleware.SearchModeHeader))
	var events []dto.EventSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Evening Go Meetup", events[0].Title)

	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, path+"/bookings", attendee, nil).Code)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, path+"/bookings", organizer, nil).Code, "capacity is one")

	w = h.do(http.MethodGet, "/api/v1/bookings", attendee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"confirmed"`)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, path, attendee, nil).Code)
	require.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, path, organizer, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, path, "", nil).Code)

	w = h.do(http.MethodGet, "/api/v1/notifications", attendee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "event_cancelled")
}

func TestAPIServer_AuthAndRoles(t *testing.T) {
	h := newHarness(t, atasServer)
	token := h.register("me@example.com", "Mia", "attendee")

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/me", "garbage", nil).Code)

	w := h.do(http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "me@example.com")
	assert.NotContains(t, w.Body.String(), "password")

	w = h.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "me@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/v1/auth/register", "", map[string]any{"email": "x@example.com", "unknown": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/queue", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/v1/queue", token, nil).Code)
}

func TestAPIServer_Health(t *testing.T) {
	h := newHarness(t, atasServer)

	w := h.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok","embeddings":"enabled","pending_tasks":0}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.CorrelationHeader))
}

func TestAPIServer_CORSAndRateLimit(t *testing.T) {
	h := newHarness(t, func(c *atas.Client) *api.APIServer {
		return api.NewAPIServer(c,
			api.WithCORSOrigins([]string{"https://app.example.com"}),
			api.WithRateLimit(0.001, 1),
		)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.h.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodGet, "/health", "", nil).Code)
}

func TestCommServer_Feed(t *testing.T) {
	h := newHarness(t, func(c *atas.Client) *api.APIServer { return api.NewCommServer(c) })
	alice := h.register("alice@example.com", "Alice", "attendee")
	bob := h.register("bob@example.com", "Bob", "attendee")

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/feed", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/profiles/semantic-search?q_text=x", "", nil).Code)

	w := h.do(http.MethodPost, "/api/v1/posts", alice, dto.BodyRequest{Body: "hello from alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	var me struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	w = h.do(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "alice@example.com", Password: "long enough"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))

	require.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/api/v1/users/"+me.User.ID+"/follow", bob, nil).Code)
	require.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/api/v1/posts/"+post.Data.ID+"/like", bob, nil).Code)
	w = h.do(http.MethodPost, "/api/v1/posts/"+post.Data.ID+"/comments", bob, dto.BodyRequest{Body: "hi alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(http.MethodGet, "/api/v1/feed", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello from alice")
	assert.Contains(t, w.Body.String(), `"likes":1`)

	w = h.do(http.MethodGet, "/api/v1/notifications", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, kind := range []string{"new_follower", "post_liked", "post_commented"} {
		assert.Contains(t, w.Body.String(), kind)
	}
}
