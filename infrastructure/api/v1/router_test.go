package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atas-platform/atas"
	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/infrastructure/api/middleware"
	v1 "github.com/atas-platform/atas/infrastructure/api/v1"
	"github.com/atas-platform/atas/internal/config"
	"github.com/atas-platform/atas/internal/log"
)

func newTestClient(t *testing.T) *atas.Client {
	t.Helper()
	client, err := atas.New(
		atas.WithSQLite(":memory:"),
		atas.WithJWT("router-test", time.Hour),
		atas.WithBcryptCost(bcrypt.MinCost),
		atas.WithLogger(log.Discard().Slog()),
		atas.WithEmbedding(config.NewEmbeddingWithOptions(config.WithProvider(config.ProviderNone), config.WithDimension(4))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func register(t *testing.T, client *atas.Client, email, name, role string) service.Session {
	t.Helper()
	s, err := client.Auth.Register(context.Background(), service.RegisterParams{
		Email: email, Password: "long enough", FullName: name, Role: role,
	})
	require.NoError(t, err)
	return s
}

// serve runs routes behind the Authenticate middleware.
func serve(t *testing.T, client *atas.Client, routes chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	middleware.Authenticate(client.Auth, client.Logger())(routes).ServeHTTP(w, req)
	return w
}

func TestProfilesRouter_PrivateProfile(t *testing.T) {
	client := newTestClient(t)
	routes := v1.NewProfilesRouter(client).Routes()
	owner := register(t, client, "owner@example.com", "Owner", "expert")
	other := register(t, client, "other@example.com", "Other", "attendee")
	path := "/" + strconv.FormatInt(owner.User.ID(), 10)

	w := serve(t, client, routes, http.MethodPut, "/me", owner.Token, map[string]any{
		"visibility": "private",
		"skills":     []string{"Go", "SQL"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"skills":["Go","SQL"]`)

	assert.Equal(t, http.StatusNotFound, serve(t, client, routes, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, client, routes, http.MethodGet, path, other.Token, nil).Code)
	assert.Equal(t, http.StatusOK, serve(t, client, routes, http.MethodGet, path, owner.Token, nil).Code)

	w = serve(t, client, routes, http.MethodPut, "/me", owner.Token, map[string]any{"visibility": "secret"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, client, routes, http.MethodGet, "/abc", "", nil).Code)
}

func TestOrganizationsRouter_Membership(t *testing.T) {
	client := newTestClient(t)
	routes := v1.NewOrganizationsRouter(client).Routes()
	owner := register(t, client, "boss@example.com", "Boss", "organizer")
	member := register(t, client, "member@example.com", "Member", "attendee")

	assert.Equal(t, http.StatusUnauthorized, serve(t, client, routes, http.MethodPost, "/", "", map[string]string{"name": "x"}).Code)

	w := serve(t, client, routes, http.MethodPost, "/", owner.Token, map[string]string{"name": "Go Berlin"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var doc struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	base := "/" + doc.Data.ID

	w = serve(t, client, routes, http.MethodPost, base+"/members", member.Token, map[string]any{"user_id": member.User.ID(), "role": "member"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(t, client, routes, http.MethodPost, base+"/members", owner.Token, map[string]any{"user_id": member.User.ID(), "role": "member"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(t, client, routes, http.MethodGet, base+"/members", member.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members struct {
		Data []struct {
			Attributes struct {
				UserID int64  `json:"user_id"`
				Role   string `json:"role"`
			} `json:"attributes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	assert.Len(t, members.Data, 2)

	memberPath := base + "/members/" + strconv.FormatInt(member.User.ID(), 10)
	assert.Equal(t, http.StatusNoContent, serve(t, client, routes, http.MethodDelete, memberPath, owner.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, client, routes, http.MethodDelete, memberPath, owner.Token, nil).Code)
}

func TestNotificationsRouter_MarkRead(t *testing.T) {
	client := newTestClient(t)
	routes := v1.NewNotificationsRouter(client).Routes()
	owner := register(t, client, "boss@example.com", "Boss", "organizer")
	member := register(t, client, "member@example.com", "Member", "attendee")

	ctx := context.Background()
	actor := service.Actor{UserID: owner.User.ID(), Role: owner.User.Role()}
	org, err := client.Organizations.Create(ctx, actor, "Guild", "")
	require.NoError(t, err)
	_, err = client.Organizations.AddMember(ctx, actor, org.ID(), member.User.ID(), "member")
	require.NoError(t, err)

	w := serve(t, client, routes, http.MethodGet, "/?unread=true", member.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)

	assert.Equal(t, http.StatusNotFound, serve(t, client, routes, http.MethodPost, "/"+list.Data[0].ID+"/read", owner.Token, nil).Code)
	require.Equal(t, http.StatusOK, serve(t, client, routes, http.MethodPost, "/"+list.Data[0].ID+"/read", member.Token, nil).Code)

	w = serve(t, client, routes, http.MethodGet, "/?unread=true", member.Token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Data)
}

func TestQueueRouter_ListsPendingEmbeddingJobs(t *testing.T) {
	client := newTestClient(t)
	routes := v1.NewQueueRouter(client).Routes()
	expert := register(t, client, "e@example.com", "Expert", "expert")

	bio := "Evening mentoring"
	_, err := client.Profiles.Update(context.Background(), service.Actor{UserID: expert.User.ID(), Role: expert.User.Role()}, accountUpdate(bio))
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(t, client, routes, http.MethodGet, "/", expert.Token, nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/?page_size=10", nil)
	req = req.WithContext(middleware.WithActor(req.Context(), service.Actor{UserID: 99, Role: "admin"}))
	w := httptest.NewRecorder()
	routes.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var doc struct {
		Data []struct {
			Attributes struct {
				Type    string         `json:"type"`
				Payload map[string]any `json:"payload"`
			} `json:"attributes"`
		} `json:"data"`
		Meta map[string]any `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Len(t, doc.Data, 1)
	assert.Equal(t, "atas.embedding.profile", doc.Data[0].Attributes.Type)
	assert.Contains(t, doc.Data[0].Attributes.Payload["source_text"], bio)
	assert.EqualValues(t, 1, doc.Meta["total_count"])
}
