package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"nhooyr.io/websocket"

	"github.com/atas-platform/atas/application/service"
	"github.com/atas-platform/atas/domain"
	"github.com/atas-platform/atas/domain/account"
	"github.com/atas-platform/atas/domain/notification"
)

type staticAuth map[string]int64

func (a staticAuth) Authenticate(token string) (service.Actor, error) {
	id, ok := a[token]
	if !ok {
		return service.Actor{}, fmt.Errorf("%w: unknown token", domain.ErrUnauthorized)
	}
	return service.Actor{UserID: id, Role: account.RoleAttendee}, nil
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	return websocket.Dial(ctx, url, nil)
}

func TestHub_PushesToOwnConnections(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(staticAuth{"alice": 1, "bob": 2}, nil, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := dial(t, srv, "alice")
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	require.Eventually(t, func() bool { return hub.Connected(1) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.Connected(2))

	ctx := context.Background()
	hub.Publish(ctx, notification.Restore(9, 2, notification.KindNewFollower, "for bob", false, time.Now()))
	hub.Publish(ctx, notification.Restore(10, 1, notification.KindPostLiked, "bob liked your post", false, time.Now()))

	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	typ, data, err := conn.Read(readCtx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, int64(10), msg.ID)
	assert.Equal(t, string(notification.KindPostLiked), msg.Kind)
	assert.Equal(t, "bob liked your post", msg.Message)

	closed := make(chan error, 1)
	go func() { closed <- hub.Close() }()
	_, _, err = conn.Read(readCtx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	require.NoError(t, <-closed)
	assert.Zero(t, hub.Connected(1))
}

func TestHub_RejectsBadToken(t *testing.T) {
	hub := NewHub(staticAuth{}, nil, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer func() { _ = hub.Close() }()

	_, resp, err := dial(t, srv, "nope")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(staticAuth{}, nil, slog.New(slog.DiscardHandler))
	c := &client{id: "slow", userID: 5, send: make(chan []byte, 1)}
	hub.add(c)

	n := notification.Restore(1, 5, notification.KindNewFollower, "x", false, time.Now())
	hub.Publish(context.Background(), n)
	assert.Equal(t, 1, hub.Connected(5))
	hub.Publish(context.Background(), n)
	assert.Zero(t, hub.Connected(5))

	<-c.send
	_, open := <-c.send
	assert.False(t, open)

	hub.remove(c)
	assert.NotPanics(t, func() { hub.Publish(context.Background(), n) })
}

func TestHub_RefusesConnectionsOnceClosed(t *testing.T) {
	hub := NewHub(staticAuth{"alice": 1}, nil, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	require.NoError(t, hub.Close())

	_, resp, err := dial(t, srv, "alice")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.False(t, hub.admit())
}

func TestHub_CloseWhileAdmitting(t *testing.T) {
	hub := NewHub(staticAuth{}, nil, slog.New(slog.DiscardHandler))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if hub.admit() {
				hub.active.Done()
			}
		}()
	}
	require.NoError(t, hub.Close())
	wg.Wait()
	assert.False(t, hub.admit())
}
