package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coreybb/eventhub/webutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refreshServer(t *testing.T, status int, calls *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if status != http.StatusOK {
			webutil.RespondWithError(w, status, "Token expired")
			return
		}
		webutil.RespondWithJSON(w, http.StatusOK, map[string]string{
			"token": r.Header.Get(webutil.HeaderAuthorization) + "-" + string(rune('a'+n)),
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRefresher_RenewsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	srv := refreshServer(t, http.StatusOK, &calls)
	c := newTestClient(t, srv)
	c.Tokens().SetToken("initial")

	r := NewRefresher(c, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
	assert.NotEqual(t, "initial", c.Tokens().Token())
	assert.True(t, c.LoggedIn())
}

func TestRefresher_FailureEndsSession(t *testing.T) {
	var calls atomic.Int32
	srv := refreshServer(t, http.StatusUnauthorized, &calls)
	c := newTestClient(t, srv)
	c.Tokens().SetToken("stale")

	var expired atomic.Bool
	r := NewRefresher(c, 5*time.Millisecond)
	r.OnExpired = func(err error) {
		expired.Store(IsSessionExpired(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := r.Run(ctx)
	require.Error(t, err)
	assert.True(t, IsSessionExpired(err))
	assert.True(t, expired.Load())
	assert.False(t, c.LoggedIn())
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewRefresher_DefaultInterval(t *testing.T) {
	c, err := New("http://localhost:5000")
	require.NoError(t, err)

	assert.Equal(t, DefaultRefreshInterval, NewRefresher(c, 0).interval)
	assert.Equal(t, time.Minute, NewRefresher(c, time.Minute).interval)
}
