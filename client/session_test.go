package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ellysus/Momentary/schema"
)

// fakeServer is an httptest-backed Momentary API with canned auth
// behavior and a prompt status hit counter.
type fakeServer struct {
	mu          sync.Mutex
	server      *httptest.Server
	statusHits  int
	loginFails  bool
	loginErrMsg string
	meFails     bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fails, msg := f.loginFails, f.loginErrMsg
		f.mu.Unlock()
		if fails {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(msg))
			return
		}

		var req schema.CredentialsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(schema.Identity{ID: 42, DisplayName: req.Username})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req schema.CredentialsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(schema.Identity{ID: 7, DisplayName: req.Username})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fails := f.meFails
		f.mu.Unlock()
		if fails {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(schema.Identity{ID: 42, DisplayName: "alice"})
	})
	mux.HandleFunc("GET /prompt/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.statusHits++
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(schema.PromptStatus{Active: false})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeServer) statusHitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusHits
}

func newTestSession(t *testing.T, f *fakeServer, interval time.Duration) (*Session, *Poller) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	api, err := NewAPI(logger, f.server.URL)
	require.NoError(t, err)
	poller := NewPoller(logger, api, interval)
	t.Cleanup(poller.Stop)
	return NewSession(logger, api, poller), poller
}

func TestSession_LoginTransitionsToAuthenticatedAndStartsPolling(t *testing.T) {
	f := newFakeServer(t)
	session, _ := newTestSession(t, f, 20*time.Millisecond)

	message, err := session.Login(context.Background(), "alice", "hunter2pass")
	require.NoError(t, err)
	assert.Equal(t, "Welcome back, alice!", message)

	identity := session.Identity()
	require.NotNil(t, identity)
	assert.Equal(t, int64(42), identity.ID)
	assert.Equal(t, "alice", identity.DisplayName)

	// One immediate fetch, then one per interval
	waitFor(t, func() bool { return f.statusHitCount() >= 3 })
}

func TestSession_LoginFailureSurfacesServerText(t *testing.T) {
	f := newFakeServer(t)
	f.loginFails = true
	f.loginErrMsg = "invalid credentials"
	session, _ := newTestSession(t, f, time.Hour)

	_, err := session.Login(context.Background(), "alice", "wrongpassword")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
	assert.Nil(t, session.Identity(), "failed login must not change state")
	assert.Zero(t, f.statusHitCount(), "the poller must not start on failure")
}

func TestSession_LoginFailureWithEmptyBodyUsesFallbackText(t *testing.T) {
	f := newFakeServer(t)
	f.loginFails = true
	f.loginErrMsg = ""
	session, _ := newTestSession(t, f, time.Hour)

	_, err := session.Login(context.Background(), "alice", "wrongpassword")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSession_LogoutStopsPollingAndClearsStatus(t *testing.T) {
	f := newFakeServer(t)
	session, poller := newTestSession(t, f, 15*time.Millisecond)

	_, err := session.Login(context.Background(), "alice", "hunter2pass")
	require.NoError(t, err)
	waitFor(t, func() bool { return poller.Status() != nil })

	require.NoError(t, session.Logout(context.Background()))
	assert.Nil(t, session.Identity())
	assert.Nil(t, poller.Status(), "prompt status must be discarded on logout")

	settled := f.statusHitCount()
	time.Sleep(80 * time.Millisecond)
	assert.LessOrEqual(t, f.statusHitCount(), settled+1, "no further polling after logout")
}

func TestSession_ProbeFailureStaysAnonymous(t *testing.T) {
	f := newFakeServer(t)
	f.meFails = true
	session, _ := newTestSession(t, f, time.Hour)

	session.ProbeSession(context.Background())
	assert.Nil(t, session.Identity())
	assert.Zero(t, f.statusHitCount())
}

func TestSession_ProbeSuccessAuthenticates(t *testing.T) {
	f := newFakeServer(t)
	session, _ := newTestSession(t, f, time.Hour)

	session.ProbeSession(context.Background())
	identity := session.Identity()
	require.NotNil(t, identity)
	assert.Equal(t, "alice", identity.DisplayName)
	waitFor(t, func() bool { return f.statusHitCount() >= 1 })
}

func TestSession_RegisterAuthenticates(t *testing.T) {
	f := newFakeServer(t)
	session, _ := newTestSession(t, f, time.Hour)

	message, err := session.Register(context.Background(), "bob", "hunter2pass")
	require.NoError(t, err)
	assert.Equal(t, "Welcome, bob!", message)
	require.NotNil(t, session.Identity())
	assert.Equal(t, int64(7), session.Identity().ID)
}

func TestSession_IdentityListeners(t *testing.T) {
	f := newFakeServer(t)
	session, _ := newTestSession(t, f, time.Hour)

	var received []schema.Identity
	id := session.RegisterIdentityListener(func(identity schema.Identity) {
		received = append(received, identity)
	})

	_, err := session.Login(context.Background(), "alice", "hunter2pass")
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "alice", received[0].DisplayName)

	session.UnregisterIdentityListener(id)
	require.NoError(t, session.Logout(context.Background()))
	_, err = session.Login(context.Background(), "alice", "hunter2pass")
	require.NoError(t, err)
	assert.Len(t, received, 1, "unregistered listeners stay silent")
}

func TestSession_BusyGuardRejectsOverlappingOperations(t *testing.T) {
	f := newFakeServer(t)
	session, _ := newTestSession(t, f, time.Hour)

	// Fake the in-flight state directly, timing a real overlap is flaky
	require.True(t, session.beginOp())
	assert.True(t, session.Busy())

	_, err := session.Login(context.Background(), "alice", "hunter2pass")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, session.Logout(context.Background()), ErrBusy)

	session.endOp()
	assert.False(t, session.Busy())
	_, err = session.Login(context.Background(), "alice", "hunter2pass")
	assert.NoError(t, err)
}
