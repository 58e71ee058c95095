package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ellysus/Momentary/schema"
)

// ErrBusy is returned when an authentication operation is already in
// flight. The most recent completed transition stays authoritative.
var ErrBusy = errors.New("another authentication operation is in progress")

// IdentityListener receives the identity whenever a session is
// established. Registered listeners replace the global callback hook the
// login widget used to reach for.
type IdentityListener func(identity schema.Identity)

// Session owns the authenticated identity and keeps the prompt poller in
// lockstep with it: the poller runs exactly while a session is active.
type Session struct {
	mu        sync.Mutex
	logger    *zap.SugaredLogger
	api       *API
	poller    *Poller
	identity  *schema.Identity
	busy      bool
	listeners map[int]IdentityListener
	nextID    int
}

func NewSession(logger *zap.SugaredLogger, api *API, poller *Poller) *Session {
	return &Session{
		logger:    logger,
		api:       api,
		poller:    poller,
		listeners: make(map[int]IdentityListener),
	}
}

// Identity returns the current identity, nil while anonymous.
func (s *Session) Identity() *schema.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	copied := *s.identity
	return &copied
}

// Busy reports whether an authentication operation is in flight. UI
// callers disable their controls while this holds.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// RegisterIdentityListener adds a callback for established sessions and
// returns a handle for UnregisterIdentityListener.
func (s *Session) RegisterIdentityListener(listener IdentityListener) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners[s.nextID] = listener
	return s.nextID
}

func (s *Session) UnregisterIdentityListener(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
}

// ProbeSession asks the server whether the stored credentials still name
// a session. Any failure silently demotes to anonymous, a cold start is
// not an error condition.
func (s *Session) ProbeSession(ctx context.Context) {
	if !s.beginOp() {
		return
	}
	defer s.endOp()

	identity, err := s.api.Me(ctx)
	if err != nil {
		s.logger.Debugf("Session probe failed: %v", err)
		s.becomeAnonymous()
		return
	}

	s.becomeAuthenticated(*identity)
}

// Login authenticates and returns an informational message on success.
// On failure the server-provided error text is returned.
func (s *Session) Login(ctx context.Context, username, password string) (string, error) {
	return s.authenticate(ctx, username, password, s.api.Login, "Welcome back, %s!")
}

// Register creates an account and logs it in.
func (s *Session) Register(ctx context.Context, username, password string) (string, error) {
	return s.authenticate(ctx, username, password, s.api.Register, "Welcome, %s!")
}

// Logout issues the logout request and transitions to anonymous no
// matter what the server said.
func (s *Session) Logout(ctx context.Context) error {
	if !s.beginOp() {
		return ErrBusy
	}
	defer s.endOp()

	if err := s.api.Logout(ctx); err != nil {
		s.logger.Debugf("Logout request failed: %v", err)
	}
	s.becomeAnonymous()
	return nil
}

type credentialsCall func(ctx context.Context, username, password string) (*schema.Identity, error)

func (s *Session) authenticate(ctx context.Context, username, password string, call credentialsCall, messageFormat string) (string, error) {
	if !s.beginOp() {
		return "", ErrBusy
	}
	defer s.endOp()

	identity, err := call(ctx, username, password)
	if err != nil {
		// State is unchanged, the caller surfaces the server text
		return "", err
	}

	s.becomeAuthenticated(*identity)
	return fmt.Sprintf(messageFormat, identity.DisplayName), nil
}

func (s *Session) beginOp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Session) endOp() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Session) becomeAuthenticated(identity schema.Identity) {
	s.mu.Lock()
	s.identity = &identity
	listeners := make([]IdentityListener, 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.Unlock()

	s.poller.Start()
	for _, listener := range listeners {
		listener(identity)
	}
}

func (s *Session) becomeAnonymous() {
	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()

	s.poller.Stop()
	s.poller.Clear()
}
