package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(ttl time.Duration) SessionManager {
	return NewSessionManager(zap.NewNop().Sugar(), "test-secret", ttl)
}

func TestSessionRoundTrip(t *testing.T) {
	mgr := newTestManager(time.Hour)

	token, err := mgr.Generate(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := mgr.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.DisplayName)
	assert.Equal(t, "42", claims.Subject)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	mgr := newTestManager(-time.Minute)

	token, err := mgr.Generate(42, "alice")
	require.NoError(t, err)

	_, err = mgr.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	mgr := newTestManager(time.Hour)

	_, err := mgr.Verify("not.a.token")
	assert.Error(t, err)

	_, err = mgr.Verify("")
	assert.Error(t, err)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	other := NewSessionManager(zap.NewNop().Sugar(), "other-secret", time.Hour)

	token, err := other.Generate(42, "alice")
	require.NoError(t, err)

	_, err = newTestManager(time.Hour).Verify(token)
	assert.Error(t, err)
}
