package security

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T, now *time.Time) *SessionManager {
	t.Helper()
	m, err := NewSessionManager("test-secret", 15*time.Minute)
	require.NoError(t, err)
	return m.WithClock(func() time.Time { return *now })
}

func TestNewSessionManagerRequiresSecret(t *testing.T) {
	_, err := NewSessionManager("  ", time.Minute)
	require.Error(t, err)
}

func TestSessionIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	m := newTestSessionManager(t, &now)

	token, err := m.Issue("ops@example.com", RoleAdmin)
	require.NoError(t, err)

	claims, err := m.VerifyAdmin(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestSessionVerifyExpired(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	m := newTestSessionManager(t, &now)

	token, err := m.Issue("ops@example.com", RoleAdmin)
	require.NoError(t, err)

	now = now.Add(16 * time.Minute)
	_, err = m.VerifyAdmin(token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionVerifyWrongRole(t *testing.T) {
	now := time.Now()
	m := newTestSessionManager(t, &now)

	token, err := m.Issue("someone", "viewer")
	require.NoError(t, err)

	_, err = m.VerifyAdmin(token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionVerifyForeignSignature(t *testing.T) {
	now := time.Now()
	m := newTestSessionManager(t, &now)
	other, err := NewSessionManager("other-secret", time.Minute)
	require.NoError(t, err)

	token, err := other.Issue("ops@example.com", RoleAdmin)
	require.NoError(t, err)

	_, err = m.VerifyAdmin(token)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	assert.False(t, errors.Is(err, ErrSessionExpired))
}

func TestSessionVerifyMalformed(t *testing.T) {
	now := time.Now()
	m := newTestSessionManager(t, &now)

	for _, token := range []string{"", "abc", "a.b"} {
		_, err := m.VerifyAdmin(token)
		assert.ErrorIs(t, err, ErrSessionMissing, "token %q", token)
	}
}

func TestParseBearer(t *testing.T) {
	token, err := ParseBearer("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = ParseBearer("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer"} {
		_, err := ParseBearer(header)
		assert.ErrorIs(t, err, ErrSessionMissing, "header %q", header)
	}
}
