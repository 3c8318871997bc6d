package service_test

import (
	"context"
	"testing"
	"time"

	"taskScheduler/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.register(t, "bob", "pw123")

	sess, token, err := f.sessions.Authenticate(ctx, "bob", "pw123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, id, sess.UserID)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), sess.ExpiresAt)

	current, err := f.sessions.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, current)

	require.NoError(t, f.sessions.EndSession(ctx, token))

	_, err = f.sessions.CurrentUser(ctx, token)
	assert.True(t, service.HasCode(err, service.CodeUnauthenticated))

	// повторный выход безопасен
	assert.NoError(t, f.sessions.EndSession(ctx, token))
}

func TestSessionService_AuthenticateFailure(t *testing.T) {
	f := newFixture(t)
	f.register(t, "bob", "pw123")

	_, token, err := f.sessions.Authenticate(context.Background(), "bob", "wrong")
	assert.True(t, service.HasCode(err, service.CodeAuthFailure))
	assert.Empty(t, token)
}

func TestSessionService_CurrentUserRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "bob", "pw123")

	_, token, err := f.sessions.Authenticate(ctx, "bob", "pw123")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "tampered", token: token[:len(token)-2] + "xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sessions.CurrentUser(ctx, tt.token)
			assert.True(t, service.HasCode(err, service.CodeUnauthenticated))
		})
	}
}

func TestSessionService_Expiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "bob", "pw123")

	sess, token, err := f.sessions.Authenticate(ctx, "bob", "pw123")
	require.NoError(t, err)

	f.clock.Advance(24*time.Hour + time.Second)

	_, err = f.sessions.CurrentUser(ctx, token)
	assert.True(t, service.HasCode(err, service.CodeUnauthenticated))

	removed, err := f.store.DeleteExpired(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = f.store.Get(ctx, sess.ID)
	assert.Error(t, err)
}

func TestSessionService_IndependentSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.register(t, "bob", "pw123")
	alice := f.register(t, "alice", "secret")

	_, bobToken, err := f.sessions.Authenticate(ctx, "bob", "pw123")
	require.NoError(t, err)
	_, aliceToken, err := f.sessions.Authenticate(ctx, "alice", "secret")
	require.NoError(t, err)

	require.NoError(t, f.sessions.EndSession(ctx, bobToken))

	current, err := f.sessions.CurrentUser(ctx, aliceToken)
	require.NoError(t, err)
	assert.Equal(t, alice, current)
	assert.NotEqual(t, bob, current)
}
