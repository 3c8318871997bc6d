package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskScheduler/internal/models/session"
	"taskScheduler/internal/repository/inmemory"
	"taskScheduler/internal/repository/repotest"
	"taskScheduler/internal/repository/sessions"
	"taskScheduler/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSessionSweeper struct {
	mock.Mock
}

func (m *MockSessionSweeper) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryStore()
	storage := inmemory.New()

	past := time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, &session.Session{ID: "old", UserID: 1, ExpiresAt: past}))
	require.NoError(t, store.Save(ctx, &session.Session{ID: "live", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}))

	bob := repotest.MustCreateUser(t, storage, "bob")
	require.NoError(t, storage.SetResetToken(ctx, bob.ID, "stale", past))

	sweeper := worker.NewSweeper(store, storage, time.Minute)
	removedSessions, clearedTokens := sweeper.Sweep(ctx)

	assert.Equal(t, 1, removedSessions)
	assert.Equal(t, 1, clearedTokens)

	_, err := store.Get(ctx, "live")
	assert.NoError(t, err)
}

func TestSweeper_ContinuesAfterSessionError(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()
	bob := repotest.MustCreateUser(t, storage, "bob")
	require.NoError(t, storage.SetResetToken(ctx, bob.ID, "stale", time.Now().Add(-time.Minute)))

	failing := new(MockSessionSweeper)
	failing.On("DeleteExpired", mock.Anything, mock.Anything).Return(0, errors.New("bolt closed"))

	_, clearedTokens := worker.NewSweeper(failing, storage, time.Minute).Sweep(ctx)

	assert.Equal(t, 1, clearedTokens)
	failing.AssertExpectations(t)
}

func TestSweeper_StartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := worker.NewSweeper(sessions.NewMemoryStore(), inmemory.New(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start не завершился после отмены контекста")
	}
}
