package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tripflow/pkg/adapters/memory"
	"github.com/aretw0/tripflow/pkg/adapters/redis"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	return s.Store.Load(ctx, sessionID)
}

func (s SlowStore) Save(ctx context.Context, sessionID string, state *domain.State) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	return s.Store.Save(ctx, sessionID, state)
}

func TestManager_UpdateSerializesTurns(t *testing.T) {
	store := SlowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Save(ctx, id, domain.NewState(id, domain.BookingSession{})))

	// Every update appends one history entry; lost updates would shorten it.
	var wg sync.WaitGroup
	const writers = 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Update(ctx, id, func(_ context.Context, s *domain.State) (*domain.State, error) {
				s.History = append(s.History, domain.StepCollectOrigin)
				return s, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Len(t, state.History, writers)
}

func TestManager_UpdateErrorsDoNotWrite(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	id := "s1"
	require.NoError(t, manager.Save(ctx, id, domain.NewState(id, domain.BookingSession{Origin: "Paris"})))

	boom := errors.New("boom")
	err := manager.Update(ctx, id, func(_ context.Context, s *domain.State) (*domain.State, error) {
		s.Booking.Origin = "Lyon"
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Paris", state.Booking.Origin)
}

func TestManager_UpdateNilDeletes(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, manager.Save(ctx, "s1", domain.NewState("s1", domain.BookingSession{})))

	err := manager.Update(ctx, "s1", func(context.Context, *domain.State) (*domain.State, error) {
		return nil, nil
	})
	require.NoError(t, err)

	_, err = manager.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_UpdateMissing(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	err := manager.Update(context.Background(), "ghost", func(_ context.Context, s *domain.State) (*domain.State, error) {
		return s, nil
	})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewFromClient(client)
	manager := session.NewManager(store,
		session.WithLocker(redis.NewLocker(client, redis.DefaultPrefix)),
		session.WithLockTTL(2*time.Second),
	)
	ctx := context.Background()

	err := manager.WithLock(ctx, "s1", func(context.Context) error {
		assert.True(t, mr.Exists(redis.DefaultPrefix+"lock:s1"), "lock must be held during fn")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:s1"), "lock must be released after fn")
}
