package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tripflow/internal/testutils"
	"github.com/aretw0/tripflow/pkg/adapters/memory"
	"github.com/aretw0/tripflow/pkg/adapters/redis"
	"github.com/aretw0/tripflow/pkg/domain"
	"github.com/aretw0/tripflow/pkg/persistence/middleware"
	"github.com/aretw0/tripflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sealed(t *testing.T, next ports.StateStore, cfg middleware.EncryptionConfig) ports.StateStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func bookingState() *domain.State {
	st := domain.NewState("s1", testutils.FullBooking())
	st.Status = domain.StatusWaiting
	st.Step = domain.StepConfirm
	return st
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	key := generateKey(t)
	ports.RunStateStoreContract(t, sealed(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: key}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	store := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", bookingState()))

	raw, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Sealed)
	assert.Equal(t, domain.BookingSession{}, raw.Booking, "booking must not be stored in clear")
	assert.Empty(t, raw.Step)
	assert.Equal(t, domain.StatusWaiting, raw.Status)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, loaded.Sealed)
	assert.Equal(t, "paris", loaded.Booking.Origin)
	assert.Equal(t, domain.StepConfirm, loaded.Step)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	storeOld := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, storeOld.Save(ctx, "s1", bookingState()))

	storeNew := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}})
	loaded, err := storeNew.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "berlin", loaded.Booking.Destination)

	// Saved again with the new key: the old key alone can no longer read it.
	require.NoError(t, storeNew.Save(ctx, "s1", loaded))
	_, err = storeOld.Load(ctx, "s1")
	assert.ErrorIs(t, err, middleware.ErrDecryptFailed)
}

func TestEncryptionMiddleware_RejectsPlainState(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "s1", bookingState()))

	store := sealed(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryptionMiddleware_OverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := sealed(t, redis.NewFromClient(client), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", bookingState()))

	payload, err := mr.Get(redis.DefaultPrefix + "s1")
	require.NoError(t, err)
	assert.NotContains(t, payload, "paris")
	assert.NotContains(t, payload, "origin_city")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "500", loaded.Booking.Budget)
}

func TestEncryptionConfig_Invalid(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestDecodeKeys(t *testing.T) {
	active := base64.StdEncoding.EncodeToString(generateKey(t))
	old := base64.StdEncoding.EncodeToString(generateKey(t))

	cfg, err := middleware.DecodeKeys(active, old)
	require.NoError(t, err)
	assert.Len(t, cfg.ActiveKey, middleware.KeySize)
	assert.Len(t, cfg.FallbackKeys, 1)

	_, err = middleware.DecodeKeys("not base64!")
	assert.Error(t, err)

	_, err = middleware.DecodeKeys(base64.StdEncoding.EncodeToString([]byte("tiny")))
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.StateStore) ports.StateStore {
			return recordingStore{StateStore: next, name: name, order: &order}
		}
	}

	store := middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	require.NoError(t, store.Save(context.Background(), "s1", bookingState()))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type recordingStore struct {
	ports.StateStore
	name  string
	order *[]string
}

func (r recordingStore) Save(ctx context.Context, id string, st *domain.State) error {
	*r.order = append(*r.order, r.name)
	return r.StateStore.Save(ctx, id, st)
}
