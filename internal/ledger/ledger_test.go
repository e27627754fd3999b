package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopbe/cart-service/internal/domain"
	"github.com/shopbe/cart-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore records the single call the ledger is allowed to make.
type fakeStore struct {
	upserts  []incrementCall
	guarded  []incrementCall
	quantity int64
	err      error
}

type incrementCall struct {
	key    store.Key
	delta  int64
	fields store.Fields
	floor  int64
}

func (f *fakeStore) UpsertIncrement(_ context.Context, key store.Key, delta int64, fields store.Fields) (int64, error) {
	f.upserts = append(f.upserts, incrementCall{key: key, delta: delta, fields: fields})
	if f.err != nil {
		return 0, f.err
	}
	f.quantity += delta
	return f.quantity, nil
}

func (f *fakeStore) GuardedIncrement(_ context.Context, key store.Key, delta int64, fields store.Fields, floor int64) (int64, error) {
	f.guarded = append(f.guarded, incrementCall{key: key, delta: delta, fields: fields, floor: floor})
	if f.err != nil {
		return 0, f.err
	}
	if f.quantity+delta < floor {
		return 0, store.ErrPreconditionFailed
	}
	f.quantity += delta
	return f.quantity, nil
}

func (f *fakeStore) Query(context.Context, string) ([]domain.LineItem, error) {
	return nil, nil
}

func (f *fakeStore) DeleteAll(context.Context, string) (int64, error) {
	return 0, nil
}

var snap = domain.ProductSnapshot{ID: "p1", Name: "Mug", Price: 9.99}

func TestApplyDelta_IncrementRenewsTTL(t *testing.T) {
	fs := &fakeStore{}
	l := New(fs, zap.NewNop())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	qty, err := l.ApplyDelta(context.Background(), "cart#A", "p1", 10, snap, now)
	require.NoError(t, err)
	assert.Equal(t, int64(10), qty)

	require.Len(t, fs.upserts, 1)
	require.Empty(t, fs.guarded)
	call := fs.upserts[0]
	assert.Equal(t, store.Key{CartID: "cart#A", ProductID: "p1"}, call.key)
	assert.Equal(t, int64(10), call.delta)
	assert.Equal(t, snap, call.fields.Snapshot)
	assert.Equal(t, now, call.fields.UpdatedAt)
	assert.Equal(t, now.Add(24*time.Hour), call.fields.ExpiresAt)
}

func TestApplyDelta_DecrementDoesNotRenewTTL(t *testing.T) {
	fs := &fakeStore{quantity: 10}
	l := New(fs, zap.NewNop())

	now := time.Now()
	qty, err := l.ApplyDelta(context.Background(), "cart#A", "p1", -3, snap, now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), qty)

	require.Len(t, fs.guarded, 1)
	require.Empty(t, fs.upserts)
	call := fs.guarded[0]
	assert.Equal(t, int64(-3), call.delta)
	assert.Equal(t, int64(0), call.floor)
	assert.True(t, call.fields.ExpiresAt.IsZero(), "decrement must not touch expiry")
	assert.Equal(t, now, call.fields.UpdatedAt)
}

func TestApplyDelta_InsufficientQuantity(t *testing.T) {
	fs := &fakeStore{quantity: 10}
	l := New(fs, zap.NewNop())

	_, err := l.ApplyDelta(context.Background(), "cart#A", "p1", -15, snap, time.Now())
	assert.ErrorIs(t, err, ErrInsufficientQuantity)
	assert.Equal(t, int64(10), fs.quantity)
}

func TestApplyDelta_ZeroDeltaTakesIncrementPath(t *testing.T) {
	fs := &fakeStore{quantity: 4}
	l := New(fs, zap.NewNop())

	qty, err := l.ApplyDelta(context.Background(), "cart#A", "p1", 0, snap, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(4), qty)
	assert.Len(t, fs.upserts, 1)
}

func TestApplyDelta_ReplayedIncrementAddsAgain(t *testing.T) {
	fs := &fakeStore{}
	l := New(fs, zap.NewNop())

	ctx := context.Background()
	now := time.Now()
	_, err := l.ApplyDelta(ctx, "cart#A", "p1", 5, snap, now)
	require.NoError(t, err)
	qty, err := l.ApplyDelta(ctx, "cart#A", "p1", 5, snap, now)
	require.NoError(t, err)

	assert.Equal(t, int64(10), qty)
}

func TestApplyDelta_StorageError(t *testing.T) {
	fs := &fakeStore{err: assert.AnError}
	l := New(fs, zap.NewNop())

	_, err := l.ApplyDelta(context.Background(), "cart#A", "p1", 1, snap, time.Now())
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrInsufficientQuantity)
}
