package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopbe/cart-service/internal/domain"
)

var (
	// ErrPreconditionFailed means a guarded increment's quantity floor did
	// not hold; the write was not applied at all.
	ErrPreconditionFailed = errors.New("store precondition failed")
)

// Key addresses one line item.
type Key struct {
	CartID    string
	ProductID string
}

// Fields are the non-quantity attributes written alongside an increment.
// A zero ExpiresAt leaves the stored expiry untouched.
type Fields struct {
	Snapshot  domain.ProductSnapshot
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// ItemStore is the conditional-write primitive the ledger's correctness
// rests on. Both increments must be atomic at the backend: concurrent
// writers against the same key are serialized by the store, never by a
// client-side read-then-write.
//
// Consumers define this interface, not the backend implementations.
type ItemStore interface {
	// UpsertIncrement atomically adds delta to the item's quantity,
	// creating the record with quantity=delta when absent, and writes
	// fields. Returns the post-update quantity.
	UpsertIncrement(ctx context.Context, key Key, delta int64, fields Fields) (int64, error)

	// GuardedIncrement atomically adds delta to the item's quantity only
	// if the resulting quantity would be >= floor. The whole write fails
	// with ErrPreconditionFailed otherwise, including when the item does
	// not exist. Returns the post-update quantity.
	GuardedIncrement(ctx context.Context, key Key, delta int64, fields Fields, floor int64) (int64, error)

	// Query returns all line items of a cart.
	Query(ctx context.Context, cartID string) ([]domain.LineItem, error)

	// DeleteAll removes every line item of a cart and reports how many
	// were removed.
	DeleteAll(ctx context.Context, cartID string) (int64, error)
}
