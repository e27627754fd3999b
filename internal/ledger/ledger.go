package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopbe/cart-service/internal/domain"
	"github.com/shopbe/cart-service/internal/store"
	"go.uber.org/zap"
)

// ItemTTL is how long a line item stays alive after its last positive
// interaction. Decrements do not extend it.
const ItemTTL = 24 * time.Hour

// ErrInsufficientQuantity means a decrement would have driven the stored
// quantity below zero. The write was rejected whole, never clamped.
var ErrInsufficientQuantity = errors.New("insufficient quantity in cart")

// Ledger applies signed quantity deltas to line items. Every update is a
// single conditional store call; there is no read-modify-write round
// trip in this layer, so concurrent deltas against one key serialize at
// the store.
type Ledger struct {
	store  store.ItemStore
	logger *zap.Logger
}

func New(s store.ItemStore, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  s,
		logger: logger,
	}
}

// ApplyDelta adds delta to the (cartID, productID) quantity and returns
// the resulting quantity. Both shapes rewrite the product snapshot and
// updatedAt; only a non-negative delta renews the expiry and may create
// the record. Replaying an increment adds again; de-duplication belongs
// to the caller.
func (l *Ledger) ApplyDelta(ctx context.Context, cartID, productID string, delta int64, snap domain.ProductSnapshot, now time.Time) (int64, error) {
	key := store.Key{CartID: cartID, ProductID: productID}
	fields := store.Fields{
		Snapshot:  snap,
		UpdatedAt: now,
	}

	if delta >= 0 {
		fields.ExpiresAt = now.Add(ItemTTL)
		qty, err := l.store.UpsertIncrement(ctx, key, delta, fields)
		if err != nil {
			return 0, fmt.Errorf("failed to apply increment: %w", err)
		}
		return qty, nil
	}

	qty, err := l.store.GuardedIncrement(ctx, key, delta, fields, 0)
	if err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			l.logger.Warn("decrement rejected, insufficient quantity",
				zap.String("cart_id", cartID),
				zap.String("product_id", productID),
				zap.Int64("delta", delta))
			return 0, ErrInsufficientQuantity
		}
		return 0, fmt.Errorf("failed to apply decrement: %w", err)
	}

	return qty, nil
}
