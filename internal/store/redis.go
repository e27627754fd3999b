package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopbe/cart-service/internal/domain"
)

// maxCASAttempts bounds the optimistic-lock loop so a heavily contended
// key fails fast instead of spinning.
const maxCASAttempts = 5

// RedisStore implements ItemStore for a backend without native
// conditional increments: each write is a WATCH-guarded compare-and-swap
// on the item key, retried a bounded number of times. Physical expiry is
// delegated to the key TTL via EXPIREAT.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) UpsertIncrement(ctx context.Context, key Key, delta int64, fields Fields) (int64, error) {
	return r.casIncrement(ctx, key, delta, fields, nil)
}

func (r *RedisStore) GuardedIncrement(ctx context.Context, key Key, delta int64, fields Fields, floor int64) (int64, error) {
	return r.casIncrement(ctx, key, delta, fields, &floor)
}

// casIncrement applies delta under WATCH. With a nil floor the item is
// created when absent; with a floor the item must exist and the resulting
// quantity must stay >= *floor, or the whole write is rejected.
func (r *RedisStore) casIncrement(ctx context.Context, key Key, delta int64, fields Fields, floor *int64) (int64, error) {
	k := itemKey(key.CartID, key.ProductID)

	var newQuantity int64
	txn := func(tx *redis.Tx) error {
		item := domain.LineItem{
			CartID:    key.CartID,
			ProductID: key.ProductID,
		}

		data, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if floor != nil {
				return ErrPreconditionFailed
			}
		case err != nil:
			return fmt.Errorf("redis get failed: %w", err)
		default:
			if err2 := json.Unmarshal(data, &item); err2 != nil {
				return fmt.Errorf("unmarshal item failed: %w", err2)
			}
		}

		if floor != nil && item.Quantity+delta < *floor {
			return ErrPreconditionFailed
		}

		item.Quantity += delta
		item.Snapshot = fields.Snapshot
		item.UpdatedAt = fields.UpdatedAt
		if !fields.ExpiresAt.IsZero() {
			item.ExpiresAt = fields.ExpiresAt
		}

		buf, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item failed: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, buf, 0)
			if !item.ExpiresAt.IsZero() {
				pipe.ExpireAt(ctx, k, item.ExpiresAt)
			}
			pipe.SAdd(ctx, indexKey(key.CartID), key.ProductID)
			return nil
		})
		if err != nil {
			return err
		}

		newQuantity = item.Quantity
		return nil
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		err := r.client.Watch(ctx, txn, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return newQuantity, nil
	}

	return 0, fmt.Errorf("conditional increment on %s contended after %d attempts", k, maxCASAttempts)
}

func (r *RedisStore) Query(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	productIDs, err := r.client.SMembers(ctx, indexKey(cartID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers failed: %w", err)
	}

	var items []domain.LineItem
	for _, pid := range productIDs {
		data, err := r.client.Get(ctx, itemKey(cartID, pid)).Bytes()
		if errors.Is(err, redis.Nil) {
			// item expired under the index entry
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed: %w", err)
		}

		var item domain.LineItem
		if err2 := json.Unmarshal(data, &item); err2 != nil {
			return nil, fmt.Errorf("unmarshal item failed: %w", err2)
		}
		items = append(items, item)
	}

	return items, nil
}

func (r *RedisStore) DeleteAll(ctx context.Context, cartID string) (int64, error) {
	productIDs, err := r.client.SMembers(ctx, indexKey(cartID)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers failed: %w", err)
	}

	keys := make([]string, 0, len(productIDs)+1)
	for _, pid := range productIDs {
		keys = append(keys, itemKey(cartID, pid))
	}

	var deleted int64
	if len(keys) > 0 {
		deleted, err = r.client.Del(ctx, keys...).Result()
		if err != nil {
			return 0, fmt.Errorf("redis del failed: %w", err)
		}
	}

	if err := r.client.Del(ctx, indexKey(cartID)).Err(); err != nil {
		return deleted, fmt.Errorf("redis del index failed: %w", err)
	}

	return deleted, nil
}

func itemKey(cartID, productID string) string {
	return fmt.Sprintf("cart:%s:item:%s", cartID, productID)
}

func indexKey(cartID string) string {
	return fmt.Sprintf("cart:%s:items", cartID)
}
