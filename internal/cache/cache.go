package cache

import (
	"context"
	"errors"

	"github.com/shopbe/cart-service/internal/domain"
)

type SnapshotCache interface {
	Get(ctx context.Context, productID string) (*domain.ProductSnapshot, error)
	Set(ctx context.Context, productID string, snap *domain.ProductSnapshot) error
}

var ErrCacheMiss = errors.New("cache miss")
