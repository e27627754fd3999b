package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopbe/cart-service/internal/catalog"
	"github.com/shopbe/cart-service/internal/domain"
	"github.com/shopbe/cart-service/internal/events"
	"github.com/shopbe/cart-service/internal/ledger"
	"github.com/shopbe/cart-service/internal/metrics"
	"github.com/shopbe/cart-service/internal/store"
	"go.uber.org/zap"
)

// Publisher emits cart events after a successful update; wired only when
// brokers are configured.
type Publisher interface {
	PublishItemUpdated(ctx context.Context, ev events.ItemUpdated) error
}

// CartService orchestrates one line-item update: catalog lookup first,
// and only with a found snapshot does the ledger touch the store.
type CartService struct {
	catalog   catalog.Client
	ledger    *ledger.Ledger
	store     store.ItemStore
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewCartService(c catalog.Client, l *ledger.Ledger, s store.ItemStore, pub Publisher, m *metrics.Metrics, logger *zap.Logger) *CartService {
	return &CartService{
		catalog:   c,
		ledger:    l,
		store:     s,
		publisher: pub,
		metrics:   m,
		logger:    logger,
	}
}

// ApplyDelta resolves the product and applies the signed delta to the
// cart's line item, returning the new quantity. A missing product
// short-circuits before any store interaction.
func (s *CartService) ApplyDelta(ctx context.Context, cartID, productID string, delta int64) (int64, error) {
	s.metrics.ObserveProductResolution()
	snap, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			s.metrics.ObserveUpdate(metrics.OutcomeProductNotFound)
			return 0, err
		}
		s.metrics.ObserveUpdate(metrics.OutcomeCatalogError)
		s.logger.Error("catalog lookup failed", zap.String("product_id", productID), zap.Error(err))
		return 0, fmt.Errorf("catalog lookup failed: %w", err)
	}

	qty, err := s.ledger.ApplyDelta(ctx, cartID, productID, delta, *snap, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientQuantity) {
			s.metrics.ObserveUpdate(metrics.OutcomeInsufficient)
			return 0, err
		}
		s.metrics.ObserveUpdate(metrics.OutcomeStorageError)
		s.logger.Error("ledger update failed",
			zap.String("cart_id", cartID),
			zap.String("product_id", productID),
			zap.Error(err))
		return 0, err
	}

	s.metrics.ObserveUpdate(metrics.OutcomeApplied)
	s.publishUpdate(cartID, productID, qty)
	return qty, nil
}

// ListItems returns the cart's line items.
func (s *CartService) ListItems(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	items, err := s.store.Query(ctx, cartID)
	if err != nil {
		s.logger.Error("cart query failed", zap.String("cart_id", cartID), zap.Error(err))
		return nil, err
	}
	return items, nil
}

// ClearCart removes every line item of a cart.
func (s *CartService) ClearCart(ctx context.Context, cartID string) error {
	deleted, err := s.store.DeleteAll(ctx, cartID)
	if err != nil {
		s.logger.Error("cart clear failed", zap.String("cart_id", cartID), zap.Error(err))
		return err
	}

	s.logger.Info("cart cleared", zap.String("cart_id", cartID), zap.Int64("items", deleted))
	return nil
}

func (s *CartService) publishUpdate(cartID, productID string, qty int64) {
	if s.publisher == nil {
		return
	}

	// best effort, off the request path
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ev := events.ItemUpdated{
			CartID:    cartID,
			ProductID: productID,
			Quantity:  qty,
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.publisher.PublishItemUpdated(ctx, ev); err != nil {
			s.logger.Warn("failed to publish item update", zap.Error(err))
		}
	}()
}
