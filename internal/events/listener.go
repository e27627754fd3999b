package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// CartClearer empties a cart once checkout has completed elsewhere.
type CartClearer interface {
	ClearCart(ctx context.Context, cartID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Listener consumes checkout-completed events and clears the named
// cart's line items. Checkout processing itself lives in another
// service; this is only cart-side upkeep.
type Listener struct {
	carts  CartClearer
	reader messageReader
	logger *zap.Logger
}

func NewListener(carts CartClearer, logger *zap.Logger, brokers ...string) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "checkout-completed",
		GroupID:  "cart-service-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Listener{carts: carts, reader: reader, logger: logger}
}

func (l *Listener) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		l.readAndClear(ctx)
	}
}

func (l *Listener) Close() {
	if err := l.reader.Close(); err != nil {
		l.logger.Error("error closing kafka reader", zap.Error(err))
	}
}

func (l *Listener) readAndClear(ctx context.Context) {
	m, err := l.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			l.logger.Error("error reading message", zap.Error(err))
		}
		return
	}

	var payload struct {
		CartID string `json:"cart_id"`
	}
	if errUnmarshal := json.Unmarshal(m.Value, &payload); errUnmarshal != nil {
		l.logger.Error("error parsing message", zap.Error(errUnmarshal))
		return
	}
	if payload.CartID == "" {
		l.logger.Warn("checkout event missing cart_id")
		return
	}

	if errClear := l.carts.ClearCart(ctx, payload.CartID); errClear != nil {
		l.logger.Error("failed to clear cart", zap.String("cart_id", payload.CartID), zap.Error(errClear))
	}
}
