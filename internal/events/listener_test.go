package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeClearer struct {
	cleared []string
	err     error
}

func (f *fakeClearer) ClearCart(_ context.Context, cartID string) error {
	f.cleared = append(f.cleared, cartID)
	return f.err
}

type fakeReader struct {
	messages []kafka.Message
	closed   bool
}

func (f *fakeReader) ReadMessage(context.Context) (kafka.Message, error) {
	if len(f.messages) == 0 {
		return kafka.Message{}, errors.New("no more messages")
	}
	m := f.messages[0]
	f.messages = f.messages[1:]
	return m, nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestReadAndClear_ClearsCart(t *testing.T) {
	clearer := &fakeClearer{}
	l := &Listener{
		carts:  clearer,
		reader: &fakeReader{messages: []kafka.Message{{Value: []byte(`{"cart_id":"cart#A"}`)}}},
		logger: zap.NewNop(),
	}

	l.readAndClear(context.Background())
	assert.Equal(t, []string{"cart#A"}, clearer.cleared)
}

func TestReadAndClear_SkipsMalformedMessage(t *testing.T) {
	clearer := &fakeClearer{}
	l := &Listener{
		carts:  clearer,
		reader: &fakeReader{messages: []kafka.Message{{Value: []byte(`not-json`)}}},
		logger: zap.NewNop(),
	}

	l.readAndClear(context.Background())
	assert.Empty(t, clearer.cleared)
}

func TestReadAndClear_SkipsMissingCartID(t *testing.T) {
	clearer := &fakeClearer{}
	l := &Listener{
		carts:  clearer,
		reader: &fakeReader{messages: []kafka.Message{{Value: []byte(`{"order_id":"42"}`)}}},
		logger: zap.NewNop(),
	}

	l.readAndClear(context.Background())
	assert.Empty(t, clearer.cleared)
}

func TestClose_ClosesReader(t *testing.T) {
	r := &fakeReader{}
	l := &Listener{carts: &fakeClearer{}, reader: r, logger: zap.NewNop()}

	l.Close()
	assert.True(t, r.closed)
}
