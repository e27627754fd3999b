package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopbe/cart-service/internal/cache"
	"github.com/shopbe/cart-service/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrProductNotFound is a well-formed "product missing" answer from
	// the catalog, distinct from any transport failure.
	ErrProductNotFound = errors.New("product not found")
)

// Client fetches an authoritative product snapshot by ID.
//
// Consumers define this interface, not the HTTP implementation.
type Client interface {
	GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error)
}

// HTTPClient talks to the external catalog over HTTP. One synchronous
// fetch per lookup, no internal retries; a circuit breaker sheds load
// when the catalog browns out, and singleflight collapses concurrent
// lookups for the same product.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*domain.ProductSnapshot]
	sfg     singleflight.Group
	cache   cache.SnapshotCache
	logger  *zap.Logger
}

// NewHTTPClient builds a catalog client. snapCache may be nil to disable
// snapshot caching.
func NewHTTPClient(baseURL string, snapCache cache.SnapshotCache, logger *zap.Logger) *HTTPClient {
	breaker := gobreaker.NewCircuitBreaker[*domain.ProductSnapshot](gobreaker.Settings{
		Name: "catalog",
		IsSuccessful: func(err error) bool {
			// a missing product is an answer, not an outage
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
	})

	return &HTTPClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
		cache:   snapCache,
		logger:  logger,
	}
}

func (c *HTTPClient) GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	if c.cache != nil {
		snap, err := c.cache.Get(ctx, productID)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("snapshot cache get error", zap.Error(err))
		}
	}

	v, err, _ := c.sfg.Do(productID, func() (interface{}, error) {
		snap, err := c.breaker.Execute(func() (*domain.ProductSnapshot, error) {
			return c.fetch(ctx, productID)
		})
		if err != nil {
			return nil, err
		}

		if c.cache != nil {
			go func() {
				if errSet := c.cache.Set(context.Background(), productID, snap); errSet != nil {
					c.logger.Warn("snapshot cache set error", zap.Error(errSet))
				}
			}()
		}

		return snap, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.ProductSnapshot), nil
}

func (c *HTTPClient) fetch(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	url := fmt.Sprintf("%s/product/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var payload struct {
		Product *domain.ProductSnapshot `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	if payload.Product == nil {
		return nil, ErrProductNotFound
	}

	return payload.Product, nil
}
