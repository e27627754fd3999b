package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopbe/cart-service/internal/catalog"
	"github.com/shopbe/cart-service/internal/domain"
	"github.com/shopbe/cart-service/internal/identity"
	"go.uber.org/zap"
)

const (
	cartCookieName   = "cartId"
	cartCookieMaxAge = 86400 // 1 day

	// set upstream by the authenticating proxy for logged-in users
	principalHeader = "X-User-ID"
)

// CartService is what the handlers need from the orchestration layer.
// Consumers define this interface, not the service implementation.
type CartService interface {
	ApplyDelta(ctx context.Context, cartID, productID string, delta int64) (int64, error)
	ListItems(ctx context.Context, cartID string) ([]domain.LineItem, error)
}

type CartHandler struct {
	service  CartService
	resolver identity.Resolver
	logger   *zap.Logger
}

func NewCartHandler(service CartService, resolver identity.Resolver, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		service:  service,
		resolver: resolver,
		logger:   logger,
	}
}

type UpdateItemRequestDTO struct {
	ProductID string `json:"productId"`
	// nil means "not supplied", which defaults to 1
	Quantity *int64 `json:"quantity"`
}

type UpdateItemResponseDTO struct {
	ProductID string `json:"productId"`
	Message   string `json:"message"`
}

type MessageResponseDTO struct {
	Message string `json:"message"`
}

type CartResponseDTO struct {
	CartID string            `json:"cartId"`
	Items  []domain.LineItem `json:"items"`
}

// UpdateItem applies a signed quantity delta to one line item of the
// caller's cart. The continuation cookie is attached to every response
// once the payload passed validation, so cart identity survives failed
// attempts too.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, MessageResponseDTO{Message: "no request payload"}, h.logger)
		return
	}
	if req.ProductID == "" {
		respondJSON(w, http.StatusBadRequest, MessageResponseDTO{Message: "productId is required"}, h.logger)
		return
	}

	delta := int64(1)
	if req.Quantity != nil {
		delta = *req.Quantity
	}

	cartID, err := h.resolveIdentity(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, MessageResponseDTO{Message: "invalid user"}, h.logger)
		return
	}
	setCartCookie(w, cartID)

	qty, err := h.service.ApplyDelta(r.Context(), cartID, req.ProductID, delta)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondJSON(w, http.StatusNotFound, MessageResponseDTO{Message: "product not found"}, h.logger)
			return
		}
		// insufficient quantity folds into the generic failure; the
		// invariant holds because the write never applied
		h.logger.Error("cart update failed",
			zap.String("cart_id", cartID),
			zap.String("product_id", req.ProductID),
			zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, MessageResponseDTO{Message: "internal server error"}, h.logger)
		return
	}

	h.logger.Info("cart item updated",
		zap.String("cart_id", cartID),
		zap.String("product_id", req.ProductID),
		zap.Int64("quantity", qty))
	respondJSON(w, http.StatusOK, UpdateItemResponseDTO{
		ProductID: req.ProductID,
		Message:   "product added to cart",
	}, h.logger)
}

// GetCart lists the line items of the caller's cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID, err := h.resolveIdentity(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, MessageResponseDTO{Message: "invalid user"}, h.logger)
		return
	}
	setCartCookie(w, cartID)

	items, err := h.service.ListItems(r.Context(), cartID)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, MessageResponseDTO{Message: "internal server error"}, h.logger)
		return
	}
	if items == nil {
		items = []domain.LineItem{}
	}

	respondJSON(w, http.StatusOK, CartResponseDTO{CartID: cartID, Items: items}, h.logger)
}

func (h *CartHandler) resolveIdentity(r *http.Request) (string, error) {
	var cookieID string
	if c, err := r.Cookie(cartCookieName); err == nil {
		cookieID = c.Value
	}
	return h.resolver.Resolve(cookieID, r.Header.Get(principalHeader))
}

func setCartCookie(w http.ResponseWriter, cartID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookieName,
		Value:    cartID,
		MaxAge:   cartCookieMaxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
		Path:     "/",
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
