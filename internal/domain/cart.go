package domain

import "time"

// ProductSnapshot is a point-in-time copy of catalog data embedded in a
// line item. It is never refreshed from the catalog after being written;
// the price a shopper saw when adding the item is the price kept.
type ProductSnapshot struct {
	ID       string  `bson:"id" json:"id"`
	Name     string  `bson:"name" json:"name"`
	Price    float64 `bson:"price" json:"price"`
	ImageURL string  `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
}

// LineItem is one (cartID, productID) record. Quantity is only ever
// mutated through the ledger's conditional increments and never goes
// negative.
type LineItem struct {
	CartID    string          `bson:"cart_id" json:"cartId"`
	ProductID string          `bson:"product_id" json:"productId"`
	Quantity  int64           `bson:"quantity" json:"quantity"`
	Snapshot  ProductSnapshot `bson:"product_snapshot" json:"productSnapshot"`
	ExpiresAt time.Time       `bson:"expires_at" json:"expiresAt"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updatedAt"`
}
