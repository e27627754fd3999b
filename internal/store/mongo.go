package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopbe/cart-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements ItemStore on a single document per (cartID,
// productID). Both increment shapes are one FindOneAndUpdate, so the
// non-negativity guard is enforced server-side and atomically.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("cart_items"),
	}
}

func (m *MongoStore) UpsertIncrement(ctx context.Context, key Key, delta int64, fields Fields) (int64, error) {
	filter := bson.M{"cart_id": key.CartID, "product_id": key.ProductID}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": setFields(fields),
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var item domain.LineItem
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
	if mongo.IsDuplicateKeyError(err) {
		// two first-time adds can race the upsert against the unique
		// index; the loser's document exists now, so the same update
		// applies as a plain increment
		err = m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to upsert-increment item: %w", err)
	}

	return item.Quantity, nil
}

func (m *MongoStore) GuardedIncrement(ctx context.Context, key Key, delta int64, fields Fields, floor int64) (int64, error) {
	// quantity + delta >= floor, expressed as a filter on the pre-update
	// value so the whole write matches or nothing happens
	filter := bson.M{
		"cart_id":    key.CartID,
		"product_id": key.ProductID,
		"quantity":   bson.M{"$gte": floor - delta},
	}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": setFields(fields),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var item domain.LineItem
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrPreconditionFailed
		}
		return 0, fmt.Errorf("failed to guarded-increment item: %w", err)
	}

	return item.Quantity, nil
}

func (m *MongoStore) Query(ctx context.Context, cartID string) ([]domain.LineItem, error) {
	cursor, err := m.collection.Find(ctx, bson.M{"cart_id": cartID})
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}

	var items []domain.LineItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart items: %w", err)
	}

	return items, nil
}

func (m *MongoStore) DeleteAll(ctx context.Context, cartID string) (int64, error) {
	result, err := m.collection.DeleteMany(ctx, bson.M{"cart_id": cartID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete cart items: %w", err)
	}

	return result.DeletedCount, nil
}

func setFields(fields Fields) bson.M {
	set := bson.M{
		"product_snapshot": fields.Snapshot,
		"updated_at":       fields.UpdatedAt,
	}
	if !fields.ExpiresAt.IsZero() {
		set["expires_at"] = fields.ExpiresAt
	}
	return set
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "cart_id", Value: 1},
				{Key: "product_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			// Physical expiry belongs to the storage layer
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
