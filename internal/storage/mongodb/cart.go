package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/grainly/storefront/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by MongoDB. A session owns
// at most one cart, enforced by the unique index on sessionId.
type CartRepository struct {
	coll *mongo.Collection
}

// NewCartRepository returns a CartRepository using the given database.
func NewCartRepository(db *DB) *CartRepository {
	return &CartRepository{coll: db.db.Collection(collCarts)}
}

func (r *CartRepository) FindBySession(ctx context.Context, sessionID string) (*cart.Cart, error) {
	var c cart.Cart
	err := r.coll.FindOne(ctx, bson.D{{Key: "sessionId", Value: sessionID}}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrap(err, "find cart")
	}
	return &c, nil
}

// Save upserts the cart by session id. Items and derived totals are replaced
// wholesale; createdAt is set only on first insert.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	now := time.Now().UTC()
	c.UpdatedAt = now

	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "items", Value: c.Items},
			{Key: "totalItems", Value: c.TotalItems},
			{Key: "subtotal", Value: c.Subtotal},
			{Key: "updatedAt", Value: c.UpdatedAt},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "sessionId", Value: c.SessionID},
			{Key: "createdAt", Value: now},
		}},
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "sessionId", Value: c.SessionID}},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrap(err, "upsert cart")
	}
	if res.UpsertedID != nil {
		if id, ok := res.UpsertedID.(bson.ObjectID); ok {
			c.ID = id
		}
		c.CreatedAt = now
	}
	return nil
}

func (r *CartRepository) Count(ctx context.Context) (int64, error) {
	// Only carts that still hold items count as active.
	return r.coll.CountDocuments(ctx, bson.D{
		{Key: "items.0", Value: bson.D{{Key: "$exists", Value: true}}},
	})
}
