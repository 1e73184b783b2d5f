// Package mongodb implements the domain repositories on top of MongoDB.
package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names.
const (
	collProducts = "products"
	collCarts    = "carts"
	collOrders   = "orders"
	collAdmins   = "admins"
	collBlogs    = "blogs"
)

// DB wraps a connected Mongo database handle.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes a MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, uri, name string) (*DB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping")
	}

	return &DB{client: client, db: client.Database(name)}, nil
}

// Ping verifies the connection is still healthy.
func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

type indexSpec struct {
	collection string
	model      mongo.IndexModel
}

var requiredIndexes = []indexSpec{
	{
		collection: collProducts,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("idx_product_category"),
		},
	},
	{
		collection: collProducts,
		model: mongo.IndexModel{
			Keys: bson.D{
				{Key: "itemName", Value: "text"},
				{Key: "flavour", Value: "text"},
				{Key: "description", Value: "text"},
			},
			Options: options.Index().SetName("idx_product_text_search"),
		},
	},
	{
		collection: collCarts,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_cart_session_unique"),
		},
	},
	{
		collection: collOrders,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "orderNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_order_number_unique"),
		},
	},
	{
		collection: collOrders,
		model: mongo.IndexModel{
			Keys: bson.D{
				{Key: "sessionId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_order_session_history"),
		},
	},
	{
		collection: collOrders,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "orderStatus", Value: 1}},
			Options: options.Index().SetName("idx_order_status"),
		},
	},
	{
		collection: collAdmins,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_admin_username_unique"),
		},
	},
	{
		collection: collAdmins,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_admin_email_unique"),
		},
	},
	{
		collection: collBlogs,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_blog_slug_unique"),
		},
	},
	{
		collection: collBlogs,
		model: mongo.IndexModel{
			Keys: bson.D{
				{Key: "published", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_blog_published"),
		},
	},
}

// EnsureIndexes creates the indexes the repositories rely on. It is safe to
// call on every startup; existing indexes are left alone.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	for _, spec := range requiredIndexes {
		if _, err := d.db.Collection(spec.collection).Indexes().CreateOne(ctx, spec.model); err != nil {
			return errors.Wrapf(err, "create index on %s", spec.collection)
		}
	}
	return nil
}
