package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/grainly/storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by MongoDB.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository returns an OrderRepository using the given database.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{coll: db.db.Collection(collOrders)}
}

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.ID.IsZero() {
		o.ID = bson.NewObjectID()
	}

	if _, err := r.coll.InsertOne(ctx, o); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return order.ErrDuplicateNumber
		}
		return errors.Wrap(err, "insert order")
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id bson.ObjectID) (*order.Order, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.findOne(ctx, bson.D{{Key: "orderNumber", Value: number}})
}

func (r *OrderRepository) findOne(ctx context.Context, filter bson.D) (*order.Order, error) {
	var o order.Order
	err := r.coll.FindOne(ctx, filter).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}
	return &o, nil
}

func (r *OrderRepository) ListBySession(ctx context.Context, sessionID string) ([]order.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.D{{Key: "sessionId", Value: sessionID}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find session orders")
	}
	defer cursor.Close(ctx)

	orders := []order.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return orders, nil
}

func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]order.Order, int64, error) {
	filter := bson.D{}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "orderStatus", Value: f.Status})
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((f.Page - 1) * f.Limit).
		SetLimit(f.Limit)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "find orders")
	}
	defer cursor.Close(ctx)

	orders := []order.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, errors.Wrap(err, "decode orders")
	}
	return orders, total, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id bson.ObjectID, u order.StatusUpdate) (*order.Order, error) {
	set := bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}
	if u.OrderStatus != nil {
		set = append(set, bson.E{Key: "orderStatus", Value: *u.OrderStatus})
	}
	if u.PaymentStatus != nil {
		set = append(set, bson.E{Key: "paymentStatus", Value: *u.PaymentStatus})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var o order.Order
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "update order status")
	}
	return &o, nil
}

func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *OrderRepository) CountByStatus(ctx context.Context, s order.Status) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{{Key: "orderStatus", Value: s}})
}

// Revenue sums order totals across everything except failed payments.
func (r *OrderRepository) Revenue(ctx context.Context) (float64, error) {
	pipeline := bson.A{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "paymentStatus", Value: bson.D{{Key: "$ne", Value: order.PaymentFailed}}},
		}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$total"}}},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, errors.Wrap(err, "aggregate revenue")
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, errors.Wrap(err, "decode revenue")
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (r *OrderRepository) Recent(ctx context.Context, limit int64) ([]order.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find recent orders")
	}
	defer cursor.Close(ctx)

	orders := []order.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return orders, nil
}
