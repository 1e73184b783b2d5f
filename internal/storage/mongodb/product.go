package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/grainly/storefront/internal/domain/catalog"
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by MongoDB.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository returns a ProductRepository using the given database.
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{coll: db.db.Collection(collProducts)}
}

func (r *ProductRepository) List(ctx context.Context, f catalog.ListFilter) ([]catalog.Product, int64, error) {
	filter := bson.D{}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	if f.Flavour != "" {
		filter = append(filter, bson.E{Key: "flavour", Value: bson.D{
			{Key: "$regex", Value: f.Flavour},
			{Key: "$options", Value: "i"},
		}})
	}
	if f.Search != "" {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "itemName", Value: bson.D{{Key: "$regex", Value: f.Search}, {Key: "$options", Value: "i"}}}},
			bson.D{{Key: "flavour", Value: bson.D{{Key: "$regex", Value: f.Search}, {Key: "$options", Value: "i"}}}},
			bson.D{{Key: "description", Value: bson.D{{Key: "$regex", Value: f.Search}, {Key: "$options", Value: "i"}}}},
		}})
	}
	if f.Active != nil {
		filter = append(filter, bson.E{Key: "isActive", Value: *f.Active})
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "find products")
	}
	defer cursor.Close(ctx)

	products := []catalog.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, errors.Wrap(err, "decode products")
	}
	return products, total, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id bson.ObjectID) (*catalog.Product, error) {
	var p catalog.Product
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrap(err, "find product")
	}
	return &p, nil
}

func (r *ProductRepository) GetByFlavour(ctx context.Context, flavour string) (*catalog.Product, error) {
	filter := bson.D{{Key: "flavour", Value: bson.D{
		{Key: "$regex", Value: "^" + flavour + "$"},
		{Key: "$options", Value: "i"},
	}}}
	var p catalog.Product
	err := r.coll.FindOne(ctx, filter).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrap(err, "find product by flavour")
	}
	return &p, nil
}

func (r *ProductRepository) ListFlavours(ctx context.Context) ([]catalog.FlavourEntry, error) {
	opts := options.Find().
		SetProjection(bson.D{
			{Key: "flavour", Value: 1},
			{Key: "itemName", Value: 1},
		}).
		SetSort(bson.D{{Key: "flavour", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.D{{Key: "isActive", Value: true}}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find flavours")
	}
	defer cursor.Close(ctx)

	entries := []catalog.FlavourEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, errors.Wrap(err, "decode flavours")
	}
	return entries, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.ID.IsZero() {
		p.ID = bson.NewObjectID()
	}

	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return errors.Wrap(err, "insert product")
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, id bson.ObjectID, p *catalog.Product) error {
	p.ID = id
	p.UpdatedAt = time.Now().UTC()

	res, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}}, p)
	if err != nil {
		return errors.Wrap(err, "replace product")
	}
	if res.MatchedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrap(err, "delete product")
	}
	if res.DeletedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}
