package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/grainly/storefront/internal/domain/blog"
)

var _ blog.Repository = (*BlogRepository)(nil)

// BlogRepository implements blog.Repository backed by MongoDB.
type BlogRepository struct {
	coll *mongo.Collection
}

// NewBlogRepository returns a BlogRepository using the given database.
func NewBlogRepository(db *DB) *BlogRepository {
	return &BlogRepository{coll: db.db.Collection(collBlogs)}
}

func (r *BlogRepository) List(ctx context.Context, f blog.ListFilter) ([]blog.Blog, int64, error) {
	filter := bson.D{}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	if f.Featured != nil {
		filter = append(filter, bson.E{Key: "featured", Value: *f.Featured})
	}
	if f.Published != nil {
		filter = append(filter, bson.E{Key: "published", Value: *f.Published})
	}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: f.Status})
	}
	if len(f.Tags) > 0 {
		filter = append(filter, bson.E{Key: "tags", Value: bson.D{{Key: "$in", Value: f.Tags}}})
	}
	if f.Search != "" {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: bson.D{{Key: "$regex", Value: f.Search}, {Key: "$options", Value: "i"}}}},
			bson.D{{Key: "excerpt", Value: bson.D{{Key: "$regex", Value: f.Search}, {Key: "$options", Value: "i"}}}},
			bson.D{{Key: "content", Value: bson.D{{Key: "$regex", Value: f.Search}, {Key: "$options", Value: "i"}}}},
		}})
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count blogs")
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, errors.Wrap(err, "find blogs")
	}
	defer cursor.Close(ctx)

	blogs := []blog.Blog{}
	if err := cursor.All(ctx, &blogs); err != nil {
		return nil, 0, errors.Wrap(err, "decode blogs")
	}
	return blogs, total, nil
}

func (r *BlogRepository) GetByID(ctx context.Context, id bson.ObjectID) (*blog.Blog, error) {
	var b blog.Blog
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, blog.ErrNotFound
		}
		return nil, errors.Wrap(err, "find blog")
	}
	return &b, nil
}

// GetBySlug returns the post and increments its view counter in one step.
func (r *BlogRepository) GetBySlug(ctx context.Context, slug string) (*blog.Blog, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var b blog.Blog
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "slug", Value: slug}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}}},
		opts,
	).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, blog.ErrNotFound
		}
		return nil, errors.Wrap(err, "find blog by slug")
	}
	return &b, nil
}

func (r *BlogRepository) Create(ctx context.Context, b *blog.Blog) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.ID.IsZero() {
		b.ID = bson.NewObjectID()
	}

	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		return errors.Wrap(err, "insert blog")
	}
	return nil
}

func (r *BlogRepository) Update(ctx context.Context, id bson.ObjectID, b *blog.Blog) (*blog.Blog, error) {
	b.ID = id
	b.UpdatedAt = time.Now().UTC()

	opts := options.FindOneAndReplace().SetReturnDocument(options.After)
	var updated blog.Blog
	err := r.coll.FindOneAndReplace(ctx, bson.D{{Key: "_id", Value: id}}, b, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, blog.ErrNotFound
		}
		return nil, errors.Wrap(err, "replace blog")
	}
	return &updated, nil
}

func (r *BlogRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrap(err, "delete blog")
	}
	if res.DeletedCount == 0 {
		return blog.ErrNotFound
	}
	return nil
}

func (r *BlogRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}
