package mongodb

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/grainly/storefront/internal/domain/admin"
)

var _ admin.Repository = (*AdminRepository)(nil)

// AdminRepository implements admin.Repository backed by MongoDB.
type AdminRepository struct {
	coll *mongo.Collection
}

// NewAdminRepository returns an AdminRepository using the given database.
func NewAdminRepository(db *DB) *AdminRepository {
	return &AdminRepository{coll: db.db.Collection(collAdmins)}
}

func (r *AdminRepository) GetByID(ctx context.Context, id bson.ObjectID) (*admin.Admin, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*admin.Admin, error) {
	return r.findOne(ctx, bson.D{{Key: "username", Value: username}})
}

func (r *AdminRepository) findOne(ctx context.Context, filter bson.D) (*admin.Admin, error) {
	var a admin.Admin
	err := r.coll.FindOne(ctx, filter).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, admin.ErrNotFound
		}
		return nil, errors.Wrap(err, "find admin")
	}
	return &a, nil
}

func (r *AdminRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "username", Value: username}},
		bson.D{{Key: "email", Value: email}},
	}}}
	count, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "count admins")
	}
	return count > 0, nil
}

func (r *AdminRepository) Create(ctx context.Context, a *admin.Admin) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.ID.IsZero() {
		a.ID = bson.NewObjectID()
	}

	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return admin.ErrAlreadyExists
		}
		return errors.Wrap(err, "insert admin")
	}
	return nil
}

func (r *AdminRepository) List(ctx context.Context) ([]admin.Admin, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find admins")
	}
	defer cursor.Close(ctx)

	admins := []admin.Admin{}
	if err := cursor.All(ctx, &admins); err != nil {
		return nil, errors.Wrap(err, "decode admins")
	}
	return admins, nil
}

func (r *AdminRepository) Update(ctx context.Context, id bson.ObjectID, u admin.Update) (*admin.Admin, error) {
	set := bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}
	if u.Email != nil {
		set = append(set, bson.E{Key: "email", Value: *u.Email})
	}
	if u.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *u.Name})
	}
	if u.Role != nil {
		set = append(set, bson.E{Key: "role", Value: *u.Role})
	}
	if u.Active != nil {
		set = append(set, bson.E{Key: "active", Value: *u.Active})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var a admin.Admin
	err := r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, admin.ErrNotFound
		}
		return nil, errors.Wrap(err, "update admin")
	}
	return &a, nil
}

func (r *AdminRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrap(err, "delete admin")
	}
	if res.DeletedCount == 0 {
		return admin.ErrNotFound
	}
	return nil
}

func (r *AdminRepository) TouchLastLogin(ctx context.Context, id bson.ObjectID, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "lastLogin", Value: at}}}},
	)
	if err != nil {
		return errors.Wrap(err, "touch last login")
	}
	return nil
}
