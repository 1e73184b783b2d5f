// Package catalog holds the product catalog: the read-mostly store of
// purchasable items that carts and orders reference by id but never embed
// live. Purchase-relevant fields are snapshotted at cart-add time.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Categories a product may belong to.
var Categories = []string{
	"Classic",
	"Decadent",
	"Global Delicious",
	"Pre-workout / Sports Nutrition",
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID               bson.ObjectID `json:"id" bson:"_id,omitempty"`
	ItemName         string        `json:"itemName" bson:"itemName"`
	Flavour          string        `json:"flavour" bson:"flavour"`
	Description      string        `json:"description" bson:"description"`
	ShortDescription string        `json:"shortDescription" bson:"shortDescription"`
	Price            float64       `json:"price" bson:"price"`
	DiscountPrice    *float64      `json:"discountPrice" bson:"discountPrice"`
	Stock            int           `json:"stock" bson:"stock"`
	Category         string        `json:"category" bson:"category"`
	Tags             []string      `json:"tags" bson:"tags"`
	Image            string        `json:"image" bson:"image"`
	Images           []string      `json:"images" bson:"images"`
	IsActive         bool          `json:"isActive" bson:"isActive"`
	CreatedAt        time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// UnitPrice returns the price a buyer actually pays: the discount price when
// one is set, the regular price otherwise.
func (p *Product) UnitPrice() float64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// FirstImage returns the primary image URL for cart/order snapshots.
func (p *Product) FirstImage() string {
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return p.Image
}

// ValidationError describes a single rejected product field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate enforces the catalog field constraints at the service boundary,
// independent of persistence.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ItemName) == "" {
		return &ValidationError{Field: "itemName", Message: "item name is required"}
	}
	if strings.TrimSpace(p.Flavour) == "" {
		return &ValidationError{Field: "flavour", Message: "flavour is required"}
	}
	if len(p.ShortDescription) > 200 {
		return &ValidationError{Field: "shortDescription", Message: "cannot exceed 200 characters"}
	}
	if p.Price <= 0 {
		return &ValidationError{Field: "price", Message: "price must be greater than 0"}
	}
	if p.DiscountPrice != nil {
		if *p.DiscountPrice < 0 {
			return &ValidationError{Field: "discountPrice", Message: "discount price cannot be negative"}
		}
		if *p.DiscountPrice >= p.Price {
			return &ValidationError{Field: "discountPrice", Message: "discount price must be less than regular price"}
		}
	}
	if p.Stock < 0 {
		return &ValidationError{Field: "stock", Message: "stock cannot be negative"}
	}
	if !validCategory(p.Category) {
		return &ValidationError{Field: "category", Message: "unknown category"}
	}
	return nil
}

func validCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// FlavourEntry is the compact projection served by the flavour listing.
type FlavourEntry struct {
	ID       bson.ObjectID `json:"id" bson:"_id"`
	Flavour  string        `json:"flavour" bson:"flavour"`
	ItemName string        `json:"itemName" bson:"itemName"`
}

// ListFilter narrows a catalog listing.
type ListFilter struct {
	Category string
	Flavour  string
	Search   string
	Active   *bool
	Page     int64
	Limit    int64
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Product, int64, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*Product, error)
	// GetByFlavour matches the flavour name case-insensitively. Used for
	// slug-style lookups like "vanilla-ice-cream".
	GetByFlavour(ctx context.Context, flavour string) (*Product, error)
	ListFlavours(ctx context.Context) ([]FlavourEntry, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id bson.ObjectID, p *Product) error
	Delete(ctx context.Context, id bson.ObjectID) error
	Count(ctx context.Context) (int64, error)
}
