// Package cart implements the session-scoped line item accumulator. A cart is
// keyed by an opaque session identifier, snapshots product fields at add time,
// and recomputes its derived totals on every mutation.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Quantity bounds for a single line item.
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Sentinel errors for cart operations.
var (
	ErrNotFound        = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrSessionRequired = errors.New("session id is required")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
)

// Item is a snapshot of a product's purchase-relevant fields plus a quantity.
// At most one item per product id exists in a cart.
type Item struct {
	ProductID bson.ObjectID `json:"productId" bson:"productId"`
	Name      string        `json:"name" bson:"name"`
	Flavour   string        `json:"flavour" bson:"flavour"`
	Price     float64       `json:"price" bson:"price"`
	Image     string        `json:"image" bson:"image"`
	Quantity  int           `json:"quantity" bson:"quantity"`
}

// Cart accumulates a session's line items. TotalItems and Subtotal are
// derived: recomputed before every save, never accepted from input.
type Cart struct {
	ID         bson.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID  string        `json:"sessionId" bson:"sessionId"`
	Items      []Item        `json:"items" bson:"items"`
	TotalItems int           `json:"totalItems" bson:"totalItems"`
	Subtotal   float64       `json:"subtotal" bson:"subtotal"`
	CreatedAt  time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// recomputeTotals refreshes the derived fields from the current items.
func (c *Cart) recomputeTotals() {
	total := 0
	subtotal := 0.0
	for _, item := range c.Items {
		total += item.Quantity
		subtotal += item.Price * float64(item.Quantity)
	}
	c.TotalItems = total
	c.Subtotal = subtotal
}

// findItem returns the index of the line item for productID, or -1.
func (c *Cart) findItem(productID bson.ObjectID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// clampQuantity forces q into [MinQuantity, MaxQuantity].
func clampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// Repository defines persistence operations for carts. Save upserts the cart
// by session id; there is exactly one cart per session.
type Repository interface {
	FindBySession(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Count(ctx context.Context) (int64, error)
}
