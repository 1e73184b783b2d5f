// Package order implements the order pipeline: converting a session cart into
// an immutable order record with computed pricing and a status lifecycle.
package order

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// OrderNumberPrefix starts every human-readable order number.
const OrderNumberPrefix = "GRN"

// Sentinel errors for order operations.
var (
	ErrNotFound        = errors.New("order not found")
	ErrCartEmpty       = errors.New("cart is empty")
	ErrSessionRequired = errors.New("session id is required")
	ErrAddressRequired = errors.New("shipping address is required")
	ErrNotCancellable  = errors.New("order cannot be cancelled at this stage")
	// ErrDuplicateNumber signals a generated order number collided with an
	// existing one. Creation retries once with a fresh number.
	ErrDuplicateNumber = errors.New("order number already exists")
)

// ProductGoneError indicates a cart line item references a product that no
// longer exists in the catalog. No partial orders are created.
type ProductGoneError struct {
	Name string
}

func (e *ProductGoneError) Error() string {
	return fmt.Sprintf("product %s not found", e.Name)
}

// Status is the fulfilment lifecycle state of an order. Transitions are
// admin-driven and forward-only; cancelled and delivered are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// PaymentStatus tracks payment independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PaymentMethod is how the buyer pays.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentCard   PaymentMethod = "card"
	PaymentUPI    PaymentMethod = "upi"
	PaymentWallet PaymentMethod = "wallet"
)

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCOD, PaymentCard, PaymentUPI, PaymentWallet:
		return true
	}
	return false
}

// Item is an order line item, frozen from the cart at creation time. Price is
// the cart's snapshot price, decoupled from any later catalog change.
type Item struct {
	ProductID bson.ObjectID `json:"productId" bson:"productId"`
	Name      string        `json:"name" bson:"name"`
	Flavour   string        `json:"flavour" bson:"flavour"`
	Price     float64       `json:"price" bson:"price"`
	Quantity  int           `json:"quantity" bson:"quantity"`
	Image     string        `json:"image" bson:"image"`
}

// ShippingAddress is the embedded delivery address value object.
type ShippingAddress struct {
	FullName string `json:"fullName" bson:"fullName"`
	Email    string `json:"email" bson:"email"`
	Phone    string `json:"phone" bson:"phone"`
	Address  string `json:"address" bson:"address"`
	City     string `json:"city" bson:"city"`
	State    string `json:"state" bson:"state"`
	ZipCode  string `json:"zipCode" bson:"zipCode"`
	Country  string `json:"country" bson:"country"`
}

// Validate enforces the required address fields.
func (a *ShippingAddress) Validate() error {
	required := []struct{ field, value string }{
		{"fullName", a.FullName},
		{"email", a.Email},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"zipCode", a.ZipCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return errors.Wrap(ErrAddressRequired, r.field)
		}
	}
	return nil
}

// Order is an immutable record of a checkout. Totals are computed once at
// creation and never recalculated.
type Order struct {
	ID              bson.ObjectID   `json:"id" bson:"_id,omitempty"`
	OrderNumber     string          `json:"orderNumber" bson:"orderNumber"`
	SessionID       string          `json:"sessionId" bson:"sessionId"`
	Items           []Item          `json:"items" bson:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress" bson:"shippingAddress"`
	Subtotal        float64         `json:"subtotal" bson:"subtotal"`
	ShippingCost    float64         `json:"shippingCost" bson:"shippingCost"`
	Tax             float64         `json:"tax" bson:"tax"`
	Total           float64         `json:"total" bson:"total"`
	Currency        string          `json:"currency" bson:"currency"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" bson:"paymentStatus"`
	OrderStatus     Status          `json:"orderStatus" bson:"orderStatus"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" bson:"paymentMethod"`
	Notes           string          `json:"notes" bson:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// GenerateOrderNumber builds a human-readable order number: the GRN prefix,
// the last 8 digits of the millisecond timestamp, and 3 random digits. Not
// collision-free under concurrent creation within the same millisecond; the
// unique index on orderNumber plus one retry covers that.
func GenerateOrderNumber() string {
	ts := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(ts) > 8 {
		ts = ts[len(ts)-8:]
	}
	return fmt.Sprintf("%s%s%03d", OrderNumberPrefix, ts, rand.Intn(1000))
}

// IsOrderNumber reports whether id looks like a generated order number rather
// than an ObjectID hex.
func IsOrderNumber(id string) bool {
	return strings.HasPrefix(id, OrderNumberPrefix)
}

// StatusUpdate is a partial update: only non-nil fields are applied.
type StatusUpdate struct {
	OrderStatus   *Status
	PaymentStatus *PaymentStatus
}

// ListFilter narrows an admin order listing.
type ListFilter struct {
	Status Status
	Page   int64
	Limit  int64
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists a new order. It returns ErrDuplicateNumber when the
	// generated order number violates the uniqueness constraint.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id bson.ObjectID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int64, error)
	UpdateStatus(ctx context.Context, id bson.ObjectID, u StatusUpdate) (*Order, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, s Status) (int64, error)
	// Revenue sums the totals of all orders whose payment did not fail.
	Revenue(ctx context.Context) (float64, error)
	Recent(ctx context.Context, limit int64) ([]Order, error)
}
