package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/grainly/storefront/internal/domain/cart"
	"github.com/grainly/storefront/internal/domain/catalog"
)

// EventPublisher broadcasts order lifecycle events to interested consumers.
// Publishing is best-effort: failures are logged by the service and never
// fail the originating operation.
type EventPublisher interface {
	OrderCreated(ctx context.Context, o *Order) error
	OrderStatusChanged(ctx context.Context, o *Order) error
	OrderCancelled(ctx context.Context, o *Order) error
}

// Service encapsulates the order pipeline business logic.
type Service struct {
	orders   Repository
	carts    cart.Repository
	products catalog.Repository
	events   EventPublisher
}

// NewService creates an order Service with the required domain dependencies.
// events may be nil when no broker is configured.
func NewService(
	orders Repository,
	carts cart.Repository,
	products catalog.Repository,
	events EventPublisher,
) *Service {
	return &Service{
		orders:   orders,
		carts:    carts,
		products: products,
		events:   events,
	}
}

// CreateRequest holds the input for creating an order from a session cart.
type CreateRequest struct {
	SessionID       string
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	Notes           string
	Currency        string
}

// Create converts the session's cart into an immutable order: it re-resolves
// every referenced product, freezes the cart's line items and snapshot
// prices, computes the totals, persists the order, and finally empties the
// cart. The order-persist and cart-clear steps are not transactional; a
// failure in between leaves a stale cart, which is logged and tolerated.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if req.SessionID == "" {
		return nil, ErrSessionRequired
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	method := req.PaymentMethod
	if method == "" {
		method = PaymentCOD
	}
	if !ValidPaymentMethod(method) {
		return nil, errors.Errorf("unknown payment method %q", method)
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	c, err := s.carts.FindBySession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, ErrCartEmpty
		}
		return nil, errors.Wrap(err, "load cart")
	}
	if len(c.Items) == 0 {
		return nil, ErrCartEmpty
	}

	// Every line item must still resolve to a catalog product. The snapshot
	// price stays authoritative; only existence is checked.
	items := make([]Item, 0, len(c.Items))
	for _, ci := range c.Items {
		if _, err := s.products.GetByID(ctx, ci.ProductID); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, &ProductGoneError{Name: ci.Name}
			}
			return nil, errors.Wrapf(err, "resolve product %s", ci.ProductID.Hex())
		}
		items = append(items, Item{
			ProductID: ci.ProductID,
			Name:      ci.Name,
			Flavour:   ci.Flavour,
			Price:     ci.Price,
			Quantity:  ci.Quantity,
			Image:     ci.Image,
		})
	}

	pricing := ComputePricing(c.Items)

	o := &Order{
		OrderNumber:     GenerateOrderNumber(),
		SessionID:       req.SessionID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Subtotal:        pricing.Subtotal,
		ShippingCost:    pricing.ShippingCost,
		Tax:             pricing.Tax,
		Total:           pricing.Total,
		Currency:        currency,
		PaymentStatus:   PaymentPending,
		OrderStatus:     StatusPending,
		PaymentMethod:   method,
		Notes:           req.Notes,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if !errors.Is(err, ErrDuplicateNumber) {
			return nil, errors.Wrap(err, "create order")
		}
		// Order number collision: retry exactly once with a fresh number.
		o.OrderNumber = GenerateOrderNumber()
		if err := s.orders.Create(ctx, o); err != nil {
			return nil, errors.Wrap(err, "create order (retry)")
		}
	}

	if err := s.emptyCart(ctx, c); err != nil {
		// Known consistency gap: the order exists but the cart survived.
		zctx.From(ctx).Warn("cart not cleared after order creation",
			zap.String("order_number", o.OrderNumber),
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
	}

	s.publish(ctx, o, EventPublisher.OrderCreated)
	return o, nil
}

func (s *Service) emptyCart(ctx context.Context, c *cart.Cart) error {
	c.Items = []cart.Item{}
	c.TotalItems = 0
	c.Subtotal = 0
	return s.carts.Save(ctx, c)
}

// Get resolves an order by internal id, or by order number when the
// identifier carries the order-number prefix.
func (s *Service) Get(ctx context.Context, idOrNumber string) (*Order, error) {
	if IsOrderNumber(idOrNumber) {
		return s.orders.GetByNumber(ctx, idOrNumber)
	}
	id, err := bson.ObjectIDFromHex(idOrNumber)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.orders.GetByID(ctx, id)
}

// ListBySession returns all of a session's orders, newest first.
func (s *Service) ListBySession(ctx context.Context, sessionID string) ([]Order, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	return s.orders.ListBySession(ctx, sessionID)
}

// List returns a page of orders, newest first, with the total match count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 50
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, errors.Errorf("unknown order status %q", f.Status)
	}
	return s.orders.List(ctx, f)
}

// UpdateStatus applies a partial status update: only the supplied fields
// change. No transition validation is enforced here beyond enum membership;
// the lifecycle is admin-driven.
func (s *Service) UpdateStatus(ctx context.Context, id bson.ObjectID, u StatusUpdate) (*Order, error) {
	if u.OrderStatus != nil && !ValidStatus(*u.OrderStatus) {
		return nil, errors.Errorf("unknown order status %q", *u.OrderStatus)
	}
	if u.PaymentStatus != nil && !ValidPaymentStatus(*u.PaymentStatus) {
		return nil, errors.Errorf("unknown payment status %q", *u.PaymentStatus)
	}

	o, err := s.orders.UpdateStatus(ctx, id, u)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, o, EventPublisher.OrderStatusChanged)
	return o, nil
}

// Cancel sets the order's status to cancelled. Only orders still in pending
// or confirmed may be cancelled; later states are terminal for this path.
func (s *Service) Cancel(ctx context.Context, id bson.ObjectID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.OrderStatus.Cancellable() {
		return nil, ErrNotCancellable
	}

	cancelled := StatusCancelled
	o, err = s.orders.UpdateStatus(ctx, id, StatusUpdate{OrderStatus: &cancelled})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, o, EventPublisher.OrderCancelled)
	return o, nil
}

func (s *Service) publish(ctx context.Context, o *Order, fn func(EventPublisher, context.Context, *Order) error) {
	if s.events == nil {
		return
	}
	if err := fn(s.events, ctx, o); err != nil {
		zctx.From(ctx).Warn("order event not published",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
	}
}
