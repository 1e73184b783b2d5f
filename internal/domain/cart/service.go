package cart

import (
	"context"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grainly/storefront/internal/domain/catalog"
)

// Service implements the session cart operations. Every mutation recomputes
// the derived totals before persisting.
type Service struct {
	carts    Repository
	products catalog.Repository
}

// NewService creates a cart Service backed by the given repositories.
func NewService(carts Repository, products catalog.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// GetOrCreate returns the session's cart, creating an empty one if the
// session has none yet.
func (s *Service) GetOrCreate(ctx context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	c, err := s.carts.FindBySession(ctx, sessionID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "find cart")
	}

	c = &Cart{SessionID: sessionID, Items: []Item{}}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	return c, nil
}

// AddItem appends a snapshot of the product as a new line item, or raises the
// quantity of an existing one. Quantities are clamped to [1, 99]; exceeding
// the cap on a repeated add silently saturates instead of failing.
func (s *Service) AddItem(ctx context.Context, sessionID string, productID bson.ObjectID, quantity int) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID.Hex())
	}

	c, err := s.carts.FindBySession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "find cart")
		}
		c = &Cart{SessionID: sessionID, Items: []Item{}}
	}

	if i := c.findItem(productID); i >= 0 {
		c.Items[i].Quantity = clampQuantity(c.Items[i].Quantity + quantity)
	} else {
		flavour := p.Flavour
		if flavour == "" {
			flavour = p.ItemName
		}
		c.Items = append(c.Items, Item{
			ProductID: p.ID,
			Name:      p.ItemName,
			Flavour:   flavour,
			Price:     p.UnitPrice(),
			Image:     p.FirstImage(),
			Quantity:  clampQuantity(quantity),
		})
	}

	c.recomputeTotals()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// UpdateItem sets the quantity of an existing line item. Unlike AddItem, an
// out-of-range quantity here is a caller error, not a clamp.
func (s *Service) UpdateItem(ctx context.Context, sessionID string, productID bson.ObjectID, quantity int) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}

	c, err := s.carts.FindBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find cart")
	}

	i := c.findItem(productID)
	if i < 0 {
		return nil, ErrItemNotFound
	}
	c.Items[i].Quantity = quantity

	c.recomputeTotals()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// RemoveItem drops the line item for productID. Removing an absent item is
// not an error; an absent cart is.
func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID bson.ObjectID) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	c, err := s.carts.FindBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find cart")
	}

	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept

	c.recomputeTotals()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Clear empties the cart's items; both derived totals drop to zero.
func (s *Service) Clear(ctx context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	c, err := s.carts.FindBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find cart")
	}

	c.Items = []Item{}
	c.recomputeTotals()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// SyncItem is a client-supplied line item for Sync. Name, flavour, price and
// image are used only as fallbacks when the catalog lacks those fields.
type SyncItem struct {
	ProductID bson.ObjectID
	Name      string
	Flavour   string
	Price     *float64
	Image     string
	Quantity  int
}

// Sync replaces the cart's entire item sequence from a client snapshot
// (typically a localStorage migration). Each item is re-resolved against the
// catalog; items whose product no longer exists are silently dropped so the
// cart never holds a dangling reference.
func (s *Service) Sync(ctx context.Context, sessionID string, items []SyncItem) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	c, err := s.carts.FindBySession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "find cart")
		}
		c = &Cart{SessionID: sessionID, Items: []Item{}}
	}

	valid := make([]Item, 0, len(items))
	for _, in := range items {
		p, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			return nil, errors.Wrapf(err, "resolve product %s", in.ProductID.Hex())
		}

		// Catalog fields are authoritative; client values only fill gaps.
		name := p.ItemName
		if name == "" {
			name = in.Name
		}
		flavour := p.Flavour
		if flavour == "" {
			flavour = in.Flavour
		}
		if flavour == "" {
			flavour = p.ItemName
		}
		price := p.UnitPrice()
		if price == 0 && in.Price != nil {
			price = *in.Price
		}
		image := p.FirstImage()
		if image == "" {
			image = in.Image
		}
		quantity := in.Quantity
		if quantity == 0 {
			quantity = 1
		}

		valid = append(valid, Item{
			ProductID: p.ID,
			Name:      name,
			Flavour:   flavour,
			Price:     price,
			Image:     image,
			Quantity:  clampQuantity(quantity),
		})
	}

	c.Items = valid
	c.recomputeTotals()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// Empty clears the cart after a successful checkout. Unlike Clear it
// tolerates a missing cart: the order already exists and a retried clear
// must not fail the checkout response.
func (s *Service) Empty(ctx context.Context, sessionID string) error {
	c, err := s.carts.FindBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "find cart")
	}
	c.Items = []Item{}
	c.recomputeTotals()
	return s.carts.Save(ctx, c)
}
