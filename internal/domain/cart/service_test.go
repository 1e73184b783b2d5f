package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grainly/storefront/internal/domain/catalog"
)

// --- Mock implementations ---

type mockCartRepo struct {
	carts map[string]*Cart
	saves int
}

func newCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]*Cart)}
}

func (m *mockCartRepo) FindBySession(_ context.Context, sessionID string) (*Cart, error) {
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	return &cp, nil
}

func (m *mockCartRepo) Save(_ context.Context, c *Cart) error {
	m.saves++
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	m.carts[c.SessionID] = &cp
	return nil
}

func (m *mockCartRepo) Count(_ context.Context) (int64, error) {
	var n int64
	for _, c := range m.carts {
		if len(c.Items) > 0 {
			n++
		}
	}
	return n, nil
}

type mockProductRepo struct {
	byID map[bson.ObjectID]*catalog.Product
}

func newProductRepo(products ...catalog.Product) *mockProductRepo {
	byID := make(map[bson.ObjectID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func (m *mockProductRepo) List(_ context.Context, _ catalog.ListFilter) ([]catalog.Product, int64, error) {
	return nil, 0, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id bson.ObjectID) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByFlavour(_ context.Context, _ string) (*catalog.Product, error) {
	return nil, catalog.ErrNotFound
}

func (m *mockProductRepo) ListFlavours(_ context.Context) ([]catalog.FlavourEntry, error) {
	return nil, nil
}

func (m *mockProductRepo) Create(_ context.Context, _ *catalog.Product) error { return nil }

func (m *mockProductRepo) Update(_ context.Context, _ bson.ObjectID, _ *catalog.Product) error {
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, _ bson.ObjectID) error { return nil }

func (m *mockProductRepo) Count(_ context.Context) (int64, error) { return 0, nil }

// --- Helpers ---

func newTestProduct(price float64) catalog.Product {
	return catalog.Product{
		ID:       bson.NewObjectID(),
		ItemName: "Protein Ice Cream",
		Flavour:  "Vanilla",
		Price:    price,
		Stock:    10,
		Category: "Classic",
		Images:   []string{"vanilla.jpg"},
		IsActive: true,
	}
}

// --- Tests ---

func TestGetOrCreate_EmptySession(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo())

	_, err := svc.GetOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionRequired)
}

func TestGetOrCreate_CreatesLazily(t *testing.T) {
	repo := newCartRepo()
	svc := NewService(repo, newProductRepo())

	c, err := svc.GetOrCreate(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", c.SessionID)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalItems)
	assert.Equal(t, 0.0, c.Subtotal)
	assert.Equal(t, 1, repo.saves)

	// Second read returns the same cart without another save.
	_, err = svc.GetOrCreate(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.saves)
}

func TestAddItem_SnapshotsProduct(t *testing.T) {
	p := newTestProduct(100)
	discount := 80.0
	p.DiscountPrice = &discount
	svc := NewService(newCartRepo(), newProductRepo(p))

	c, err := svc.AddItem(context.Background(), "sess-1", p.ID, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)

	item := c.Items[0]
	assert.Equal(t, p.ID, item.ProductID)
	assert.Equal(t, "Protein Ice Cream", item.Name)
	assert.Equal(t, "Vanilla", item.Flavour)
	assert.Equal(t, 80.0, item.Price, "discount price wins over regular price")
	assert.Equal(t, "vanilla.jpg", item.Image)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 2, c.TotalItems)
	assert.Equal(t, 160.0, c.Subtotal)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc := NewService(newCartRepo(), newProductRepo())

	_, err := svc.AddItem(context.Background(), "sess-1", bson.NewObjectID(), 1)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAddItem_MergesDuplicateProduct(t *testing.T) {
	p := newTestProduct(50)
	svc := NewService(newCartRepo(), newProductRepo(p))

	_, err := svc.AddItem(context.Background(), "sess-1", p.ID, 2)
	require.NoError(t, err)
	c, err := svc.AddItem(context.Background(), "sess-1", p.ID, 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1, "one line item per product")
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, 5, c.TotalItems)
	assert.Equal(t, 250.0, c.Subtotal)
}

func TestAddItem_ClampsAtMax(t *testing.T) {
	p := newTestProduct(10)
	svc := NewService(newCartRepo(), newProductRepo(p))

	_, err := svc.AddItem(context.Background(), "sess-1", p.ID, 90)
	require.NoError(t, err)
	c, err := svc.AddItem(context.Background(), "sess-1", p.ID, 50)
	require.NoError(t, err)

	assert.Equal(t, MaxQuantity, c.Items[0].Quantity, "overflow saturates silently")
	assert.Equal(t, MaxQuantity, c.TotalItems)
}

func TestAddItem_ClampsInsertQuantity(t *testing.T) {
	p := newTestProduct(10)
	svc := NewService(newCartRepo(), newProductRepo(p))

	c, err := svc.AddItem(context.Background(), "sess-1", p.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, c.Items[0].Quantity)
}

func TestUpdateItem_Bounds(t *testing.T) {
	p := newTestProduct(10)
	svc := NewService(newCartRepo(), newProductRepo(p))
	_, err := svc.AddItem(context.Background(), "sess-1", p.ID, 5)
	require.NoError(t, err)

	for _, q := range []int{0, 100, -1} {
		_, err := svc.UpdateItem(context.Background(), "sess-1", p.ID, q)
		assert.ErrorIs(t, err, ErrInvalidQuantity, "quantity %d must be rejected", q)
	}

	for _, q := range []int{1, 99} {
		c, err := svc.UpdateItem(context.Background(), "sess-1", p.ID, q)
		require.NoError(t, err)
		assert.Equal(t, q, c.Items[0].Quantity)
	}
}

func TestUpdateItem_MissingCartAndItem(t *testing.T) {
	p := newTestProduct(10)
	svc := NewService(newCartRepo(), newProductRepo(p))

	_, err := svc.UpdateItem(context.Background(), "sess-1", p.ID, 5)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddItem(context.Background(), "sess-1", p.ID, 1)
	require.NoError(t, err)
	_, err = svc.UpdateItem(context.Background(), "sess-1", bson.NewObjectID(), 5)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem(t *testing.T) {
	p1 := newTestProduct(10)
	p2 := newTestProduct(20)
	svc := NewService(newCartRepo(), newProductRepo(p1, p2))

	_, err := svc.AddItem(context.Background(), "sess-1", p1.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), "sess-1", p2.ID, 1)
	require.NoError(t, err)

	c, err := svc.RemoveItem(context.Background(), "sess-1", p1.ID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, p2.ID, c.Items[0].ProductID)
	assert.Equal(t, 1, c.TotalItems)
	assert.Equal(t, 20.0, c.Subtotal)

	// Removing an absent item is not an error.
	c, err = svc.RemoveItem(context.Background(), "sess-1", bson.NewObjectID())
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	// A missing cart is.
	_, err = svc.RemoveItem(context.Background(), "no-such-session", p1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear(t *testing.T) {
	p := newTestProduct(10)
	svc := NewService(newCartRepo(), newProductRepo(p))
	_, err := svc.AddItem(context.Background(), "sess-1", p.ID, 3)
	require.NoError(t, err)

	c, err := svc.Clear(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalItems)
	assert.Equal(t, 0.0, c.Subtotal)
}

func TestSync_DropsDanglingProducts(t *testing.T) {
	p := newTestProduct(100)
	svc := NewService(newCartRepo(), newProductRepo(p))

	gone := bson.NewObjectID()
	c, err := svc.Sync(context.Background(), "sess-1", []SyncItem{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: gone, Name: "Deleted Flavour", Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, c.Items, 1, "dangling product reference silently dropped")
	assert.Equal(t, p.ID, c.Items[0].ProductID)
	assert.Equal(t, "Protein Ice Cream", c.Items[0].Name)
	assert.Equal(t, 100.0, c.Items[0].Price, "catalog price is authoritative")
	assert.Equal(t, 2, c.TotalItems)
	assert.Equal(t, 200.0, c.Subtotal)
}

func TestSync_DefaultsAndClampsQuantity(t *testing.T) {
	p := newTestProduct(10)
	svc := NewService(newCartRepo(), newProductRepo(p))

	c, err := svc.Sync(context.Background(), "sess-1", []SyncItem{
		{ProductID: p.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[0].Quantity, "absent quantity defaults to 1")

	c, err = svc.Sync(context.Background(), "sess-1", []SyncItem{
		{ProductID: p.ID, Quantity: 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, c.Items[0].Quantity)
}

func TestSync_ReplacesExistingItems(t *testing.T) {
	p1 := newTestProduct(10)
	p2 := newTestProduct(20)
	svc := NewService(newCartRepo(), newProductRepo(p1, p2))

	_, err := svc.AddItem(context.Background(), "sess-1", p1.ID, 5)
	require.NoError(t, err)

	c, err := svc.Sync(context.Background(), "sess-1", []SyncItem{
		{ProductID: p2.ID, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, c.Items, 1, "sync replaces the whole sequence")
	assert.Equal(t, p2.ID, c.Items[0].ProductID)
}

func TestTotalsInvariant(t *testing.T) {
	p1 := newTestProduct(33.5)
	p2 := newTestProduct(12.25)
	repo := newCartRepo()
	svc := NewService(repo, newProductRepo(p1, p2))
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "sess-1", p1.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "sess-1", p2.ID, 4)
	require.NoError(t, err)
	_, err = svc.UpdateItem(ctx, "sess-1", p1.ID, 2)
	require.NoError(t, err)
	c, err := svc.RemoveItem(ctx, "sess-1", p2.ID)
	require.NoError(t, err)

	wantItems, wantSubtotal := 0, 0.0
	for _, item := range c.Items {
		wantItems += item.Quantity
		wantSubtotal += item.Price * float64(item.Quantity)
	}
	assert.Equal(t, wantItems, c.TotalItems)
	assert.Equal(t, wantSubtotal, c.Subtotal)
}
