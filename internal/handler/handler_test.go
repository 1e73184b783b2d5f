package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/grainly/storefront/internal/domain/admin"
	"github.com/grainly/storefront/internal/domain/blog"
	"github.com/grainly/storefront/internal/domain/cart"
	"github.com/grainly/storefront/internal/domain/catalog"
	"github.com/grainly/storefront/internal/domain/order"
	"github.com/grainly/storefront/internal/domain/stats"
)

// --- Mock repositories ---

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
	var out []catalog.Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id bson.ObjectID) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByFlavour(_ context.Context, flavour string) (*catalog.Product, error) {
	return nil, catalog.ErrNotFound
}

func (m *mockProductRepo) ListFlavours(_ context.Context) ([]catalog.FlavourEntry, error) {
	return nil, nil
}

func (m *mockProductRepo) Create(_ context.Context, p *catalog.Product) error {
	p.ID = bson.NewObjectID()
	m.byID[p.ID] = p
	return nil
}

func (m *mockProductRepo) Update(_ context.Context, _ bson.ObjectID, _ *catalog.Product) error {
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, _ bson.ObjectID) error { return nil }

func (m *mockProductRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.byID)), nil
}

type mockCartRepo struct {
	carts map[string]*cart.Cart
}

func newCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]*cart.Cart)}
}

func (m *mockCartRepo) FindBySession(_ context.Context, sessionID string) (*cart.Cart, error) {
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp, nil
}

func (m *mockCartRepo) Save(_ context.Context, c *cart.Cart) error {
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	m.carts[c.SessionID] = &cp
	return nil
}

func (m *mockCartRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.carts)), nil
}

type mockOrderRepo struct {
	orders   map[bson.ObjectID]*order.Order
	byNumber map[string]*order.Order
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders:   make(map[bson.ObjectID]*order.Order),
		byNumber: make(map[string]*order.Order),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	o.ID = bson.NewObjectID()
	cp := *o
	m.orders[o.ID] = &cp
	m.byNumber[o.OrderNumber] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id bson.ObjectID) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, number string) (*order.Order, error) {
	o, ok := m.byNumber[number]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListBySession(_ context.Context, sessionID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.orders {
		if o.SessionID == sessionID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) List(_ context.Context, _ order.ListFilter) ([]order.Order, int64, error) {
	var out []order.Order
	for _, o := range m.orders {
		out = append(out, *o)
	}
	return out, int64(len(out)), nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id bson.ObjectID, u order.StatusUpdate) (*order.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if u.OrderStatus != nil {
		o.OrderStatus = *u.OrderStatus
	}
	if u.PaymentStatus != nil {
		o.PaymentStatus = *u.PaymentStatus
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.orders)), nil
}

func (m *mockOrderRepo) CountByStatus(_ context.Context, s order.Status) (int64, error) {
	var n int64
	for _, o := range m.orders {
		if o.OrderStatus == s {
			n++
		}
	}
	return n, nil
}

func (m *mockOrderRepo) Revenue(_ context.Context) (float64, error) {
	var sum float64
	for _, o := range m.orders {
		if o.PaymentStatus != order.PaymentFailed {
			sum += o.Total
		}
	}
	return sum, nil
}

func (m *mockOrderRepo) Recent(_ context.Context, limit int64) ([]order.Order, error) {
	out, _, _ := m.List(context.Background(), order.ListFilter{})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockAdminRepo struct {
	byID       map[bson.ObjectID]*admin.Admin
	byUsername map[string]*admin.Admin
}

func newAdminRepo(admins ...*admin.Admin) *mockAdminRepo {
	m := &mockAdminRepo{
		byID:       make(map[bson.ObjectID]*admin.Admin),
		byUsername: make(map[string]*admin.Admin),
	}
	for _, a := range admins {
		m.byID[a.ID] = a
		m.byUsername[a.Username] = a
	}
	return m
}

func (m *mockAdminRepo) GetByID(_ context.Context, id bson.ObjectID) (*admin.Admin, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, admin.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAdminRepo) GetByUsername(_ context.Context, username string) (*admin.Admin, error) {
	a, ok := m.byUsername[username]
	if !ok {
		return nil, admin.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAdminRepo) ExistsByUsernameOrEmail(_ context.Context, username, _ string) (bool, error) {
	_, ok := m.byUsername[username]
	return ok, nil
}

func (m *mockAdminRepo) Create(_ context.Context, a *admin.Admin) error {
	a.ID = bson.NewObjectID()
	cp := *a
	m.byID[a.ID] = &cp
	m.byUsername[a.Username] = &cp
	return nil
}

func (m *mockAdminRepo) List(_ context.Context) ([]admin.Admin, error) {
	var out []admin.Admin
	for _, a := range m.byID {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAdminRepo) Update(_ context.Context, id bson.ObjectID, _ admin.Update) (*admin.Admin, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, admin.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAdminRepo) Delete(_ context.Context, id bson.ObjectID) error {
	delete(m.byID, id)
	return nil
}

func (m *mockAdminRepo) TouchLastLogin(_ context.Context, id bson.ObjectID, at time.Time) error {
	if a, ok := m.byID[id]; ok {
		a.LastLogin = &at
	}
	return nil
}

type mockBlogRepo struct {
	byID map[bson.ObjectID]*blog.Blog
}

func newBlogRepo() *mockBlogRepo {
	return &mockBlogRepo{byID: make(map[bson.ObjectID]*blog.Blog)}
}

func (m *mockBlogRepo) List(_ context.Context, _ blog.ListFilter) ([]blog.Blog, int64, error) {
	var out []blog.Blog
	for _, b := range m.byID {
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (m *mockBlogRepo) GetByID(_ context.Context, id bson.ObjectID) (*blog.Blog, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, blog.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockBlogRepo) GetBySlug(_ context.Context, slug string) (*blog.Blog, error) {
	for _, b := range m.byID {
		if b.Slug == slug {
			b.Views++
			cp := *b
			return &cp, nil
		}
	}
	return nil, blog.ErrNotFound
}

func (m *mockBlogRepo) Create(_ context.Context, b *blog.Blog) error {
	b.ID = bson.NewObjectID()
	cp := *b
	m.byID[b.ID] = &cp
	return nil
}

func (m *mockBlogRepo) Update(_ context.Context, id bson.ObjectID, b *blog.Blog) (*blog.Blog, error) {
	if _, ok := m.byID[id]; !ok {
		return nil, blog.ErrNotFound
	}
	b.ID = id
	cp := *b
	m.byID[id] = &cp
	return &cp, nil
}

func (m *mockBlogRepo) Delete(_ context.Context, id bson.ObjectID) error {
	if _, ok := m.byID[id]; !ok {
		return blog.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockBlogRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.byID)), nil
}

// --- Test fixture ---

type fixture struct {
	router   *gin.Engine
	products *mockProductRepo
	carts    *mockCartRepo
	orders   *mockOrderRepo
	admins   *mockAdminRepo
	blogs    *mockBlogRepo
}

const adminPassword = "test-password"

func superAdmin() *admin.Admin {
	hash, _ := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	return &admin.Admin{
		ID:           bson.NewObjectID(),
		Username:     "root",
		Email:        "root@example.com",
		PasswordHash: string(hash),
		Name:         "Root",
		Role:         admin.RoleSuperAdmin,
		Active:       true,
	}
}

func newFixture(products ...catalog.Product) *fixture {
	gin.SetMode(gin.TestMode)

	f := &fixture{
		products: newProductRepo(products...),
		carts:    newCartRepo(),
		orders:   newOrderRepo(),
		admins:   newAdminRepo(superAdmin()),
		blogs:    newBlogRepo(),
	}

	cartSvc := cart.NewService(f.carts, f.products)
	orderSvc := order.NewService(f.orders, f.carts, f.products, nil)
	adminSvc := admin.NewService(f.admins, []byte("test-secret"), time.Hour)
	statsSvc := stats.NewService(f.products, f.orders, f.blogs, f.carts, nil)

	h := NewHandler(f.products, cartSvc, orderSvc, f.blogs, adminSvc, statsSvc)
	f.router = gin.New()
	h.Register(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/admin/login", gin.H{
		"username": "root",
		"password": adminPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return "Bearer " + resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func testProduct(price float64) catalog.Product {
	return catalog.Product{
		ID:       bson.NewObjectID(),
		ItemName: "Protein Ice Cream",
		Flavour:  "Vanilla",
		Price:    price,
		Stock:    10,
		Category: "Classic",
		IsActive: true,
	}
}

func shippingAddress() gin.H {
	return gin.H{
		"fullName": "Asha Rao",
		"email":    "asha@example.com",
		"phone":    "+91 98765 43210",
		"address":  "14 MG Road",
		"city":     "Bengaluru",
		"zipCode":  "560001",
		"country":  "India",
	}
}

// --- Tests ---

func TestGetCart_CreatesLazily(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodGet, "/api/cart/sess-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	var c cart.Cart
	require.NoError(t, json.Unmarshal(body["cart"], &c))
	assert.Equal(t, "sess-1", c.SessionID)
	assert.Empty(t, c.Items)
}

func TestAddCartItem(t *testing.T) {
	p := testProduct(100)
	f := newFixture(p)

	w := f.do(t, http.MethodPost, "/api/cart/sess-1/add", gin.H{
		"productId": p.ID.Hex(),
		"quantity":  2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	var c cart.Cart
	require.NoError(t, json.Unmarshal(body["cart"], &c))
	assert.Equal(t, 2, c.TotalItems)
	assert.Equal(t, 200.0, c.Subtotal)
}

func TestAddCartItem_UnknownProduct(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodPost, "/api/cart/sess-1/add", gin.H{
		"productId": bson.NewObjectID().Hex(),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddCartItem_MalformedID(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodPost, "/api/cart/sess-1/add", gin.H{
		"productId": "garbage",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateCartItem_InvalidQuantity(t *testing.T) {
	p := testProduct(100)
	f := newFixture(p)
	f.do(t, http.MethodPost, "/api/cart/sess-1/add", gin.H{"productId": p.ID.Hex()})

	w := f.do(t, http.MethodPut, "/api/cart/sess-1/update/"+p.ID.Hex(), gin.H{
		"quantity": 100,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder_FullFlow(t *testing.T) {
	p := testProduct(525)
	f := newFixture(p)

	w := f.do(t, http.MethodPost, "/api/cart/sess-1/add", gin.H{
		"productId": p.ID.Hex(),
		"quantity":  2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/orders/create", gin.H{
		"sessionId":       "sess-1",
		"shippingAddress": shippingAddress(),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	var o order.Order
	require.NoError(t, json.Unmarshal(body["order"], &o))
	assert.Equal(t, 1050.0, o.Subtotal)
	assert.Equal(t, 0.0, o.ShippingCost)
	assert.Equal(t, 52.5, o.Tax)
	assert.Equal(t, 1102.5, o.Total)

	// Fetch by order number.
	w = f.do(t, http.MethodGet, "/api/orders/"+o.OrderNumber, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Cart was emptied by checkout.
	w = f.do(t, http.MethodGet, "/api/cart/sess-1", nil)
	body = decode(t, w)
	var c cart.Cart
	require.NoError(t, json.Unmarshal(body["cart"], &c))
	assert.Empty(t, c.Items)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodPost, "/api/orders/create", gin.H{
		"sessionId":       "sess-1",
		"shippingAddress": shippingAddress(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelOrder_NotCancellable(t *testing.T) {
	f := newFixture()
	id := bson.NewObjectID()
	f.orders.orders[id] = &order.Order{ID: id, OrderStatus: order.StatusShipped}

	w := f.do(t, http.MethodPut, "/api/orders/"+id.Hex()+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrders_RequiresAuth(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodGet, "/api/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := f.login(t)
	w = f.do(t, http.MethodGet, "/api/orders", nil, "Authorization", token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateOrderStatus_Admin(t *testing.T) {
	f := newFixture()
	id := bson.NewObjectID()
	f.orders.orders[id] = &order.Order{ID: id, OrderStatus: order.StatusPending, PaymentStatus: order.PaymentPending}
	token := f.login(t)

	w := f.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%s/status", id.Hex()), gin.H{
		"paymentStatus": "paid",
	}, "Authorization", token)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	var o order.Order
	require.NoError(t, json.Unmarshal(body["order"], &o))
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, order.StatusPending, o.OrderStatus)
}

func TestAdminLogin_WrongPassword(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodPost, "/api/admin/login", gin.H{
		"username": "root",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminProfile(t *testing.T) {
	f := newFixture()
	token := f.login(t)

	w := f.do(t, http.MethodGet, "/api/admin/profile", nil, "Authorization", token)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	var a admin.Admin
	require.NoError(t, json.Unmarshal(body["admin"], &a))
	assert.Equal(t, "root", a.Username)
}

func TestRequireRole_EditorForbidden(t *testing.T) {
	f := newFixture()

	// Seed an editor and log in as them.
	hash, _ := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	editor := &admin.Admin{
		ID:           bson.NewObjectID(),
		Username:     "editor",
		Email:        "editor@example.com",
		PasswordHash: string(hash),
		Name:         "Editor",
		Role:         admin.RoleEditor,
		Active:       true,
	}
	f.admins.byID[editor.ID] = editor
	f.admins.byUsername[editor.Username] = editor

	w := f.do(t, http.MethodPost, "/api/admin/login", gin.H{
		"username": "editor",
		"password": adminPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	w = f.do(t, http.MethodGet, "/api/admin/all", nil, "Authorization", "Bearer "+resp.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(testProduct(100))
	id := bson.NewObjectID()
	f.orders.orders[id] = &order.Order{
		ID: id, OrderStatus: order.StatusPending, PaymentStatus: order.PaymentPending, Total: 575,
	}
	token := f.login(t)

	w := f.do(t, http.MethodGet, "/api/admin/dashboard/stats", nil, "Authorization", token)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	var d stats.Dashboard
	require.NoError(t, json.Unmarshal(body["stats"], &d))
	assert.Equal(t, int64(1), d.TotalProducts)
	assert.Equal(t, int64(1), d.TotalOrders)
	assert.Equal(t, int64(1), d.PendingOrders)
	assert.Equal(t, 575.0, d.TotalRevenue)
}

func TestCreateBlog_RequiresAuthAndValidates(t *testing.T) {
	f := newFixture()
	token := f.login(t)

	payload := gin.H{
		"title":    "Five High-Protein Desserts",
		"excerpt":  "Desserts with actual macros.",
		"content":  "A long enough body about protein desserts that comfortably crosses the one hundred character validation floor.",
		"category": "Nutrition",
	}

	w := f.do(t, http.MethodPost, "/api/blogs", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/blogs", payload, "Authorization", token)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	var b blog.Blog
	require.NoError(t, json.Unmarshal(body["blog"], &b))
	assert.NotEmpty(t, b.Slug)
	assert.Equal(t, 1, b.ReadTime)

	// Invalid category is rejected.
	payload["category"] = "Gossip"
	w = f.do(t, http.MethodPost, "/api/blogs", payload, "Authorization", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBlog_BySlugCountsView(t *testing.T) {
	f := newFixture()
	b := &blog.Blog{
		ID:    bson.NewObjectID(),
		Title: "Post",
		Slug:  "post-1",
	}
	f.blogs.byID[b.ID] = b

	w := f.do(t, http.MethodGet, "/api/blogs/post-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), f.blogs.byID[b.ID].Views)
}

func TestGetProduct_MalformedIDFallsBackToFlavour(t *testing.T) {
	f := newFixture(testProduct(100))

	w := f.do(t, http.MethodGet, "/api/products/no-such-flavour", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
