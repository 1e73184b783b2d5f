// Package handler exposes the domain services over HTTP. Handlers convert
// requests to domain calls and map domain errors onto the status taxonomy;
// they hold no business logic of their own.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/grainly/storefront/internal/domain/admin"
	"github.com/grainly/storefront/internal/domain/blog"
	"github.com/grainly/storefront/internal/domain/cart"
	"github.com/grainly/storefront/internal/domain/catalog"
	"github.com/grainly/storefront/internal/domain/order"
	"github.com/grainly/storefront/internal/domain/stats"
)

// Handler wires the domain services to gin routes.
type Handler struct {
	products catalog.Repository
	carts    *cart.Service
	orders   *order.Service
	blogs    blog.Repository
	admins   *admin.Service
	stats    *stats.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products catalog.Repository,
	carts *cart.Service,
	orders *order.Service,
	blogs blog.Repository,
	admins *admin.Service,
	statsSvc *stats.Service,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		blogs:    blogs,
		admins:   admins,
		stats:    statsSvc,
	}
}

// Register mounts all API routes under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	products := api.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/flavours", h.listFlavours)
	products.GET("/:id", h.getProduct)
	products.POST("", h.requireAuth(), h.createProduct)
	products.PUT("/:id", h.requireAuth(), h.updateProduct)
	products.DELETE("/:id", h.requireAuth(), h.deleteProduct)

	carts := api.Group("/cart")
	carts.GET("/:sessionId", h.getCart)
	carts.POST("/:sessionId/add", h.addCartItem)
	carts.PUT("/:sessionId/update/:productId", h.updateCartItem)
	carts.DELETE("/:sessionId/remove/:productId", h.removeCartItem)
	carts.DELETE("/:sessionId/clear", h.clearCart)
	carts.POST("/:sessionId/sync", h.syncCart)

	orders := api.Group("/orders")
	orders.POST("/create", h.createOrder)
	orders.GET("/session/:sessionId", h.listSessionOrders)
	orders.GET("", h.requireAuth(), h.listOrders)
	orders.GET("/:id", h.getOrder)
	orders.PUT("/:id/status", h.requireAuth(), h.updateOrderStatus)
	orders.PUT("/:id/cancel", h.cancelOrder)

	blogs := api.Group("/blogs")
	blogs.GET("", h.listBlogs)
	blogs.GET("/featured", h.listFeaturedBlogs)
	blogs.GET("/category/:category", h.listBlogsByCategory)
	blogs.GET("/:id", h.getBlog)
	blogs.POST("", h.requireAuth(), h.createBlog)
	blogs.PUT("/:id", h.requireAuth(), h.updateBlog)
	blogs.DELETE("/:id", h.requireAuth(), h.deleteBlog)

	admins := api.Group("/admin")
	admins.POST("/login", h.adminLogin)
	admins.GET("/profile", h.requireAuth(), h.adminProfile)
	admins.GET("/dashboard/stats", h.requireAuth(), h.dashboardStats)
	admins.POST("/create", h.requireAuth(), h.requireRole(admin.RoleSuperAdmin), h.createAdmin)
	admins.GET("/all", h.requireAuth(), h.requireRole(admin.RoleSuperAdmin), h.listAdmins)
	admins.PUT("/:id", h.requireAuth(), h.requireRole(admin.RoleSuperAdmin), h.updateAdmin)
	admins.DELETE("/:id", h.requireAuth(), h.requireRole(admin.RoleSuperAdmin), h.deleteAdmin)
}

// fail maps a domain error onto the HTTP status taxonomy and writes the error
// envelope. Unrecognized errors are logged and returned as 500 with a generic
// message.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrSessionRequired),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrCartEmpty),
		errors.Is(err, order.ErrAddressRequired),
		errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, admin.ErrSelfDeletion):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, cart.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, blog.ErrNotFound),
		errors.Is(err, admin.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, admin.ErrInvalidCredentials),
		errors.Is(err, admin.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
	case errors.Is(err, admin.ErrDeactivated):
		c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
	case errors.Is(err, admin.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		var gone *order.ProductGoneError
		if errors.As(err, &gone) {
			c.JSON(http.StatusNotFound, gin.H{"message": gone.Error()})
			return
		}
		var invalid *catalog.ValidationError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"message": invalid.Error()})
			return
		}
		zctx.From(c.Request.Context()).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}

// badRequest writes a 400 with the given message, for malformed input that
// never reached the domain layer.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
