package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grainly/storefront/internal/domain/cart"
)

func (h *Handler) getCart(c *gin.Context) {
	result, err := h.carts.GetOrCreate(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": result})
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "productId is required")
		return
	}

	productID, err := bson.ObjectIDFromHex(req.ProductID)
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	result, err := h.carts.AddItem(c.Request.Context(), c.Param("sessionId"), productID, quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item added to cart", "cart": result})
}

type updateItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *Handler) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity is required")
		return
	}

	productID, err := bson.ObjectIDFromHex(c.Param("productId"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}

	result, err := h.carts.UpdateItem(c.Request.Context(), c.Param("sessionId"), productID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart updated", "cart": result})
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID, err := bson.ObjectIDFromHex(c.Param("productId"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}

	result, err := h.carts.RemoveItem(c.Request.Context(), c.Param("sessionId"), productID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item removed from cart", "cart": result})
}

func (h *Handler) clearCart(c *gin.Context) {
	result, err := h.carts.Clear(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared", "cart": result})
}

type syncItemRequest struct {
	ProductID string   `json:"productId"`
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Flavour   string   `json:"flavour"`
	Price     *float64 `json:"price"`
	Image     string   `json:"image"`
	Quantity  int      `json:"quantity"`
}

type syncCartRequest struct {
	Items []syncItemRequest `json:"items"`
}

func (h *Handler) syncCart(c *gin.Context) {
	var req syncCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid sync payload")
		return
	}

	items := make([]cart.SyncItem, 0, len(req.Items))
	for _, in := range req.Items {
		raw := in.ProductID
		if raw == "" {
			raw = in.ID
		}
		productID, err := bson.ObjectIDFromHex(raw)
		if err != nil {
			// Unresolvable references are dropped, matching the sync contract.
			continue
		}
		items = append(items, cart.SyncItem{
			ProductID: productID,
			Name:      in.Name,
			Flavour:   in.Flavour,
			Price:     in.Price,
			Image:     in.Image,
			Quantity:  in.Quantity,
		})
	}

	result, err := h.carts.Sync(c.Request.Context(), c.Param("sessionId"), items)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart synced", "cart": result})
}
