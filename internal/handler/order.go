package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grainly/storefront/internal/domain/order"
	"github.com/grainly/storefront/pkg/ginmiddleware"
)

type createOrderRequest struct {
	SessionID       string                `json:"sessionId"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   order.PaymentMethod   `json:"paymentMethod"`
	Notes           string                `json:"notes"`
	Currency        string                `json:"currency"`
}

func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid order payload")
		return
	}
	if req.PaymentMethod != "" && !order.ValidPaymentMethod(req.PaymentMethod) {
		badRequest(c, "unknown payment method")
		return
	}

	o, err := h.orders.Create(c.Request.Context(), order.CreateRequest{
		SessionID:       req.SessionID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		Currency:        req.Currency,
	})
	ginmiddleware.RecordOrderOperation("create", err == nil)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "order created", "order": o})
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": o})
}

func (h *Handler) listSessionOrders(c *gin.Context) {
	orders, err := h.orders.ListBySession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) listOrders(c *gin.Context) {
	f := order.ListFilter{
		Status: order.Status(c.Query("status")),
		Page:   parseInt64(c.Query("page"), 1),
		Limit:  parseInt64(c.Query("limit"), 50),
	}
	if f.Status != "" && !order.ValidStatus(f.Status) {
		badRequest(c, "unknown order status")
		return
	}

	orders, total, err := h.orders.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   f.Page,
		"limit":  f.Limit,
	})
}

type updateOrderStatusRequest struct {
	OrderStatus   *order.Status        `json:"orderStatus"`
	PaymentStatus *order.PaymentStatus `json:"paymentStatus"`
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid order id")
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid status payload")
		return
	}
	if req.OrderStatus == nil && req.PaymentStatus == nil {
		badRequest(c, "orderStatus or paymentStatus is required")
		return
	}
	if req.OrderStatus != nil && !order.ValidStatus(*req.OrderStatus) {
		badRequest(c, "unknown order status")
		return
	}
	if req.PaymentStatus != nil && !order.ValidPaymentStatus(*req.PaymentStatus) {
		badRequest(c, "unknown payment status")
		return
	}

	o, err := h.orders.UpdateStatus(c.Request.Context(), id, order.StatusUpdate{
		OrderStatus:   req.OrderStatus,
		PaymentStatus: req.PaymentStatus,
	})
	ginmiddleware.RecordOrderOperation("update_status", err == nil)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order status updated", "order": o})
}

func (h *Handler) cancelOrder(c *gin.Context) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid order id")
		return
	}

	o, err := h.orders.Cancel(c.Request.Context(), id)
	ginmiddleware.RecordOrderOperation("cancel", err == nil)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order cancelled", "order": o})
}
