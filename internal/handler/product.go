package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grainly/storefront/internal/domain/catalog"
)

func (h *Handler) listProducts(c *gin.Context) {
	f := catalog.ListFilter{
		Category: c.Query("category"),
		Flavour:  c.Query("flavour"),
		Search:   c.Query("search"),
		Page:     parseInt64(c.Query("page"), 1),
		Limit:    parseInt64(c.Query("limit"), 50),
	}
	if v := c.Query("active"); v != "" {
		active := v == "true"
		f.Active = &active
	}

	products, total, err := h.products.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"page":     f.Page,
		"limit":    f.Limit,
	})
}

func (h *Handler) listFlavours(c *gin.Context) {
	flavours, err := h.products.ListFlavours(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flavours": flavours})
}

// getProduct resolves the path parameter as an ObjectID hex first, then as a
// flavour slug ("vanilla-ice-cream" matches flavour "Vanilla Ice Cream").
func (h *Handler) getProduct(c *gin.Context) {
	raw := c.Param("id")

	if id, err := bson.ObjectIDFromHex(raw); err == nil {
		p, err := h.products.GetByID(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"product": p})
		return
	}

	flavour := strings.ReplaceAll(raw, "-", " ")
	p, err := h.products.GetByFlavour(c.Request.Context(), flavour)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *Handler) createProduct(c *gin.Context) {
	var p catalog.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid product payload")
		return
	}
	if err := p.Validate(); err != nil {
		fail(c, err)
		return
	}

	if err := h.products.Create(c.Request.Context(), &p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "product created", "product": p})
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}

	existing, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	// Bind over the stored document so omitted fields keep their values.
	p := *existing
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid product payload")
		return
	}
	if err := p.Validate(); err != nil {
		fail(c, err)
		return
	}
	p.CreatedAt = existing.CreatedAt

	if err := h.products.Update(c.Request.Context(), id, &p); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product updated", "product": p})
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid product id")
		return
	}

	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// parseInt64 parses s, falling back to def for empty or invalid input.
func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 1 {
		return def
	}
	return v
}
