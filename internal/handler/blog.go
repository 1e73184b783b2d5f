package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grainly/storefront/internal/domain/blog"
)

func (h *Handler) listBlogs(c *gin.Context) {
	f := blog.ListFilter{
		Category: c.Query("category"),
		Status:   blog.PostStatus(c.Query("status")),
		Search:   c.Query("search"),
		Page:     parseInt64(c.Query("page"), 1),
		Limit:    parseInt64(c.Query("limit"), 20),
	}
	if v := c.Query("featured"); v != "" {
		featured := v == "true"
		f.Featured = &featured
	}
	if v := c.Query("published"); v != "" {
		published := v == "true"
		f.Published = &published
	}
	if v := c.Query("tags"); v != "" {
		f.Tags = strings.Split(v, ",")
	}

	blogs, total, err := h.blogs.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"blogs": blogs,
		"total": total,
		"page":  f.Page,
		"limit": f.Limit,
	})
}

func (h *Handler) listFeaturedBlogs(c *gin.Context) {
	featured, published := true, true
	blogs, _, err := h.blogs.List(c.Request.Context(), blog.ListFilter{
		Featured:  &featured,
		Published: &published,
		Limit:     parseInt64(c.Query("limit"), 6),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blogs": blogs})
}

func (h *Handler) listBlogsByCategory(c *gin.Context) {
	published := true
	blogs, total, err := h.blogs.List(c.Request.Context(), blog.ListFilter{
		Category:  c.Param("category"),
		Published: &published,
		Page:      parseInt64(c.Query("page"), 1),
		Limit:     parseInt64(c.Query("limit"), 20),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blogs": blogs, "total": total})
}

// getBlog resolves the path parameter as an ObjectID hex first, then as a
// slug. Slug lookups count as a view.
func (h *Handler) getBlog(c *gin.Context) {
	raw := c.Param("id")

	if id, err := bson.ObjectIDFromHex(raw); err == nil {
		b, err := h.blogs.GetByID(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"blog": b})
		return
	}

	b, err := h.blogs.GetBySlug(c.Request.Context(), raw)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blog": b})
}

func (h *Handler) createBlog(c *gin.Context) {
	var b blog.Blog
	if err := c.ShouldBindJSON(&b); err != nil {
		badRequest(c, "invalid blog payload")
		return
	}
	if err := b.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	b.Normalize(time.Now().UTC())

	if err := h.blogs.Create(c.Request.Context(), &b); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "blog created", "blog": b})
}

func (h *Handler) updateBlog(c *gin.Context) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid blog id")
		return
	}

	existing, err := h.blogs.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	b := *existing
	if err := c.ShouldBindJSON(&b); err != nil {
		badRequest(c, "invalid blog payload")
		return
	}
	if err := b.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	b.CreatedAt = existing.CreatedAt
	b.Normalize(time.Now().UTC())

	updated, err := h.blogs.Update(c.Request.Context(), id, &b)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "blog updated", "blog": updated})
}

func (h *Handler) deleteBlog(c *gin.Context) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid blog id")
		return
	}

	if err := h.blogs.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "blog deleted"})
}
