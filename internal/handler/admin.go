package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/grainly/storefront/internal/domain/admin"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) adminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid login payload")
		return
	}

	a, token, err := h.admins.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"token":   token,
		"admin":   a,
	})
}

func (h *Handler) adminProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"admin": caller(c)})
}

func (h *Handler) dashboardStats(c *gin.Context) {
	d, err := h.stats.Dashboard(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": d})
}

type createAdminRequest struct {
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Name     string     `json:"name"`
	Role     admin.Role `json:"role"`
}

func (h *Handler) createAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid admin payload")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" || req.Name == "" {
		badRequest(c, "username, email, password and name are required")
		return
	}
	if req.Role != "" && !admin.ValidRole(req.Role) {
		badRequest(c, "unknown role")
		return
	}

	a, err := h.admins.Create(c.Request.Context(), admin.CreateRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "admin created", "admin": a})
}

func (h *Handler) listAdmins(c *gin.Context) {
	admins, err := h.admins.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

type updateAdminRequest struct {
	Email  *string     `json:"email"`
	Name   *string     `json:"name"`
	Role   *admin.Role `json:"role"`
	Active *bool       `json:"active"`
}

func (h *Handler) updateAdmin(c *gin.Context) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid admin id")
		return
	}

	var req updateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid admin payload")
		return
	}
	if req.Role != nil && !admin.ValidRole(*req.Role) {
		badRequest(c, "unknown role")
		return
	}

	a, err := h.admins.Update(c.Request.Context(), id, admin.Update{
		Email:  req.Email,
		Name:   req.Name,
		Role:   req.Role,
		Active: req.Active,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "admin updated", "admin": a})
}

func (h *Handler) deleteAdmin(c *gin.Context) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid admin id")
		return
	}

	if err := h.admins.Delete(c.Request.Context(), caller(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "admin deleted"})
}
