package handlers

import (
	"net/http"

	"github.com/ArowuTest/crashrace-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles operator login
type AuthHandler struct {
	auth services.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AdminLogin handles POST /auth/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}
	token, expiresAt, err := h.auth.AdminLogin(c.Request.Context(), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expiresAt})
}
