package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/repositories"
)

// UserHandler serves user listing.
type UserHandler struct {
	userRepo repositories.UserRepository
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// ListUsers handles GET /users. Password hashes never serialize.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
