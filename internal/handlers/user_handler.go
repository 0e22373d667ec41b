package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"time-tracking-api/internal/auth"
	"time-tracking-api/internal/database"
	"time-tracking-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, Name: u.Name, CreatedAt: u.CreatedAt}
}

type UpdateDetailsRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func loadUser(c *gin.Context, userID string) (*models.User, bool) {
	var user models.User
	if err := database.GetDB().First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found", "code": "not_found"})
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	return &user, true
}

// GetCurrentUser returns the authenticated user's profile
// GET /api/users/me
func GetCurrentUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, ok := loadUser(c, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// UpdateDetails changes the user's display name
// PUT /api/users/details
func UpdateDetails(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name is required")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		badRequest(c, "name cannot be empty")
		return
	}
	user, ok := loadUser(c, userID)
	if !ok {
		return
	}

	now := time.Now().UTC()
	err := database.GetDB().Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]any{"name": name, "updated_at": now}).Error
	if err != nil {
		respondError(c, err)
		return
	}
	user.Name, user.UpdatedAt = name, now
	c.JSON(http.StatusOK, userResponse(user))
}

// UpdatePassword replaces the user's password after checking the current one
// PUT /api/users/password
func UpdatePassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "currentPassword and newPassword are required")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		badRequest(c, "Password must be at least 6 characters")
		return
	}
	user, ok := loadUser(c, userID)
	if !ok {
		return
	}
	if err := auth.CheckPassword(user.Password, req.CurrentPassword); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect", "code": "unauthorized"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	err = database.GetDB().Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]any{"password": hash, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
