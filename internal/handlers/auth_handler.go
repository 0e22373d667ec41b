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
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoginRequest represents the login and register request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is LoginRequest plus an optional display name
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

const minPasswordLength = 6

// Register creates an account and signs the user in.
// POST /api/register
func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. Username and password are required.")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		badRequest(c, "Username cannot be empty")
		return
	}
	if len(req.Password) < minPasswordLength {
		badRequest(c, "Password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = username
	}
	now := time.Now().UTC()
	user := models.User{ID: uuid.NewString(), Username: username, Name: name, Password: hash, CreatedAt: now, UpdatedAt: now}
	if err := database.GetDB().Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			badRequest(c, "Username already registered")
			return
		}
		respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, LoginResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		Message:  "Registration successful",
	})
}

// Login checks the credentials and issues a token.
// POST /api/login
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. Username and password are required.")
		return
	}

	var user models.User
	err := database.GetDB().Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if err == nil {
		err = auth.CheckPassword(user.Password, req.Password)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password", "code": "unauthorized"})
			return
		}
		respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		Message:  "Login successful",
	})
}
