package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"stock_pattern_dashboard/config"
	"stock_pattern_dashboard/middleware"
)

// AuthController handles admin authentication
type AuthController struct{}

// NewAuthController creates a new auth controller
func NewAuthController() *AuthController {
	return &AuthController{}
}

// LoginRequest is the login payload
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login verifies the admin password and issues a JWT token
// POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	hash := config.AppConfig.AdminPasswordHash
	if hash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "unavailable",
			"message": "Admin login is not configured",
		})
		return
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "bad_request",
			"message": "Password is required",
		})
		return
	}

	ip := c.ClientIP()

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		middleware.RecordLoginAttempt(ip, false)
		log.Printf("Failed admin login attempt from %s", ip)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Invalid password",
		})
		return
	}

	token, err := middleware.IssueAdminToken()
	if err != nil {
		log.Printf("Error issuing admin token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal",
			"message": "Failed to issue token",
		})
		return
	}

	middleware.RecordLoginAttempt(ip, true)
	log.Printf("Admin login successful from %s", ip)

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(middleware.AdminTokenTTL.Seconds()),
	})
}
