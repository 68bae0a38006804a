package api

import (
	"net/http"

	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/internal/service"
	"resort-booking-demo/backend/pkg/errors"
	"resort-booking-demo/backend/pkg/jwt"
	"resort-booking-demo/backend/pkg/logger"
	"resort-booking-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// AuthHandler issues tokens for the chat widget and the admin console.
// Account management endpoints live in the main booking application.
type AuthHandler struct {
	users      *service.UserService
	jwtService *jwt.Service
	log        *logger.Logger
}

func NewAuthHandler(users *service.UserService, jwtService *jwt.Service, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		jwtService: jwtService,
		log:        log,
	}
}

// RegisterRoutes registers the auth endpoints.
func (h *AuthHandler) RegisterRoutes(router *gin.Engine, authMW gin.HandlerFunc) {
	grp := router.Group("/api/auth")
	grp.POST("/login", h.Login)
	grp.GET("/me", authMW, h.Me)
}

// Login verifies credentials and returns a signed token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_REQUEST", "email and password are required"))
		return
	}

	user, err := h.users.Authenticate(req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Email, jwt.Role(user.Role))
	if err != nil {
		h.log.LogError(err, "token generation failed", "user_id", user.ID)
		c.Error(errors.NewInternalServerError("TOKEN_FAILED", "failed to issue token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user.ToResponse(),
	})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		return
	}

	user, err := h.users.GetByID(claims.UserID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user.ToResponse())
}
