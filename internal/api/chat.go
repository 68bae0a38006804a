package api

import (
	"net/http"

	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/internal/service"
	"resort-booking-demo/backend/pkg/errors"
	"resort-booking-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// ChatController serves the guest-facing chat endpoints.
type ChatController struct {
	chat *service.ChatService
}

func NewChatController(chat *service.ChatService) *ChatController {
	return &ChatController{chat: chat}
}

// RegisterRoutes registers the guest chat endpoints behind authentication.
func (c *ChatController) RegisterRoutes(router *gin.Engine, authMW gin.HandlerFunc) {
	grp := router.Group("/api/chat")
	grp.Use(authMW)
	grp.POST("/ensure", c.Ensure)
}

type ensureRequest struct {
	DisplayName string `json:"displayName"`
}

// Ensure finds or creates the caller's conversation and returns it with the
// message history. Idempotent: repeated or concurrent calls for the same
// guest yield the same conversation.
func (c *ChatController) Ensure(ctx *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		ctx.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		return
	}

	// The body is optional; the email is a serviceable display name
	var req ensureRequest
	_ = ctx.ShouldBindJSON(&req)
	displayName := req.DisplayName
	if displayName == "" {
		displayName = claims.Email
	}

	conv, history, err := c.chat.EnsureConversation(claims.UserID, displayName)
	if err != nil {
		ctx.Error(err)
		return
	}

	if history == nil {
		history = []models.Message{}
	}
	ctx.JSON(http.StatusOK, gin.H{
		"conversationId": conv.ID,
		"history":        history,
	})
}
