package api

import (
	"fmt"
	"net/http"

	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/internal/service"
	"resort-booking-demo/backend/pkg/errors"
	"resort-booking-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// AdminChatController serves the admin console's chat endpoints.
type AdminChatController struct {
	chat *service.ChatService
}

func NewAdminChatController(chat *service.ChatService) *AdminChatController {
	return &AdminChatController{chat: chat}
}

// RegisterRoutes registers the admin chat endpoints behind authentication
// and the admin role check.
func (c *AdminChatController) RegisterRoutes(router *gin.Engine, authMW, adminMW gin.HandlerFunc) {
	grp := router.Group("/api/admin/chat")
	grp.Use(authMW, adminMW)
	grp.GET("/unread-count", c.UnreadCount)
	grp.GET("/conversations", c.ListConversations)
	grp.GET("/conversations/:id", c.GetConversation)
	grp.GET("/conversations/:id/messages", c.GetMessages)
	grp.POST("/conversations/:id/reply", c.Reply)
}

// UnreadCount returns the total number of unread guest messages.
func (c *AdminChatController) UnreadCount(ctx *gin.Context) {
	count, err := c.chat.UnreadCount(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": count})
}

// ListConversations returns conversation summaries sorted by recency.
func (c *AdminChatController) ListConversations(ctx *gin.Context) {
	summaries, err := c.chat.ListConversations()
	if err != nil {
		ctx.Error(err)
		return
	}
	if summaries == nil {
		summaries = []models.ConversationSummary{}
	}
	ctx.JSON(http.StatusOK, summaries)
}

// GetConversation returns one conversation.
func (c *AdminChatController) GetConversation(ctx *gin.Context) {
	conv, err := c.chat.GetConversation(ctx.Param("id"))
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, conv)
}

// GetMessages returns the chronological history for one conversation and
// marks it read for the admin desk.
func (c *AdminChatController) GetMessages(ctx *gin.Context) {
	id := ctx.Param("id")

	history, err := c.chat.History(id)
	if err != nil {
		ctx.Error(err)
		return
	}

	if err := c.chat.MarkRead(ctx.Request.Context(), id); err != nil {
		ctx.Error(err)
		return
	}

	if history == nil {
		history = []models.Message{}
	}
	ctx.JSON(http.StatusOK, history)
}

type replyRequest struct {
	Text string `json:"text" binding:"required"`
}

// Reply appends an admin message. The response carries the same message ID
// as the realtime echo, so the thread view can merge both without duplicates.
func (c *AdminChatController) Reply(ctx *gin.Context) {
	var req replyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(errors.NewBadRequestError("INVALID_REQUEST", "text is required"))
		return
	}

	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		ctx.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		return
	}

	msg, err := c.chat.SendAdminReply(ctx.Param("id"), fmt.Sprintf("%d", claims.UserID), req.Text)
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, msg)
}
