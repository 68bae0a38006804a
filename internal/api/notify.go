package api

import (
	"net/http"

	"resort-booking-demo/backend/internal/models"
	"resort-booking-demo/backend/internal/service"
	"resort-booking-demo/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// NotifyController is the hook the booking, ordering and inquiry services
// call when something the admin desk should hear about happens.
type NotifyController struct {
	notifier *service.Notifier
}

func NewNotifyController(notifier *service.Notifier) *NotifyController {
	return &NotifyController{notifier: notifier}
}

func (c *NotifyController) RegisterRoutes(router *gin.Engine, authMW, adminMW gin.HandlerFunc) {
	group := router.Group("/api/internal/notify")
	group.Use(authMW, adminMW)
	{
		group.POST("/booking", c.Booking)
		group.POST("/order", c.Order)
		group.POST("/inquiry", c.Inquiry)
	}
}

func (c *NotifyController) Booking(ctx *gin.Context) {
	var booking models.Booking
	if err := ctx.ShouldBindJSON(&booking); err != nil {
		ctx.Error(errors.NewBadRequestError("NOTIFY_BAD_PAYLOAD", "invalid booking payload"))
		return
	}
	c.notifier.BookingUpdated(booking)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "published"})
}

func (c *NotifyController) Order(ctx *gin.Context) {
	var order models.Order
	if err := ctx.ShouldBindJSON(&order); err != nil {
		ctx.Error(errors.NewBadRequestError("NOTIFY_BAD_PAYLOAD", "invalid order payload"))
		return
	}
	c.notifier.OrderCreated(order)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "published"})
}

func (c *NotifyController) Inquiry(ctx *gin.Context) {
	var inquiry models.Inquiry
	if err := ctx.ShouldBindJSON(&inquiry); err != nil {
		ctx.Error(errors.NewBadRequestError("NOTIFY_BAD_PAYLOAD", "invalid inquiry payload"))
		return
	}
	c.notifier.InquiryCreated(inquiry)
	ctx.JSON(http.StatusAccepted, gin.H{"status": "published"})
}
