package handlers

import (
	"net/http"

	"storefront-backend/logger"
	"storefront-backend/models"
	"storefront-backend/utils"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	Mailer utils.Mailer
	Inbox  string
	Log    *logger.Logger
}

// Submit accepts a contact form and answers with its reference number. The
// message is forwarded to the shop inbox in the background.
func (h *ContactHandler) Submit(c *gin.Context) {
	var msg models.ContactMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	ref, err := utils.NewReferenceNumber()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record your message"})
		return
	}
	msg.Reference = ref

	utils.SendContactNotification(h.Mailer, h.Log, h.Inbox, msg)

	c.JSON(http.StatusAccepted, gin.H{
		"reference": ref,
		"message":   "Thanks for getting in touch. We will reply soon.",
	})
}
