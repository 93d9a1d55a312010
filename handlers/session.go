package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"storefront-backend/identity"
	"storefront-backend/middleware"
	"storefront-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// DeviceCookie identifies the browser across visits.
	DeviceCookie       = "sf_device"
	deviceCookieMaxAge = 365 * 24 * 60 * 60
	maxDeviceIDLength  = 64
)

type SessionHandler struct {
	Provisioner   *identity.Provisioner
	SecureCookies bool
}

// deviceID returns the browser's device id, issuing a new cookie when the
// request has none or carries something unusable.
func (h *SessionHandler) deviceID(c *gin.Context) string {
	if id, err := c.Cookie(DeviceCookie); err == nil {
		id = strings.TrimSpace(id)
		if id != "" && len(id) <= maxDeviceIDLength {
			return id
		}
	}
	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(DeviceCookie, id, deviceCookieMaxAge, "/", "", h.SecureCookies, true)
	return id
}

// EnsureSession ties the calling browser to its account, creating an anonymous
// account on the first visit, and returns a bearer token for that account.
func (h *SessionHandler) EnsureSession(c *gin.Context) {
	var req struct {
		IDToken string `json:"id_token"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
			return
		}
	}

	session, err := h.Provisioner.EnsureUser(c.Request.Context(), identity.Request{
		DeviceID: h.deviceID(c),
		IDToken:  req.IDToken,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to set up your session. Please try again."})
		return
	}

	token, err := utils.GenerateToken(session.UID, utils.RoleCustomer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uid":     session.UID,
		"token":   token,
		"created": session.Created,
	})
}

func (h *SessionHandler) Me(c *gin.Context) {
	session := middleware.CurrentSession(c)

	profile, err := h.Provisioner.Profile(c.Request.Context(), session.UID)
	if errors.Is(err, identity.ErrProfileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}
