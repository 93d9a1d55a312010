package middleware

import (
	"net/http"
	"strings"

	"storefront-backend/identity"
	"storefront-backend/utils"

	"github.com/gin-gonic/gin"
)

// LoginPath is where the storefront sends visitors that need an account.
const LoginPath = "/login"

const (
	contextUserID   = "user_id"
	contextUserRole = "user_role"
)

// bearerToken reads the token from the Authorization header. Browsers cannot set
// headers on an EventSource, so the token query parameter is accepted as well.
func bearerToken(c *gin.Context) (string, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, ""
		}
		return "", "Authorization header required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization header format"
	}
	return parts[1], ""
}

func authenticate(c *gin.Context) (*utils.Claims, string) {
	token, problem := bearerToken(c)
	if problem != "" {
		return nil, problem
	}
	claims, err := utils.ValidateToken(token)
	if err != nil {
		return nil, "Invalid or expired token"
	}
	return claims, ""
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, problem := authenticate(c)
		if problem != "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": problem})
			c.Abort()
			return
		}

		c.Set(contextUserID, claims.UID)
		c.Set(contextUserRole, claims.Role)
		c.Next()
	}
}

// RequireSignIn guards customer actions. Requests without a customer session get
// a 401 that points the storefront at the login page, and the handler never runs.
func RequireSignIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, problem := authenticate(c)
		if problem == "" && claims.Role != utils.RoleCustomer {
			problem = "Customer session required"
		}
		if problem != "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": problem, "redirect": LoginPath})
			c.Abort()
			return
		}

		c.Set(contextUserID, claims.UID)
		c.Set(contextUserRole, claims.Role)
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(contextUserRole)
		if !exists || role != utils.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session set by AuthMiddleware or RequireSignIn.
// The zero Session is returned for anonymous requests.
func CurrentSession(c *gin.Context) identity.Session {
	uid := c.GetString(contextUserID)
	return identity.Session{UID: uid}
}
