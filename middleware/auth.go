package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ellysus/Momentary/manager"
)

const (
	// UserIDKey and DisplayNameKey hold the authenticated identity in the
	// gin context once the session middleware has run.
	UserIDKey      = "userID"
	DisplayNameKey = "displayName"
)

type Middleware struct {
	logger         *zap.SugaredLogger
	sessionManager manager.SessionManager
	adminUsername  string
}

func NewMiddleware(logger *zap.SugaredLogger, sessionManager manager.SessionManager, adminUsername string) *Middleware {
	return &Middleware{
		logger:         logger,
		sessionManager: sessionManager,
		adminUsername:  adminUsername,
	}
}

// RequireSession verifies the session cookie and populates the identity
// keys, aborting with 401 otherwise.
func (m *Middleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(manager.SessionCookieName)
		if err != nil || token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := m.sessionManager.Verify(token)
		if err != nil {
			m.logger.Debugf("Error in sessionManager.Verify: %v", err)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(DisplayNameKey, claims.DisplayName)
		c.Next()
	}
}

// RequireAdmin must run after RequireSession.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		displayName := c.GetString(DisplayNameKey)
		if m.adminUsername == "" || displayName != m.adminUsername {
			m.logger.Infow("Rejected admin request", "user", displayName)
			c.String(http.StatusForbidden, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
