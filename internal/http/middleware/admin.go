package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cgtbrain/cgt-brain-backend/internal/pkg/logger"
	"github.com/cgtbrain/cgt-brain-backend/internal/platform/envutil"
)

// AdminAuth guards the admin surface with a shared credential pair.
// Requests may carry it either as HTTP basic auth or as the
// x-admin-user / x-admin-pass headers the dashboard sends.
type AdminAuth struct {
	username string
	password string
	log      *logger.Logger
}

func NewAdminAuth(log *logger.Logger) *AdminAuth {
	return &AdminAuth{
		username: envutil.String("ADMIN_USERNAME", "admin"),
		password: envutil.String("ADMIN_PASSWORD", ""),
		log:      log,
	}
}

func (m *AdminAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		// No configured password means the admin surface is closed, not open.
		if m.password == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "admin access is not configured"})
			return
		}
		user, pass := adminCredentials(c)
		if !equalConstantTime(user, m.username) || !equalConstantTime(pass, m.password) {
			m.log.Warn("admin auth rejected", "path", c.FullPath(), "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid admin credentials"})
			return
		}
		c.Next()
	}
}

func adminCredentials(c *gin.Context) (string, string) {
	if user, pass, ok := c.Request.BasicAuth(); ok {
		return user, pass
	}
	return c.GetHeader("x-admin-user"), c.GetHeader("x-admin-pass")
}

func equalConstantTime(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
