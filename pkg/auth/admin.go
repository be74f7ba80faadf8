package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jarfuel/waitlist-api/internal/log"
	apperrors "github.com/jarfuel/waitlist-api/pkg/errors"
	"github.com/jarfuel/waitlist-api/pkg/utils"
)

const adminTokenEnvKey = "ADMIN_API_TOKEN"

// AdminToken returns the configured admin bearer token, or "" when admin
// surfaces should stay locked.
func AdminToken() string {
	return utils.GetEnvTrimmed(adminTokenEnvKey)
}

// VerifyAdminToken compares a presented token against the configured one in
// constant time. An unconfigured token never verifies: admin surfaces fail
// closed rather than open.
func VerifyAdminToken(presented string) bool {
	expected := AdminToken()
	if expected == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// AdminOnly guards admin endpoints with a bearer token check.
func AdminOnly(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		if !VerifyAdminToken(token) {
			correlatedLogger := logger.WithCorrelationID(c.Request.Context())
			correlatedLogger.Warn("Rejected unauthenticated admin request",
				"path", c.Request.URL.Path,
				"remote_addr", c.ClientIP(),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    apperrors.StatusUnauthorized,
				"message": "Admin authentication required",
				"data":    nil,
			})
			return
		}

		c.Next()
	}
}
