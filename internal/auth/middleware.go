package auth

import (
	"crypto/subtle"
	"log"
	"net/http"

	"remindmail/internal/utils"

	"github.com/gin-gonic/gin"
)

// CronAuthMiddleware guards the sweep and admin endpoints with a shared secret.
// An empty secret leaves the routes open.
func CronAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		token := utils.BearerToken(c)
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			log.Printf("Rejected %s %s from %s: missing or invalid cron secret",
				c.Request.Method, c.Request.URL.Path, utils.GetRealClientIP(c))
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
