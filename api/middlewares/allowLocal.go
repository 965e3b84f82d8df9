package middlewares

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OnlyAllowLocal restricts operator endpoints to the machine running the hub.
// Device-facing endpoints are registered outside this middleware.
func OnlyAllowLocal(c *gin.Context) {
	ip := net.ParseIP(c.ClientIP())
	if ip != nil && ip.IsLoopback() {
		c.Next()
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	c.Abort()
}
