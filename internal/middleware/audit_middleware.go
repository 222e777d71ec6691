package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AdminAudit journalise chaque écriture faite depuis l'espace admin
func AdminAudit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		icon := "🛡️"
		if status >= 400 {
			icon = "❌"
		}
		log.Printf("%s Admin %s %s → %d (%s, %s)", icon, c.Request.Method, c.FullPath(), status, c.ClientIP(), time.Since(start).Round(time.Millisecond))
	}
}
