package middleware

import (
	"net/http"

	"atelier_back_end/internal/audit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuditTrail enregistre les actions admin mutantes une fois la réponse écrite.
// Sans audit.Tag dans le handler, l'action vaut "<METHOD> <route>".
func AuditTrail(rec audit.Recorder, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		entry, ok := audit.Tagged(c)
		if !ok {
			status := c.Writer.Status()
			entry = audit.FromGin(c, c.Request.Method+" "+c.FullPath(), "", c.Param("id"), status >= 200 && status < 400)
		}
		audit.RecordAsync(rec, entry, log)
	}
}
