package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nutrilens/backend/internal/services"
)

// AuditLog records write operations (POST/PUT/DELETE) to the system log.
// Multipart bodies are not captured; only route, caller and outcome are.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "DELETE" {
			c.Next()
			return
		}

		c.Next()

		userID := c.GetString(ContextUserID)
		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		services.LogInfo(module, action,
			formatAuditMessage(userID, method, c.Request.URL.Path, status),
			userID, c.ClientIP(), c.Request.UserAgent(),
			map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"audit":  true,
			})
	}
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/api/analyze-image" + "POST" → module="Analyze Image", action="Create"
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")

	parts := strings.SplitN(path, "/", 2)
	module = parts[0]
	if module == "" {
		module = "unknown"
	}
	module = strings.Title(strings.ReplaceAll(module, "-", " "))

	switch method {
	case "POST":
		action = "Create"
	case "PUT":
		action = "Update"
	case "DELETE":
		action = "Delete"
	default:
		action = method
	}

	return module, action
}

func formatAuditMessage(userID, method, path string, status int) string {
	var b strings.Builder
	b.WriteString("[Audit] ")
	if userID == "" {
		userID = "anonymous"
	}
	b.WriteString(userID)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	if status >= 200 && status < 300 {
		b.WriteString(" OK")
	} else {
		b.WriteString(" Failed")
	}
	return b.String()
}
