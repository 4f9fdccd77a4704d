// internal/interfaces/http/middleware/security.go
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
)

// SecurityHeaders adds the configured security headers to every response.
// Empty values leave the corresponding header unset.
func SecurityHeaders(cfg config.SecurityConfig) gin.HandlerFunc {
	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"X-Frame-Options":         cfg.FrameOptions,
		"Content-Security-Policy": cfg.ContentSecurityPolicy,
		"Server":                  cfg.ServerName,
	}
	if cfg.HSTSMaxAge > 0 {
		headers["Strict-Transport-Security"] = "max-age=" + strconv.Itoa(int(cfg.HSTSMaxAge.Seconds())) + "; includeSubDomains"
	}
	for k, v := range headers {
		if v == "" {
			delete(headers, k)
		}
	}

	return func(c *gin.Context) {
		for k, v := range headers {
			c.Header(k, v)
		}
		// Carts, orders and notifications are per buyer
		if cfg.NoStore {
			c.Header("Cache-Control", "no-store")
		}
		c.Next()
	}
}
