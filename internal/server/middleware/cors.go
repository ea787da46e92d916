package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig configures cross-origin handling.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// CORS sets the allow headers on every response and answers preflight
// requests directly with 200 and an empty JSON object.
func CORS(config CORSConfig) gin.HandlerFunc {
	allowAll := len(config.AllowOrigins) == 0
	allowed := make(map[string]bool, len(config.AllowOrigins))
	for _, origin := range config.AllowOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}
	methods := strings.Join(config.AllowMethods, ", ")
	headers := strings.Join(config.AllowHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		if headers != "" {
			c.Header("Access-Control-Allow-Headers", headers)
		}

		if c.Request.Method == http.MethodOptions {
			if methods != "" {
				c.Header("Access-Control-Allow-Methods", methods)
			}
			c.AbortWithStatusJSON(http.StatusOK, gin.H{})
			return
		}

		c.Next()
	}
}
