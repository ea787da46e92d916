package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

// Recovery turns a handler panic into a 500 and logs the stack.
func Recovery(logger observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.WithContext(c.Request.Context()).Error("panic recovered",
					observability.Any("panic", err),
					observability.String("method", c.Request.Method),
					observability.String("path", c.Request.URL.Path),
					observability.String("stack", string(debug.Stack())),
				)

				if span := GetSpan(c); span != nil {
					span.RecordError(fmt.Errorf("panic: %v", err))
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal System Error",
				})
			}
		}()

		c.Next()
	}
}
