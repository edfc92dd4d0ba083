package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"metatags-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery panic 恢复。http.ErrAbortHandler 继续上抛，由 net/http 直接断开连接。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.WithContext(c.Request.Context()).WithFields(map[string]interface{}{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"stack":  string(debug.Stack()),
			}).Error(fmt.Errorf("panic recovered: %v", rec))

			if c.Writer.Written() {
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
		}()

		c.Next()
	}
}
