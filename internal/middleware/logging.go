package middleware

import (
	"time"

	"metatags-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AccessLog 用 logrus 记录访问日志，中断的请求同样记录
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		defer func() {
			rec := recover()
			entry := logger.WithContext(c.Request.Context()).WithFields(logrus.Fields{
				"method":  c.Request.Method,
				"path":    c.Request.URL.Path,
				"status":  c.Writer.Status(),
				"latency": time.Since(start).String(),
				"bytes":   c.Writer.Size(),
				"client":  c.ClientIP(),
			})
			if rec != nil {
				entry.WithField("outcome", panicStatus(rec)).Warn("request")
				panic(rec)
			}
			entry.Info("request")
		}()

		c.Next()
	}
}
