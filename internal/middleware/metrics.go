package middleware

import (
	"net/http"
	"strconv"
	"time"

	"metatags-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// StatusAborted 连接被 http.ErrAbortHandler 中断时的状态标签
const StatusAborted = "aborted"

// Metrics Prometheus 指标采集
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		// panic 也要记录，记录后继续上抛
		defer func() {
			rec := recover()
			status := strconv.Itoa(c.Writer.Status())
			if rec != nil {
				status = panicStatus(rec)
			}
			metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			if rec != nil {
				panic(rec)
			}
		}()

		c.Next()
	}
}

func panicStatus(rec any) string {
	if rec == http.ErrAbortHandler {
		return StatusAborted
	}
	return strconv.Itoa(http.StatusInternalServerError)
}
