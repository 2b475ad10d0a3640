package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ginLogger logs each request once it is done. Event streams live as long
// as their subscriber, so they are always logged at debug level when they
// end.
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// handlers may rewrite the path
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  status,
			"latency": time.Since(start).Round(time.Millisecond).String(),
			"bytes":   max(c.Writer.Size(), 0),
		})

		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			entry = entry.WithField("errors", errs.Errors())
		}

		level := logrus.DebugLevel
		switch {
		case c.Writer.Header().Get("Content-Type") == "text/event-stream":
		case status >= http.StatusInternalServerError:
			level = logrus.ErrorLevel
		case status >= http.StatusBadRequest:
			level = logrus.WarnLevel
		}
		entry.Logf(level, "%s %s %d", c.Request.Method, path, status)
	}
}
