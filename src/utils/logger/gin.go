package logger

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger for the request handled in c
func LOG(c *gin.Context) *logrus.Entry {
	return NewSublogger("rest").WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})
}

// Aborts the request with status and a JSON error body, returns the logger for reporting it
func LOGE(c *gin.Context, err error, status int) *logrus.Entry {
	body := gin.H{"status": status}
	entry := LOG(c).WithField("status", status)
	if err != nil {
		body["error"] = err.Error()
		entry = entry.WithError(err)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
	return entry
}
