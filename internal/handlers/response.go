package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse sends a standardized error response. Internal error
// details are logged, not exposed.
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	requestID := getRequestID(c)

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"status":     statusCode,
		}).WithError(err).Error(message)
	}

	c.JSON(statusCode, gin.H{
		"success":    false,
		"message":    message,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// NotFoundResponse sends a 404 carrying the selection failure messages
func NotFoundResponse(c *gin.Context, messages []string) {
	c.JSON(404, gin.H{
		"success":        false,
		"message":        "not found",
		"error_messages": messages,
		"request_id":     getRequestID(c),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// SuccessResponse sends a standardized success response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := gin.H{
		"success":    true,
		"message":    message,
		"request_id": getRequestID(c),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	if data != nil {
		response["data"] = data
	}
	c.JSON(statusCode, response)
}

func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		return requestID.(string)
	}
	return c.GetHeader("X-Request-ID")
}
