package utils

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standardized error payload
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendErrorResponse sends a standardized error response
func SendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{Error: message})
}

// SendSuccessResponse sends a standardized success response with data
func SendSuccessResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}
