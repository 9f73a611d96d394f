package handlers

import (
	"github.com/gin-gonic/gin"
)

// response is the envelope every endpoint answers with. Exactly one of Data
// and Errors is set.
type response struct {
	Data   any      `json:"data"`
	Errors []string `json:"errors"`
}

func writeResponse(c *gin.Context, data any, statusCode int) {
	c.JSON(statusCode, response{Data: data})
}

func writeErrors(c *gin.Context, statusCode int, messages ...string) {
	c.JSON(statusCode, response{Errors: messages})
}
