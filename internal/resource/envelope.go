package resource

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the response body of every API endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorData is the data payload of a failure that lists individual problems.
type ErrorData struct {
	Errors []string `json:"errors"`
}

// Success writes a success envelope.
func Success(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope and aborts the chain. errs, when present,
// are reported under data.errors.
func Fail(c *gin.Context, status int, message string, errs ...string) {
	env := Envelope{Success: false, Message: message}
	if len(errs) > 0 {
		env.Data = ErrorData{Errors: errs}
	}
	c.AbortWithStatusJSON(status, env)
}
