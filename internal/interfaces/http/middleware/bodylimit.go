package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meterbill/backend/internal/interfaces/http/dto"
)

const ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"

// BodyLimit rejects requests whose declared length exceeds maxBytes with 413.
// Chunked bodies are cut off at maxBytes while the handler reads them.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength <= maxBytes {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			ErrCodeRequestTooLarge, "request body too large", getRequestID(c)))
	}
}
