package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware renders the last error attached via c.Error as a JSON
// AppError body with the matching HTTP status, once the handler chain
// has finished. Handlers call c.Error(appErr) and return; they never
// write the status/body themselves.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		if c.Writer.Written() {
			return
		}

		ae := FromError(c.Errors.Last().Err)
		c.JSON(ae.Status(), gin.H{
			"success": false,
			"error":   ae,
		})
	}
}

// Recovery converts a panic into a 500 AppError response instead of
// crashing the process, mirroring gin.Recovery but returning Lucy's
// error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				ae := NewInternalServerError("internal server error")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   ae,
				})
			}
		}()
		c.Next()
	}
}
