package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"konditer/internal/core/apperror"
	"konditer/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		renderError(c, err)
	}
}

// renderError writes the JSON body for err.
func renderError(c *gin.Context, err error) {
	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		} else if appErr.HTTPStatus >= http.StatusConflict {
			logger.Info(c.Request.Context(), "request rejected",
				"code", appErr.Code,
				"details", appErr.Details,
			)
		}

		c.JSON(appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
		return
	}

	logger.Error(c.Request.Context(), "unhandled error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    apperror.CodeInternal,
		"message": "Internal server error",
		"details": map[string]any{
			"request_id": c.GetString("request_id"),
		},
	})
}
