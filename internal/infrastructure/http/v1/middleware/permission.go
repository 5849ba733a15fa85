// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"konditer/internal/core/apperror"
	appctx "konditer/internal/core/context"
	"konditer/internal/core/security"
)

// Require middleware checks that the user holds capability.
func Require(capability security.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if appctx.GetUser(c.Request.Context()) == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if err := appctx.Require(c.Request.Context(), capability); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// MaintenanceKeyVerifier checks the out-of-band key guarding maintenance endpoints.
type MaintenanceKeyVerifier interface {
	Verify(plain string) bool
}

// HeaderMaintenanceKey carries the maintenance key.
const HeaderMaintenanceKey = "X-Maintenance-Key"

// RequireMaintenanceKey rejects requests whose X-Maintenance-Key does not verify.
func RequireMaintenanceKey(key MaintenanceKeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key != nil && !key.Verify(c.GetHeader(HeaderMaintenanceKey)) {
			_ = c.Error(apperror.NewForbidden("invalid maintenance key"))
			c.Abort()
			return
		}
		c.Next()
	}
}
