package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexusgate/aigateway/sdk/access"
)

// BodyLimit reads and buffers the request body before any handler runs,
// rejecting bodies larger than limitMB megabytes with 413.
func BodyLimit(limitMB int) gin.HandlerFunc {
	max := int64(limitMB) * 1024 * 1024
	return func(c *gin.Context) {
		if max > 0 && c.Request.Body != nil {
			body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, max))
			if err != nil {
				status, msg := http.StatusBadRequest, "failed to read request body"
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					status, msg = http.StatusRequestEntityTooLarge, "request body too large"
				}
				writeError(c, status, "invalid_request_error", msg)
				c.Abort()
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		c.Next()
	}
}

// AuthMiddleware authenticates every request against manager's providers,
// rejecting with 401 on failure and stashing the authenticated principal in
// the gin context for downstream logging.
func AuthMiddleware(manager *access.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := manager.Authenticate(c.Request.Context(), c.Request)
		if err != nil || result == nil {
			writeError(c, http.StatusUnauthorized, "authentication_error", "invalid or missing API key")
			c.Abort()
			return
		}
		c.Set("principal", result.Principal)
		c.Next()
	}
}
