package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexusgate/aigateway/internal/dispatcherr"
)

func writeError(c *gin.Context, status int, kind, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorDetail{Message: message, Type: kind}})
}

// writeDispatchError renders a *dispatcherr.Error as the standard error
// body, forwarding the upstream body verbatim (with the upstream status
// code) when the failure is an upstream error whose body parses as JSON.
func writeDispatchError(c *gin.Context, err error) {
	de, ok := err.(*dispatcherr.Error)
	if !ok {
		writeError(c, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if de.Code == "upstream_error" && json.Valid([]byte(de.Message)) {
		c.Data(de.Status, "application/json", []byte(de.Message))
		return
	}
	kind := de.Code
	switch de.Code {
	case "upstream_error":
		kind = "upstream_error"
	case "network_error":
		kind = "upstream_error"
	case "bad_request", "prefix_required":
		kind = "invalid_request_error"
	case "model_not_found", "no_credentials":
		kind = "invalid_request_error"
	default:
		kind = "server_error"
	}
	writeError(c, de.Status, kind, de.Message)
}
