package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/lingua/internal/ipc"
)

// InvokeResponse wraps the outcome of one channel invocation. Exactly one
// of Data and Error is meaningful, selected by OK.
type InvokeResponse struct {
	OK    bool          `json:"ok"`
	Data  any           `json:"data,omitempty"`
	Error *ipc.Envelope `json:"error,omitempty"`
}

// respondInvoke writes the result of a dispatch. Failed calls use the HTTP
// status matching the envelope code so the bridge is usable with curl.
func respondInvoke(c *gin.Context, result any, envelope *ipc.Envelope) {
	if envelope != nil {
		c.JSON(statusForCode(envelope.Code), InvokeResponse{OK: false, Error: envelope})
		return
	}
	c.JSON(http.StatusOK, InvokeResponse{OK: true, Data: result})
}

func statusForCode(code ipc.Code) int {
	switch code {
	case ipc.CodeNotFound, ipc.CodeUnknownMethod:
		return http.StatusNotFound
	case ipc.CodeInvalidArgument:
		return http.StatusBadRequest
	case ipc.CodeConflict:
		return http.StatusConflict
	case ipc.CodeTimeout:
		return http.StatusGatewayTimeout
	case ipc.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
