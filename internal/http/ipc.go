package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/lingua/internal/ipc"
)

// maxArgsBytes bounds the JSON arguments of a single invocation.
const maxArgsBytes = 8 << 20

// IPCController exposes the registry over HTTP.
type IPCController struct {
	registry *ipc.Registry
}

func NewIPCController(registry *ipc.Registry) *IPCController {
	return &IPCController{registry: registry}
}

// Invoke dispatches POST /ipc/invoke/:channel with the request body as arguments.
func (h *IPCController) Invoke(c *gin.Context) {
	channel := c.Param("channel")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxArgsBytes)
	args, err := c.GetRawData()
	if err != nil {
		envelope := ipc.NewEnvelope(channel, ipc.Errorf(ipc.CodeInvalidArgument, "cannot read arguments: %v", err), time.Now())
		respondInvoke(c, nil, envelope)
		return
	}

	result, envelope := h.registry.Dispatch(c.Request.Context(), channel, args)
	respondInvoke(c, result, envelope)
}

// Channels lists the registered channels.
func (h *IPCController) Channels(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Channels())
}
