package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/ipc"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = maxArgsBytes
)

// WSRequest invokes a channel over the websocket. ID is echoed in the response.
type WSRequest struct {
	ID      string          `json:"id"`
	Channel string          `json:"channel"`
	Args    json.RawMessage `json:"args,omitempty"`
}

type WSResponse struct {
	ID    string        `json:"id"`
	OK    bool          `json:"ok"`
	Data  any           `json:"data,omitempty"`
	Error *ipc.Envelope `json:"error,omitempty"`
}

// WSController serves the duplex bridge: invocations in, responses and
// pushed events out.
type WSController struct {
	registry *ipc.Registry
	hub      *Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSController(registry *ipc.Registry, hub *Hub, allowedOrigins []string, log *zap.Logger) *WSController {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSController{
		registry: registry,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.Named("ws"),
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients), any listed origin, or everything when "*" is listed.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

// Serve upgrades the request and dispatches calls until the socket closes.
func (w *WSController) Serve(c *gin.Context) {
	conn, err := w.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		w.log.Info("websocket upgrade failed", zap.Error(err))
		return
	}
	cl := w.hub.register(conn)

	ctx, cancel := context.WithCancel(c.Request.Context())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		w.hub.unregister(cl)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go w.keepAlive(ctx, cl)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.log.Info("websocket closed", zap.Error(err))
			}
			return
		}

		var req WSRequest
		if err := json.Unmarshal(raw, &req); err != nil || req.Channel == "" {
			envelope := ipc.NewEnvelope(req.Channel, ipc.Errorf(ipc.CodeInvalidArgument, "malformed request"), time.Now())
			if err := cl.writeJSON(WSResponse{ID: req.ID, Error: envelope}); err != nil {
				return
			}
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			result, envelope := w.registry.Dispatch(ctx, req.Channel, req.Args)
			resp := WSResponse{ID: req.ID, OK: envelope == nil, Data: result, Error: envelope}
			if err := cl.writeJSON(resp); err != nil {
				w.log.Debug("response not delivered", zap.String("channel", req.Channel), zap.Error(err))
			}
		}()
	}
}

func (w *WSController) keepAlive(ctx context.Context, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cl.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
