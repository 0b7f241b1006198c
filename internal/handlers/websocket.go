package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dice-game-server/internal/middleware"
	"dice-game-server/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler carries protocol frames as binary websocket messages,
// one frame per message.
type WebSocketHandler struct {
	dispatcher *Dispatcher
	limiter    *middleware.ConnLimiter
	logger     *zap.Logger
}

func NewWebSocketHandler(dispatcher *Dispatcher, limiter *middleware.ConnLimiter, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		dispatcher: dispatcher,
		limiter:    limiter,
		logger:     logger,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	if !h.limiter.Acquire() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server at connection capacity"})
		return
	}
	defer h.limiter.Release()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(protocol.HeaderSize + protocol.MaxFrameSize)

	h.dispatcher.Serve(&wsFrameConn{conn: conn})
}

// wsFrameConn adapts a websocket connection to the FrameConn interface.
type wsFrameConn struct {
	conn *websocket.Conn
}

func (w *wsFrameConn) ReadFrame() (uint32, []byte, error) {
	messageType, data, err := w.conn.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	if messageType != websocket.BinaryMessage {
		return 0, nil, &protocol.DecodeError{Reason: "expected binary message"}
	}
	return protocol.Decode(data)
}

func (w *wsFrameConn) WriteFrame(frame []byte) error {
	return w.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (w *wsFrameConn) Close() error {
	return w.conn.Close()
}

func (w *wsFrameConn) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
