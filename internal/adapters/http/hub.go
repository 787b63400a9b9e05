package http

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/melih/hytale-panel/internal/core/ports"
	"github.com/melih/hytale-panel/internal/metrics"
	"go.uber.org/zap"
)

// DefaultStatusInterval is how often connected clients receive a fresh status.
const DefaultStatusInterval = 5 * time.Second

// Conn is the part of a WebSocket connection a session needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Hub pushes container state to dashboard clients and relays their actions
// to the bridge. Connections share nothing; each one derives its own state
// from the bridge.
type Hub struct {
	bridge   ports.ContainerBridge
	interval time.Duration
	logger   *zap.Logger
}

// NewHub creates a hub over bridge. A non-positive interval uses
// DefaultStatusInterval.
func NewHub(bridge ports.ContainerBridge, interval time.Duration, logger *zap.Logger) *Hub {
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{bridge: bridge, interval: interval, logger: logger}
}

// UpgradeRequired rejects plain HTTP requests on the WebSocket route.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the WebSocket endpoint. Sessions end when the client
// disconnects or ctx is cancelled.
func (h *Hub) Handler(ctx context.Context) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		h.Serve(ctx, c)
	})
}

// Serve runs one client session until the connection drops or ctx ends.
func (h *Hub) Serve(ctx context.Context, conn Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{
		hub:    h,
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan outbound, 64),
		logger: h.logger.With(zap.String("conn", uuid.NewString())),
	}
	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()
	s.logger.Info("client connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()
	stream := s.activate()
	if stream != nil {
		defer stream.Close()
	}
	go s.statusLoop()

	// Closing the connection unblocks ReadMessage when ctx ends first.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	s.readLoop()

	cancel()
	<-writerDone
	s.logger.Info("client disconnected")
}
