package realtime

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Hub fans alert payloads out to connected websocket clients. It is the
// live-update publish sink: best-effort only, slow clients are dropped so
// the alert path never blocks on the transport.
type Hub struct {
	logger     *zap.Logger
	sendBuffer int
	maxClients int

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	ch chan any
}

func NewHub(logger *zap.Logger, sendBuffer, maxClients int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	if maxClients <= 0 {
		maxClients = 256
	}
	return &Hub{
		logger:     logger,
		sendBuffer: sendBuffer,
		maxClients: maxClients,
		clients:    map[*client]struct{}{},
	}
}

// Publish implements the alert publisher sink. It never blocks: full client
// buffers lose the payload.
func (h *Hub) Publish(_ context.Context, payload any) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.ch <- payload:
		default:
		}
	}
	return nil
}

func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams published payloads until the
// client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c := &client{ch: make(chan any, h.sendBuffer)}
	if !h.register(c) {
		conn.Close(websocket.StatusTryAgainLater, "too many clients")
		return
	}
	defer h.unregister(c)

	ctx := r.Context()

	// Reader only watches for the peer closing.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case payload := <-c.ch:
			if err := wsjson.Write(ctx, conn, payload); err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= h.maxClients {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}
