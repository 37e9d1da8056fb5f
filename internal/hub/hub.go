// Package hub pushes state-store events to WebSocket clients.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/event"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 64
)

// TopicSnapshot is the type of the first frame sent to a new client.
const TopicSnapshot = "snapshot"

// ErrClosed is returned by Serve after Close.
var ErrClosed = errors.New("hub: closed")

// Frame is the JSON envelope written to clients.
type Frame struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Options configures a Hub.
type Options struct {
	// Snapshot, if set, provides the payload of the initial frame.
	Snapshot func() any
	// OriginPatterns is passed to websocket.AcceptOptions.
	OriginPatterns []string
	Logger         *zap.Logger
}

type client struct {
	id     string
	send   chan []byte
	cancel context.CancelFunc
}

// Hub fans bus events out to every connected client. A client whose buffer
// is full is disconnected rather than slowing down the publisher.
type Hub struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
	wg      sync.WaitGroup
}

// New creates a Hub.
func New(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		opts:    opts,
		logger:  logger,
		clients: make(map[string]*client),
	}
}

// Subscribe forwards every bus event to the clients and returns the
// unsubscribe func.
func (h *Hub) Subscribe(bus event.Subscriber) func() {
	return bus.SubscribeAll(func(_ context.Context, e event.Event) {
		h.Broadcast(Frame{Type: e.Topic, Timestamp: e.Timestamp, Payload: e.Payload})
	})
}

// Broadcast queues f on every client without blocking.
func (h *Hub) Broadcast(f Frame) {
	msg, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("marshal hub frame", zap.String("type", f.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("hub client too slow, disconnecting", zap.String("client", id))
			delete(h.clients, id)
			c.cancel()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams frames until the client goes
// away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The server's read/write timeouts would otherwise cut long-lived
	// streams.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	if err := h.serve(r.Context(), conn); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Debug("hub client ended", zap.Error(err))
	}
}

func (h *Hub) serve(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &client{id: uuid.NewString(), send: make(chan []byte, sendBufferSize), cancel: cancel}
	if !h.register(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return ErrClosed
	}
	defer h.wg.Done()
	defer h.unregister(c)

	// Clients only listen. CloseRead answers control frames and reports
	// when the peer goes away.
	peer := conn.CloseRead(context.Background())

	h.logger.Debug("hub client connected", zap.String("client", c.id))

	if h.opts.Snapshot != nil {
		msg, err := json.Marshal(Frame{Type: TopicSnapshot, Timestamp: time.Now().UTC(), Payload: h.opts.Snapshot()})
		if err != nil {
			conn.Close(websocket.StatusInternalError, "snapshot failed")
			return err
		}
		if err := write(ctx, conn, msg); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			if err := write(ctx, conn, msg); err != nil {
				return err
			}
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return err
			}
		case <-peer.Done():
			return nil
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "")
			return ctx.Err()
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, msg)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.wg.Add(1)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
	h.logger.Debug("hub client disconnected", zap.String("client", c.id))
}

// Close disconnects every client and waits for their goroutines to finish
// or ctx to expire. Later connections are refused.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		c.cancel()
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
