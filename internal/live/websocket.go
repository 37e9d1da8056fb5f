package live

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// wsReadLimit caps a single inbound frame.
const wsReadLimit = 1 << 20

// WebSocketTransport dials the live endpoint as a WebSocket and exchanges
// text frames.
type WebSocketTransport struct {
	HTTPClient *http.Client
	Header     http.Header
}

// Dial performs the WebSocket handshake.
func (t WebSocketTransport) Dial(ctx context.Context, endpoint string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{
		HTTPClient: t.HTTPClient,
		HTTPHeader: t.Header,
	})
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", endpoint, err)
	}
	c.SetReadLimit(wsReadLimit)
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Send(ctx context.Context, payload []byte) error {
	return w.c.Write(ctx, websocket.MessageText, payload)
}

func (w *wsConn) Receive(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "closing")
}
