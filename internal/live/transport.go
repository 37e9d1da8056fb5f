package live

import "context"

// Transport opens connections to the live endpoint.
type Transport interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// Conn is an established live connection. Receive blocks until a frame
// arrives, the connection drops, or ctx is done.
type Conn interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, endpoint string) (Conn, error)

// Dial calls f.
func (f TransportFunc) Dial(ctx context.Context, endpoint string) (Conn, error) {
	return f(ctx, endpoint)
}
