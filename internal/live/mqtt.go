package live

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// OutboundSuffix is the topic suffix used for messages sent by Send.
const OutboundSuffix = "outbound"

// MQTTTransport subscribes to "<TopicPrefix>/+" on the broker at the
// endpoint. The last topic segment is the message kind and the payload is
// the message body.
type MQTTTransport struct {
	TopicPrefix string
	ClientID    string
	QoS         byte
}

// Dial connects to the broker and subscribes. paho's own reconnect logic is
// disabled; the Manager owns retries.
func (t MQTTTransport) Dial(ctx context.Context, endpoint string) (Conn, error) {
	prefix := strings.TrimSuffix(t.TopicPrefix, "/")
	clientID := t.ClientID
	if clientID == "" {
		clientID = "wlanmon-" + uuid.New().String()[:8]
	}

	conn := &mqttConn{
		prefix: prefix,
		qos:    t.QoS,
		frames: make(chan []byte, 64),
		lost:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(endpoint).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			select {
			case conn.lost <- err:
			default:
			}
		})
	if deadline, ok := ctx.Deadline(); ok {
		opts.SetConnectTimeout(time.Until(deadline))
	}

	client := mqtt.NewClient(opts)
	if err := waitToken(ctx, client.Connect()); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect %s: %w", endpoint, err)
	}
	conn.client = client

	if err := waitToken(ctx, client.Subscribe(prefix+"/+", t.QoS, conn.handle)); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt subscribe %s/+: %w", prefix, err)
	}
	return conn, nil
}

type mqttConn struct {
	client mqtt.Client
	prefix string
	qos    byte
	frames chan []byte
	lost   chan error
	done   chan struct{}
	once   sync.Once
}

// handle runs on paho's goroutine. The payload buffer is copied because paho
// may reuse it.
func (c *mqttConn) handle(_ mqtt.Client, msg mqtt.Message) {
	kind := strings.TrimPrefix(msg.Topic(), c.prefix+"/")
	if kind == OutboundSuffix {
		return
	}
	body := make([]byte, len(msg.Payload()))
	copy(body, msg.Payload())

	select {
	case c.frames <- wrap(kind, body):
	case <-c.done:
	}
}

func (c *mqttConn) Send(ctx context.Context, payload []byte) error {
	return waitToken(ctx, c.client.Publish(c.prefix+"/"+OutboundSuffix, c.qos, false, payload))
}

func (c *mqttConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case err := <-c.lost:
		return nil, fmt.Errorf("mqtt connection lost: %w", err)
	case <-c.done:
		return nil, errors.New("mqtt connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *mqttConn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.client.Disconnect(250)
	})
	return nil
}

func waitToken(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
