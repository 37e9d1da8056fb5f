package live

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
)

// KindHeader is the Kafka record header that carries the message kind.
const KindHeader = "type"

// KafkaTransport consumes the live topic through a consumer group. Records
// with a "type" header are wrapped into an envelope; others must already be
// envelopes. The endpoint is a comma-separated broker list and overrides
// Brokers when set.
type KafkaTransport struct {
	Brokers       []string
	Topic         string
	GroupID       string
	OutboundTopic string
}

// Dial checks that the first broker is reachable and opens a reader and a
// writer.
func (t KafkaTransport) Dial(ctx context.Context, endpoint string) (Conn, error) {
	brokers := t.Brokers
	if endpoint != "" {
		brokers = strings.Split(endpoint, ",")
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}

	bc, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka dial %s: %w", brokers[0], err)
	}
	_ = bc.Close()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    t.Topic,
		GroupID:  t.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	out := t.OutboundTopic
	if out == "" {
		out = t.Topic + "." + OutboundSuffix
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    out,
		Balancer: &kafka.LeastBytes{},
	}
	return &kafkaConn{reader: reader, writer: writer}, nil
}

type kafkaConn struct {
	reader *kafka.Reader
	writer *kafka.Writer
}

func (c *kafkaConn) Send(ctx context.Context, payload []byte) error {
	return c.writer.WriteMessages(ctx, kafka.Message{Value: payload})
}

func (c *kafkaConn) Receive(ctx context.Context) ([]byte, error) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}
	return wrap(headerKind(m.Headers), m.Value), nil
}

func (c *kafkaConn) Close() error {
	rerr := c.reader.Close()
	werr := c.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

func headerKind(headers []kafka.Header) string {
	for _, h := range headers {
		if h.Key == KindHeader {
			return string(h.Value)
		}
	}
	return ""
}
