package live

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/HerbHall/wlanmon/pkg/models"
)

// Kind classifies an inbound message.
type Kind string

const (
	KindDeviceUpdate Kind = "device_update"
	KindAlert        Kind = "alert"
	KindHeartbeat    Kind = "heartbeat"
	KindConnectError Kind = "connect_error"
	KindRaw          Kind = "raw"
)

// Message is a normalized inbound frame. Exactly the fields relevant to Kind
// are populated.
type Message struct {
	Kind      Kind
	Devices   []models.Device // device_update
	Timestamp time.Time       // device_update, optional
	Alert     models.Alert    // alert
	Reason    string          // connect_error
	Raw       []byte          // raw, the original frame
}

// ConnectError builds the locally generated message for a transport failure.
func ConnectError(reason string) Message {
	return Message{Kind: KindConnectError, Reason: reason}
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type deviceUpdatePayload struct {
	Devices   []models.Device `json:"devices"`
	Timestamp time.Time       `json:"timestamp"`
}

type connectErrorPayload struct {
	Error string `json:"error"`
}

// Normalize classifies a frame. Frames may be {"type","payload"} objects or
// ["event", payload] arrays. Anything that cannot be decoded into a known
// kind comes back as KindRaw carrying the original bytes.
func Normalize(frame []byte) Message {
	trimmed := bytes.TrimSpace(frame)
	raw := Message{Kind: KindRaw, Raw: append([]byte(nil), frame...)}

	var kind string
	var payload json.RawMessage

	switch {
	case len(trimmed) > 0 && trimmed[0] == '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil || env.Type == "" {
			return raw
		}
		kind, payload = env.Type, env.Payload
	case len(trimmed) > 0 && trimmed[0] == '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(trimmed, &parts); err != nil || len(parts) == 0 {
			return raw
		}
		if err := json.Unmarshal(parts[0], &kind); err != nil || kind == "" {
			return raw
		}
		if len(parts) > 1 {
			payload = parts[1]
		}
	default:
		return raw
	}

	msg, ok := decode(Kind(kind), payload)
	if !ok {
		return raw
	}
	return msg
}

func decode(kind Kind, payload json.RawMessage) (Message, bool) {
	switch kind {
	case KindDeviceUpdate:
		var p deviceUpdatePayload
		if err := json.Unmarshal(payload, &p); err != nil || p.Devices == nil {
			return Message{}, false
		}
		return Message{Kind: kind, Devices: p.Devices, Timestamp: p.Timestamp}, true

	case KindAlert:
		var a models.Alert
		if err := json.Unmarshal(payload, &a); err != nil || a.ID == "" {
			return Message{}, false
		}
		return Message{Kind: kind, Alert: a}, true

	case KindHeartbeat:
		return Message{Kind: kind}, true

	case KindConnectError:
		var p connectErrorPayload
		if err := json.Unmarshal(payload, &p); err == nil && p.Error != "" {
			return ConnectError(p.Error), true
		}
		var s string
		if err := json.Unmarshal(payload, &s); err == nil && s != "" {
			return ConnectError(s), true
		}
		return ConnectError("connection error"), true
	}
	return Message{}, false
}

// wrap builds an object envelope for transports that carry the kind out of
// band (MQTT topic, Kafka header). Bodies that are not JSON are returned
// as-is so they normalize to raw.
func wrap(kind string, body []byte) []byte {
	if kind == "" || !json.Valid(body) {
		return body
	}
	out, err := json.Marshal(envelope{Type: kind, Payload: body})
	if err != nil {
		return body
	}
	return out
}
