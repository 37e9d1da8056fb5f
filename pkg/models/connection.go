package models

import "time"

// ConnectionStatus is the lifecycle state of the live push channel.
type ConnectionStatus string

const (
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionError        ConnectionStatus = "error"
)

// ConnectionState is the dashboard's view of the live channel.
type ConnectionState struct {
	Status           ConnectionStatus `json:"status"`
	LastMessage      string           `json:"lastMessage,omitempty"`
	LastMessageAt    time.Time        `json:"lastMessageAt,omitzero"`
	ReconnectAttempt int              `json:"reconnectAttempt"`
}
