package feed

import (
	"io"
	"net/http"
	"time"

	"github.com/HerbHall/wlanmon/internal/live"
	"github.com/HerbHall/wlanmon/internal/plugin"
	"github.com/HerbHall/wlanmon/internal/server"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// maxSendBytes caps the body accepted by POST /send.
const maxSendBytes = 64 << 10

func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/status", Handler: p.handleStatus},
		{Method: "POST", Path: "/send", Handler: p.handleSend},
	}
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	Transport        string    `json:"transport"`
	Status           string    `json:"status"`
	ReconnectAttempt int       `json:"reconnectAttempt"`
	LastMessage      string    `json:"lastMessage,omitempty"`
	LastMessageAt    time.Time `json:"lastMessageAt,omitzero"`
	Last             *frame    `json:"last,omitempty"`
}

// frame is the JSON form of a normalized inbound message.
type frame struct {
	Kind      live.Kind       `json:"kind"`
	Devices   []models.Device `json:"devices,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
	Alert     *models.Alert   `json:"alert,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Raw       string          `json:"raw,omitempty"`
}

func frameOf(msg live.Message) *frame {
	if msg.Kind == "" {
		return nil
	}
	f := &frame{
		Kind:      msg.Kind,
		Devices:   msg.Devices,
		Timestamp: msg.Timestamp,
		Reason:    msg.Reason,
		Raw:       string(msg.Raw),
	}
	if msg.Kind == live.KindAlert {
		f.Alert = &msg.Alert
	}
	return f
}

// handleStatus reports the live connection as the store sees it.
func (p *Plugin) handleStatus(w http.ResponseWriter, r *http.Request) {
	conn := p.store.Connection()
	resp := statusResponse{
		Transport:        p.cfg.Transport,
		Status:           string(conn.Status),
		ReconnectAttempt: conn.ReconnectAttempt,
		LastMessage:      conn.LastMessage,
		LastMessageAt:    conn.LastMessageAt,
		Last:             frameOf(p.store.LastMessage()),
	}
	server.WriteJSON(w, http.StatusOK, resp)
}

// handleSend forwards the raw request body to the live endpoint. It answers
// 503 when the connection is not open.
func (p *Plugin) handleSend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSendBytes))
	if err != nil {
		server.BadRequest(w, "request body too large or unreadable", r.URL.Path)
		return
	}
	if len(body) == 0 {
		server.BadRequest(w, "request body is empty", r.URL.Path)
		return
	}
	if !p.Send(r.Context(), body) {
		server.Unavailable(w, "live connection is not open", r.URL.Path)
		return
	}
	server.WriteJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}
