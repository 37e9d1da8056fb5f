package state

import "github.com/HerbHall/wlanmon/pkg/models"

// DefaultAlertCap is the number of alerts retained when no cap is configured.
const DefaultAlertCap = 200

// AlertLog is a bounded FIFO of alerts. Once full, each append evicts the
// oldest entry. It is not safe for concurrent use; the Store guards it.
type AlertLog struct {
	buf   []models.Alert
	limit int
}

// NewAlertLog returns an empty log holding at most limit alerts.
func NewAlertLog(limit int) *AlertLog {
	if limit <= 0 {
		limit = DefaultAlertCap
	}
	return &AlertLog{limit: limit}
}

// Add appends a and evicts the oldest alert past the limit.
func (l *AlertLog) Add(a models.Alert) {
	if len(l.buf) < l.limit {
		l.buf = append(l.buf, a)
		return
	}
	copy(l.buf, l.buf[1:])
	l.buf[len(l.buf)-1] = a
}

// Replace swaps the content for alerts, keeping only the most recent limit.
func (l *AlertLog) Replace(alerts []models.Alert) {
	if len(alerts) > l.limit {
		alerts = alerts[len(alerts)-l.limit:]
	}
	l.buf = append(l.buf[:0:0], alerts...)
}

// List returns up to limit of the most recent alerts, oldest first. A limit
// of zero or less returns everything.
func (l *AlertLog) List(limit int) []models.Alert {
	if limit <= 0 || limit > len(l.buf) {
		limit = len(l.buf)
	}
	out := make([]models.Alert, limit)
	copy(out, l.buf[len(l.buf)-limit:])
	return out
}

// Len returns the number of alerts held.
func (l *AlertLog) Len() int {
	return len(l.buf)
}

// Cap returns the configured limit.
func (l *AlertLog) Cap() int {
	return l.limit
}
