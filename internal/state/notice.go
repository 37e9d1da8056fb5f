package state

import "time"

// NoticeLevel is the presentation hint for a Notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// DefaultNoticeCap bounds the notice list.
const DefaultNoticeCap = 50

// Notice is a user-visible, transient message such as a connection error or
// a new alert. Rendering is left to clients.
type Notice struct {
	Level  NoticeLevel `json:"level"`
	Title  string      `json:"title"`
	Detail string      `json:"detail,omitempty"`
	At     time.Time   `json:"at"`
}
