package models

import "time"

// Severity classifies an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity, least severe first.
var Severities = []Severity{SeverityInfo, SeverityWarning, SeverityCritical}

// Alert is an immutable event record referencing a device. DeviceID is not
// enforced; an alert may outlive the device it names.
type Alert struct {
	ID        string    `json:"id" yaml:"id"`
	DeviceID  string    `json:"deviceId" yaml:"deviceId"`
	Severity  Severity  `json:"severity" yaml:"severity"`
	Message   string    `json:"message" yaml:"message"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
