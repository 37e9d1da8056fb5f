package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/wlanmon/pkg/models"
)

// NewDevice returns a healthy online Device, suitable for test fixtures.
// Override individual fields with options.
func NewDevice(opts ...func(*models.Device)) models.Device {
	d := models.Device{
		ID:          "AP-" + uuid.New().String()[:8],
		Sector:      models.SectorEducation,
		Location:    "Test Building",
		RSSI:        -50,
		Bandwidth:   400,
		Clients:     20,
		ErrorRate:   0.5,
		Temperature: 40,
		Status:      models.DeviceStatusOnline,
		LastSeen:    time.Now().UTC().Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithID sets the device id.
func WithID(id string) func(*models.Device) {
	return func(d *models.Device) { d.ID = id }
}

// WithSector sets the device sector.
func WithSector(s models.Sector) func(*models.Device) {
	return func(d *models.Device) { d.Sector = s }
}

// WithLocation sets the device location.
func WithLocation(loc string) func(*models.Device) {
	return func(d *models.Device) { d.Location = loc }
}

// WithStatus sets the device status.
func WithStatus(s models.DeviceStatus) func(*models.Device) {
	return func(d *models.Device) { d.Status = s }
}

// WithRSSI sets the signal strength in dBm.
func WithRSSI(rssi int) func(*models.Device) {
	return func(d *models.Device) { d.RSSI = rssi }
}

// WithBandwidth sets the bandwidth in Mbps.
func WithBandwidth(bw float64) func(*models.Device) {
	return func(d *models.Device) { d.Bandwidth = bw }
}

// WithErrorRate sets the error rate percentage.
func WithErrorRate(rate float64) func(*models.Device) {
	return func(d *models.Device) { d.ErrorRate = rate }
}

// WithLastSeen sets the device's lastSeen timestamp.
func WithLastSeen(t time.Time) func(*models.Device) {
	return func(d *models.Device) { d.LastSeen = t }
}

// NewAlert returns an info Alert with a fresh id.
func NewAlert(opts ...func(*models.Alert)) models.Alert {
	a := models.Alert{
		ID:        "ALR-" + uuid.New().String(),
		DeviceID:  "AP-EDU-001",
		Severity:  models.SeverityInfo,
		Message:   "Client association spike",
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// WithAlertID sets the alert id.
func WithAlertID(id string) func(*models.Alert) {
	return func(a *models.Alert) { a.ID = id }
}

// WithSeverity sets the alert severity.
func WithSeverity(s models.Severity) func(*models.Alert) {
	return func(a *models.Alert) { a.Severity = s }
}

// WithAlertDevice sets the device the alert refers to.
func WithAlertDevice(id string) func(*models.Alert) {
	return func(a *models.Alert) { a.DeviceID = id }
}
