// Package simulate produces synthetic telemetry drift and alerts so the
// dashboard stays lively without a live feed. All functions are pure given
// their random source.
package simulate

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/wlanmon/pkg/models"
)

// Rand is the subset of *rand.Rand the generator needs.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Compile-time interface guard.
var _ Rand = (*rand.Rand)(nil)

// NewRand returns a Rand seeded from the runtime.
func NewRand() Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Maximum per-tick drift for each telemetry field.
const (
	maxRSSIDelta        = 3
	minBandwidthDelta   = 5.0
	maxBandwidthDelta   = 60.0
	maxClientsDelta     = 3
	maxErrorRateDelta   = 0.6
	maxTemperatureDelta = 1.5
)

// Status transition probabilities.
const (
	recoverProbability = 0.5
	offlineProbability = 0.3
)

// Alert messages per severity.
var alertMessages = map[models.Severity]string{
	models.SeverityInfo:     "Client association spike",
	models.SeverityWarning:  "High temperature detected",
	models.SeverityCritical: "Device went offline",
}

// NextDeviceState returns d after one tick of random drift.
func NextDeviceState(d models.Device, rng Rand, now time.Time) models.Device {
	next := d
	next.RSSI = clampInt(d.RSSI+signedInt(rng, maxRSSIDelta), models.MinRSSI, models.MaxRSSI)
	next.Bandwidth = clampFloat(d.Bandwidth+signedRange(rng, minBandwidthDelta, maxBandwidthDelta), models.MinBandwidth, models.MaxBandwidth)
	next.Clients = clampInt(d.Clients+signedInt(rng, maxClientsDelta), models.MinClients, models.MaxClients)
	next.ErrorRate = clampFloat(d.ErrorRate+signedRange(rng, 0, maxErrorRateDelta), models.MinErrorRate, models.MaxErrorRate)
	next.Temperature = clampFloat(d.Temperature+signedRange(rng, 0, maxTemperatureDelta), models.MinTemperature, models.MaxTemperature)
	if d.Humidity != nil {
		h := *d.Humidity
		next.Humidity = &h
	}
	next.Status = NextStatus(next, rng)
	next.LastSeen = now
	return next
}

// NextStatus applies the status transition table to d's current status and
// (already drifted) metrics:
//
//	offline                     -> online with p=0.5, else offline
//	other, metrics degraded     -> offline with p=0.3, else critical
//	other, metrics healthy      -> unchanged
func NextStatus(d models.Device, rng Rand) models.DeviceStatus {
	if d.Status == models.DeviceStatusOffline {
		if rng.Float64() < recoverProbability {
			return models.DeviceStatusOnline
		}
		return models.DeviceStatusOffline
	}
	if d.Degraded() {
		if rng.Float64() < offlineProbability {
			return models.DeviceStatusOffline
		}
		return models.DeviceStatusCritical
	}
	return d.Status
}

// NextDevices advances every device by one tick.
func NextDevices(devices []models.Device, rng Rand, now time.Time) []models.Device {
	out := make([]models.Device, len(devices))
	for i, d := range devices {
		out[i] = NextDeviceState(d, rng, now)
	}
	return out
}

// NextRandomAlert picks a device and severity uniformly. It reports false
// when there are no devices.
func NextRandomAlert(devices []models.Device, rng Rand, now time.Time) (models.Alert, bool) {
	if len(devices) == 0 {
		return models.Alert{}, false
	}
	d := devices[rng.IntN(len(devices))]
	sev := models.Severities[rng.IntN(len(models.Severities))]
	return models.Alert{
		ID:        "ALR-" + uuid.New().String(),
		DeviceID:  d.ID,
		Severity:  sev,
		Message:   alertMessages[sev],
		Timestamp: now,
	}, true
}

// signedInt returns an integer in [-limit, limit].
func signedInt(rng Rand, limit int) int {
	return rng.IntN(2*limit+1) - limit
}

// signedRange returns a magnitude in [lo, hi] with a random sign.
func signedRange(rng Rand, lo, hi float64) float64 {
	v := lo + rng.Float64()*(hi-lo)
	if rng.Float64() < 0.5 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
