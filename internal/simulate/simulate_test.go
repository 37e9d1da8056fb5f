package simulate

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/HerbHall/wlanmon/internal/testutil"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// scripted returns queued values, repeating the last one when exhausted.
type scripted struct {
	floats []float64
	ints   []int
}

func (s *scripted) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	if len(s.floats) > 1 {
		s.floats = s.floats[1:]
	}
	return v
}

func (s *scripted) IntN(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	if len(s.ints) > 1 {
		s.ints = s.ints[1:]
	}
	return v % n
}

var tick = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNextStatusTable(t *testing.T) {
	degraded := testutil.NewDevice(testutil.WithRSSI(-85))
	healthy := testutil.NewDevice()

	tests := []struct {
		name   string
		status models.DeviceStatus
		dev    models.Device
		roll   float64
		want   models.DeviceStatus
	}{
		{"offline recovers", models.DeviceStatusOffline, healthy, 0.49, models.DeviceStatusOnline},
		{"offline stays", models.DeviceStatusOffline, healthy, 0.5, models.DeviceStatusOffline},
		{"offline recovers regardless of metrics", models.DeviceStatusOffline, degraded, 0.1, models.DeviceStatusOnline},
		{"online breach goes offline", models.DeviceStatusOnline, degraded, 0.29, models.DeviceStatusOffline},
		{"online breach goes critical", models.DeviceStatusOnline, degraded, 0.3, models.DeviceStatusCritical},
		{"warning breach goes critical", models.DeviceStatusWarning, degraded, 0.9, models.DeviceStatusCritical},
		{"critical breach stays critical", models.DeviceStatusCritical, degraded, 0.9, models.DeviceStatusCritical},
		{"online healthy unchanged", models.DeviceStatusOnline, healthy, 0.0, models.DeviceStatusOnline},
		{"warning healthy unchanged", models.DeviceStatusWarning, healthy, 0.0, models.DeviceStatusWarning},
		{"critical healthy unchanged", models.DeviceStatusCritical, healthy, 0.0, models.DeviceStatusCritical},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.dev
			d.Status = tc.status
			got := NextStatus(d, &scripted{floats: []float64{tc.roll}})
			if got != tc.want {
				t.Errorf("NextStatus = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNextDeviceState_WeakSignalDegrades(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		d := testutil.NewDevice(testutil.WithRSSI(-85), testutil.WithStatus(models.DeviceStatusOnline))
		next := NextDeviceState(d, rng, tick)
		if next.Status != models.DeviceStatusCritical && next.Status != models.DeviceStatusOffline {
			t.Fatalf("iteration %d: status = %q, want critical or offline", i, next.Status)
		}
	}
}

func TestNextDeviceState_StaysInDomain(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	d := testutil.NewDevice()
	for i := 0; i < 5000; i++ {
		d = NextDeviceState(d, rng, tick)
		if d.RSSI < models.MinRSSI || d.RSSI > models.MaxRSSI {
			t.Fatalf("rssi %d out of range", d.RSSI)
		}
		if d.Bandwidth < models.MinBandwidth || d.Bandwidth > models.MaxBandwidth {
			t.Fatalf("bandwidth %v out of range", d.Bandwidth)
		}
		if d.Clients < models.MinClients || d.Clients > models.MaxClients {
			t.Fatalf("clients %d out of range", d.Clients)
		}
		if d.ErrorRate < models.MinErrorRate || d.ErrorRate > models.MaxErrorRate {
			t.Fatalf("errorRate %v out of range", d.ErrorRate)
		}
		if d.Temperature < models.MinTemperature || d.Temperature > models.MaxTemperature {
			t.Fatalf("temperature %v out of range", d.Temperature)
		}
	}
}

func TestNextDeviceState_DeltasAndClamping(t *testing.T) {
	d := testutil.NewDevice(
		testutil.WithRSSI(-31),
		testutil.WithBandwidth(990),
		func(d *models.Device) {
			d.Clients = 0
			d.ErrorRate = 0.1
			d.Temperature = 79.5
		},
	)
	// IntN(7) -> 6 gives +3 rssi, IntN(7) -> 0 gives -3 clients.
	// Float64 pairs are (magnitude, sign): sign < 0.5 is negative.
	rng := &scripted{
		ints:   []int{6, 0},
		floats: []float64{1, 0.9, 1, 0.1, 1, 0.9, 0.99},
	}
	next := NextDeviceState(d, rng, tick)

	if next.RSSI != models.MaxRSSI {
		t.Errorf("RSSI = %d, want clamped %d", next.RSSI, models.MaxRSSI)
	}
	if next.Bandwidth != models.MaxBandwidth {
		t.Errorf("Bandwidth = %v, want clamped %v", next.Bandwidth, models.MaxBandwidth)
	}
	if next.Clients != models.MinClients {
		t.Errorf("Clients = %d, want clamped %d", next.Clients, models.MinClients)
	}
	if next.ErrorRate != models.MinErrorRate {
		t.Errorf("ErrorRate = %v, want clamped %v", next.ErrorRate, models.MinErrorRate)
	}
	if next.Temperature != models.MaxTemperature {
		t.Errorf("Temperature = %v, want clamped %v", next.Temperature, models.MaxTemperature)
	}
	if !next.LastSeen.Equal(tick) {
		t.Errorf("LastSeen = %v, want %v", next.LastSeen, tick)
	}
	if d.RSSI != -31 {
		t.Error("input device was mutated")
	}
}

func TestNextDeviceState_CopiesHumidity(t *testing.T) {
	h := 50.0
	d := testutil.NewDevice(func(d *models.Device) { d.Humidity = &h })
	next := NextDeviceState(d, rand.New(rand.NewPCG(3, 4)), tick)
	if next.Humidity == nil || *next.Humidity != 50 {
		t.Fatalf("Humidity = %v, want 50", next.Humidity)
	}
	if next.Humidity == d.Humidity {
		t.Error("Humidity pointer shared with input")
	}
}

func TestNextDevices(t *testing.T) {
	devices := []models.Device{testutil.NewDevice(), testutil.NewDevice()}
	out := NextDevices(devices, rand.New(rand.NewPCG(5, 6)), tick)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	for i := range out {
		if out[i].ID != devices[i].ID {
			t.Errorf("out[%d].ID = %q, want %q", i, out[i].ID, devices[i].ID)
		}
	}
}

func TestNextRandomAlert(t *testing.T) {
	devices := []models.Device{
		testutil.NewDevice(testutil.WithID("AP-EDU-001")),
		testutil.NewDevice(testutil.WithID("AP-LOG-002")),
	}
	tests := []struct {
		ints    []int
		device  string
		sev     models.Severity
		message string
	}{
		{[]int{0, 0}, "AP-EDU-001", models.SeverityInfo, "Client association spike"},
		{[]int{1, 1}, "AP-LOG-002", models.SeverityWarning, "High temperature detected"},
		{[]int{1, 2}, "AP-LOG-002", models.SeverityCritical, "Device went offline"},
	}
	for _, tc := range tests {
		a, ok := NextRandomAlert(devices, &scripted{ints: tc.ints}, tick)
		if !ok {
			t.Fatal("NextRandomAlert ok = false, want true")
		}
		if a.DeviceID != tc.device || a.Severity != tc.sev || a.Message != tc.message {
			t.Errorf("alert = %+v, want %s/%s/%q", a, tc.device, tc.sev, tc.message)
		}
		if len(a.ID) <= len("ALR-") || a.ID[:4] != "ALR-" {
			t.Errorf("ID = %q, want ALR- prefix", a.ID)
		}
		if !a.Timestamp.Equal(tick) {
			t.Errorf("Timestamp = %v, want %v", a.Timestamp, tick)
		}
	}
}

func TestNextRandomAlert_UniqueIDs(t *testing.T) {
	devices := []models.Device{testutil.NewDevice()}
	rng := rand.New(rand.NewPCG(9, 9))
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		a, _ := NextRandomAlert(devices, rng, tick)
		if seen[a.ID] {
			t.Fatalf("duplicate alert id %q", a.ID)
		}
		seen[a.ID] = true
	}
}

func TestNextRandomAlert_NoDevices(t *testing.T) {
	if _, ok := NextRandomAlert(nil, &scripted{}, tick); ok {
		t.Error("NextRandomAlert(nil) ok = true, want false")
	}
}
