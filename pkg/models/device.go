package models

import (
	"errors"
	"fmt"
	"time"
)

// Sector is the organizational category a device belongs to.
type Sector string

const (
	SectorEducation  Sector = "education"
	SectorHealthcare Sector = "healthcare"
	SectorLogistics  Sector = "logistics"
	SectorGovernment Sector = "government"
)

// Sectors lists every sector in display order.
var Sectors = []Sector{SectorEducation, SectorHealthcare, SectorLogistics, SectorGovernment}

// Valid reports whether s is one of the known sectors.
func (s Sector) Valid() bool {
	switch s {
	case SectorEducation, SectorHealthcare, SectorLogistics, SectorGovernment:
		return true
	}
	return false
}

// ErrInvalidSector is returned when a sector name is not recognized.
var ErrInvalidSector = errors.New("invalid sector")

// SectorFilter selects a sector or every sector ("all").
type SectorFilter string

// SectorAll matches devices from every sector.
const SectorAll SectorFilter = "all"

// ParseSectorFilter validates a user-supplied sector filter. An empty
// string is treated as "all".
func ParseSectorFilter(s string) (SectorFilter, error) {
	if s == "" || s == string(SectorAll) {
		return SectorAll, nil
	}
	if !Sector(s).Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSector, s)
	}
	return SectorFilter(s), nil
}

// Matches reports whether a device in sector s passes the filter.
func (f SectorFilter) Matches(s Sector) bool {
	return f == SectorAll || Sector(f) == s
}

// DeviceStatus represents the current state of an access point.
type DeviceStatus string

const (
	DeviceStatusOnline   DeviceStatus = "online"
	DeviceStatusWarning  DeviceStatus = "warning"
	DeviceStatusCritical DeviceStatus = "critical"
	DeviceStatusOffline  DeviceStatus = "offline"
)

// Telemetry domains. Simulated values are clamped to these bounds.
const (
	MinRSSI        = -90
	MaxRSSI        = -30
	MinBandwidth   = 0.0
	MaxBandwidth   = 1000.0
	MinClients     = 0
	MaxClients     = 200
	MinErrorRate   = 0.0
	MaxErrorRate   = 20.0
	MinTemperature = 15.0
	MaxTemperature = 80.0
)

// Device represents a wireless access point tracked by the dashboard.
type Device struct {
	ID          string       `json:"id" yaml:"id"`
	Sector      Sector       `json:"sector" yaml:"sector"`
	Location    string       `json:"location" yaml:"location"`
	RSSI        int          `json:"rssi" yaml:"rssi"`
	Bandwidth   float64      `json:"bandwidth" yaml:"bandwidth"`
	Clients     int          `json:"clients" yaml:"clients"`
	ErrorRate   float64      `json:"errorRate" yaml:"errorRate"`
	Temperature float64      `json:"temperature" yaml:"temperature"`
	Humidity    *float64     `json:"humidity,omitempty" yaml:"humidity,omitempty"`
	Status      DeviceStatus `json:"status" yaml:"status"`
	LastSeen    time.Time    `json:"lastSeen" yaml:"lastSeen"`
}

// Degraded reports whether any telemetry value crosses a fault threshold:
// weak signal, high error rate or starved bandwidth.
func (d Device) Degraded() bool {
	return d.RSSI < -80 || d.ErrorRate > 5 || d.Bandwidth < 20
}

// CloneDevices returns a copy of devices that shares no mutable state with
// the input.
func CloneDevices(devices []Device) []Device {
	if devices == nil {
		return nil
	}
	out := make([]Device, len(devices))
	copy(out, devices)
	for i := range out {
		if out[i].Humidity != nil {
			h := *out[i].Humidity
			out[i].Humidity = &h
		}
	}
	return out
}
