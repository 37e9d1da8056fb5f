// Package view derives everything the dashboard renders from the state
// store: sector counts, the filtered device set, health scores, alert
// summaries, the sortable device table, CSV export and trend series.
package view

import (
	"math"
	"strings"

	"github.com/HerbHall/wlanmon/pkg/models"
)

// SectorTab is one entry of the sector selector.
type SectorTab struct {
	Key   models.SectorFilter `json:"key"`
	Label string              `json:"label"`
	Icon  string              `json:"icon"`
	Count int                 `json:"count"`
}

// SectorCounts counts devices per sector. The "all" entry is the total.
func SectorCounts(devices []models.Device) map[models.SectorFilter]int {
	counts := map[models.SectorFilter]int{models.SectorAll: len(devices)}
	for _, s := range models.Sectors {
		counts[models.SectorFilter(s)] = 0
	}
	for _, d := range devices {
		if d.Sector.Valid() {
			counts[models.SectorFilter(d.Sector)]++
		}
	}
	return counts
}

// SectorTabs returns "all" followed by every sector, with counts.
func SectorTabs(devices []models.Device) []SectorTab {
	counts := SectorCounts(devices)
	keys := make([]models.SectorFilter, 0, len(models.Sectors)+1)
	keys = append(keys, models.SectorAll)
	for _, s := range models.Sectors {
		keys = append(keys, models.SectorFilter(s))
	}
	tabs := make([]SectorTab, len(keys))
	for i, k := range keys {
		tabs[i] = SectorTab{Key: k, Label: k.Label(), Icon: k.Icon(), Count: counts[k]}
	}
	return tabs
}

// FilterDevices keeps devices in sector (or all) whose id, location or
// sector contains term, case-insensitively. Surrounding whitespace in term
// is ignored and an empty term matches everything.
func FilterDevices(devices []models.Device, sector models.SectorFilter, term string) []models.Device {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		if !sector.Matches(d.Sector) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(d.ID), term) &&
			!strings.Contains(strings.ToLower(d.Location), term) &&
			!strings.Contains(strings.ToLower(string(d.Sector)), term) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Health score penalties.
const (
	weakSignalPenalty    = 25
	highErrorPenalty     = 25
	lowBandwidthPenalty  = 20
	warningPenalty       = 10
	criticalOrOffPenalty = 30
)

// HealthScore rates a device from 0 to 100.
func HealthScore(d models.Device) int {
	score := 100
	if d.RSSI < -80 {
		score -= weakSignalPenalty
	}
	if d.ErrorRate > 2 {
		score -= highErrorPenalty
	}
	if d.Bandwidth < 100 {
		score -= lowBandwidthPenalty
	}
	switch d.Status {
	case models.DeviceStatusWarning:
		score -= warningPenalty
	case models.DeviceStatusCritical, models.DeviceStatusOffline:
		score -= criticalOrOffPenalty
	}
	return max(0, min(score, 100))
}

// AggregateHealth is the rounded mean health score, or 0 for no devices.
func AggregateHealth(devices []models.Device) int {
	if len(devices) == 0 {
		return 0
	}
	total := 0
	for _, d := range devices {
		total += HealthScore(d)
	}
	return int(math.Round(float64(total) / float64(len(devices))))
}

// TotalBandwidth sums bandwidth in Mbps.
func TotalBandwidth(devices []models.Device) float64 {
	total := 0.0
	for _, d := range devices {
		total += d.Bandwidth
	}
	return total
}

// AlertSummary counts alerts by severity.
type AlertSummary struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// SummarizeAlerts counts the whole alert log, regardless of any filter.
func SummarizeAlerts(alerts []models.Alert) AlertSummary {
	var s AlertSummary
	for _, a := range alerts {
		switch a.Severity {
		case models.SeverityCritical:
			s.Critical++
		case models.SeverityWarning:
			s.Warning++
		case models.SeverityInfo:
			s.Info++
		}
	}
	s.Total = s.Critical + s.Warning + s.Info
	return s
}

// Summary backs the dashboard's headline cards.
type Summary struct {
	Online    int          `json:"online"`
	Offline   int          `json:"offline"`
	Devices   int          `json:"devices"`
	Health    int          `json:"health"`
	Bandwidth float64      `json:"bandwidth"`
	Alerts    AlertSummary `json:"alerts"`
}

// Summarize computes the headline figures for the filtered devices and the
// full alert log. Every status other than offline counts as online.
func Summarize(filtered []models.Device, alerts []models.Alert) Summary {
	s := Summary{
		Devices:   len(filtered),
		Health:    AggregateHealth(filtered),
		Bandwidth: TotalBandwidth(filtered),
		Alerts:    SummarizeAlerts(alerts),
	}
	for _, d := range filtered {
		if d.Status == models.DeviceStatusOffline {
			s.Offline++
		} else {
			s.Online++
		}
	}
	return s
}
