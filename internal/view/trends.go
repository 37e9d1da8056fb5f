package view

import (
	"sync"
	"time"

	"github.com/HerbHall/wlanmon/pkg/models"
)

// TrendPoints is the length of every trend series.
const TrendPoints = 20

// alertsForFullScale is the number of new alerts per sample that maps to 100.
const alertsForFullScale = 5

// TrendSeries are three rolling series normalized to 0..100, oldest first.
type TrendSeries struct {
	Signal    []float64   `json:"signal"`
	Bandwidth []float64   `json:"bandwidth"`
	Alerts    []float64   `json:"alerts"`
	SampledAt []time.Time `json:"sampledAt"`
}

// Trends keeps the last TrendPoints samples. It is safe for concurrent use.
type Trends struct {
	mu        sync.Mutex
	signal    []float64
	bandwidth []float64
	alerts    []float64
	at        []time.Time
	lastCount uint64
	primed    bool
}

// NewTrends returns empty series.
func NewTrends() *Trends {
	return &Trends{}
}

// Sample appends one point per series. alertsAppended is the store's
// running alert counter; the alert series records the increase since the
// previous sample.
func (t *Trends) Sample(devices []models.Device, alertsAppended uint64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	newAlerts := uint64(0)
	if t.primed && alertsAppended >= t.lastCount {
		newAlerts = alertsAppended - t.lastCount
	}
	t.lastCount = alertsAppended
	t.primed = true

	t.signal = push(t.signal, SignalQuality(devices))
	t.bandwidth = push(t.bandwidth, BandwidthUtilization(devices))
	t.alerts = push(t.alerts, clampPercent(float64(newAlerts)*100/alertsForFullScale))
	t.at = pushTime(t.at, now)
}

// Series returns copies of the current series.
func (t *Trends) Series() TrendSeries {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrendSeries{
		Signal:    append([]float64{}, t.signal...),
		Bandwidth: append([]float64{}, t.bandwidth...),
		Alerts:    append([]float64{}, t.alerts...),
		SampledAt: append([]time.Time{}, t.at...),
	}
}

// SignalQuality maps mean RSSI from [MinRSSI, MaxRSSI] onto 0..100.
func SignalQuality(devices []models.Device) float64 {
	if len(devices) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range devices {
		sum += float64(d.RSSI)
	}
	mean := sum / float64(len(devices))
	return clampPercent((mean - models.MinRSSI) * 100 / (models.MaxRSSI - models.MinRSSI))
}

// BandwidthUtilization is mean bandwidth as a percentage of MaxBandwidth.
func BandwidthUtilization(devices []models.Device) float64 {
	if len(devices) == 0 {
		return 0
	}
	mean := TotalBandwidth(devices) / float64(len(devices))
	return clampPercent(mean * 100 / models.MaxBandwidth)
}

func push(series []float64, v float64) []float64 {
	series = append(series, v)
	if len(series) > TrendPoints {
		series = series[len(series)-TrendPoints:]
	}
	return series
}

func pushTime(series []time.Time, v time.Time) []time.Time {
	series = append(series, v)
	if len(series) > TrendPoints {
		series = series[len(series)-TrendPoints:]
	}
	return series
}

func clampPercent(v float64) float64 {
	return max(0, min(v, 100))
}
