// Package metrics exposes wlanmon's Prometheus collectors and keeps them in
// step with the state store through the event bus.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HerbHall/wlanmon/internal/event"
	"github.com/HerbHall/wlanmon/internal/state"
	"github.com/HerbHall/wlanmon/internal/view"
	"github.com/HerbHall/wlanmon/pkg/models"
)

const namespace = "wlanmon"

var connectionStatuses = []models.ConnectionStatus{
	models.ConnectionConnecting,
	models.ConnectionConnected,
	models.ConnectionDisconnected,
	models.ConnectionError,
}

var deviceStatuses = []models.DeviceStatus{
	models.DeviceStatusOnline,
	models.DeviceStatusWarning,
	models.DeviceStatusCritical,
	models.DeviceStatusOffline,
}

// Metrics holds every collector. Create one per process with New.
type Metrics struct {
	connectionStatus *prometheus.GaugeVec
	reconnects       prometheus.Counter
	messages         *prometheus.CounterVec
	devices          *prometheus.GaugeVec
	health           prometheus.Gauge
	alerts           *prometheus.CounterVec
	simTicks         prometheus.Counter
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connectionStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connection_status",
			Help:      "1 for the current live connection status, 0 for the others.",
		}, []string{"status"}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_reconnects_total",
			Help:      "Total number of scheduled reconnect attempts.",
		}),
		messages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_messages_total",
			Help:      "Inbound live messages by kind.",
		}, []string{"kind"}),
		devices: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Number of known devices by status.",
		}, []string{"status"}),
		health: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aggregate_health",
			Help:      "Mean device health score (0-100) across all devices.",
		}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_appended_total",
			Help:      "Alerts appended to the log by severity.",
		}, []string{"severity"}),
		simTicks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sim_ticks_total",
			Help:      "Completed simulation device ticks.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Subscribe keeps the device, health, alert and connection collectors in
// step with store events. It returns the unsubscribe func.
func (m *Metrics) Subscribe(bus event.Subscriber) func() {
	unsubs := []func(){
		bus.Subscribe(event.TopicDevicesReplaced, m.onDevices),
		bus.Subscribe(event.TopicAlertAppended, m.onAlert),
		bus.Subscribe(event.TopicConnectionChanged, m.onConnection),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (m *Metrics) onDevices(_ context.Context, e event.Event) {
	p, ok := e.Payload.(state.DevicesPayload)
	if !ok {
		return
	}
	m.ObserveDevices(p.Devices)
}

func (m *Metrics) onAlert(_ context.Context, e event.Event) {
	if a, ok := e.Payload.(models.Alert); ok {
		m.alerts.WithLabelValues(string(a.Severity)).Inc()
	}
}

func (m *Metrics) onConnection(_ context.Context, e event.Event) {
	if st, ok := e.Payload.(models.ConnectionState); ok {
		m.ObserveConnection(st)
	}
}

// ObserveDevices sets the per-status device gauges and aggregate health.
func (m *Metrics) ObserveDevices(devices []models.Device) {
	counts := make(map[models.DeviceStatus]int, len(deviceStatuses))
	for _, d := range devices {
		counts[d.Status]++
	}
	for _, s := range deviceStatuses {
		m.devices.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
	m.health.Set(float64(view.AggregateHealth(devices)))
}

// ObserveConnection flips the status gauge and counts reconnect attempts.
func (m *Metrics) ObserveConnection(st models.ConnectionState) {
	for _, s := range connectionStatuses {
		v := 0.0
		if s == st.Status {
			v = 1
		}
		m.connectionStatus.WithLabelValues(string(s)).Set(v)
	}
	if st.Status == models.ConnectionConnecting && st.ReconnectAttempt > 0 {
		m.reconnects.Inc()
	}
}

// ObserveMessage counts one inbound live message.
func (m *Metrics) ObserveMessage(kind string) {
	m.messages.WithLabelValues(kind).Inc()
}

// SimTick counts one simulation device tick.
func (m *Metrics) SimTick() {
	m.simTicks.Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
