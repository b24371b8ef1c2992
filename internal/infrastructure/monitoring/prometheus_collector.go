package monitoring

import (
	"echolink/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.MetricsRecorder.
type PrometheusCollector struct {
	sessionsConnected prometheus.Gauge
	usersOnline       prometheus.Gauge
	roomsActive       prometheus.Gauge

	messagesRelayed *prometheus.CounterVec
	signalsRelayed  *prometheus.CounterVec
	signalsDropped  prometheus.Counter
	storageFailures *prometheus.CounterVec
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		sessionsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "echolink_sessions_connected",
			Help: "Number of live websocket sessions",
		}),

		usersOnline: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "echolink_users_online",
			Help: "Number of identified users currently online",
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "echolink_rooms_active",
			Help: "Number of rooms with at least one member",
		}),

		messagesRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "echolink_messages_relayed_total",
			Help: "Total chat messages relayed",
		}, []string{"kind"}),

		signalsRelayed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "echolink_signals_relayed_total",
			Help: "Total WebRTC signals relayed",
		}, []string{"type"}),

		signalsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "echolink_signals_dropped_total",
			Help: "Total signals dropped because the target was offline",
		}),

		storageFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "echolink_storage_failures_total",
			Help: "Total failed storage collaborator calls",
		}, []string{"op"}),
	}
}

func (p *PrometheusCollector) RecordSessionConnected()    { p.sessionsConnected.Inc() }
func (p *PrometheusCollector) RecordSessionDisconnected() { p.sessionsConnected.Dec() }
func (p *PrometheusCollector) RecordUserOnline()          { p.usersOnline.Inc() }
func (p *PrometheusCollector) RecordUserOffline()         { p.usersOnline.Dec() }
func (p *PrometheusCollector) RecordRoomCreated()         { p.roomsActive.Inc() }
func (p *PrometheusCollector) RecordRoomDestroyed()       { p.roomsActive.Dec() }

func (p *PrometheusCollector) RecordMessageRelayed(kind string) {
	p.messagesRelayed.WithLabelValues(kind).Inc()
}

func (p *PrometheusCollector) RecordSignalRelayed(signalType string) {
	p.signalsRelayed.WithLabelValues(signalType).Inc()
}

func (p *PrometheusCollector) RecordSignalDropped() {
	p.signalsDropped.Inc()
}

func (p *PrometheusCollector) RecordStorageFailure(op string) {
	p.storageFailures.WithLabelValues(op).Inc()
}

// NopRecorder discards all metrics. Used in tests.
type NopRecorder struct{}

var _ ports.MetricsRecorder = (*NopRecorder)(nil)

func (NopRecorder) RecordSessionConnected()          {}
func (NopRecorder) RecordSessionDisconnected()       {}
func (NopRecorder) RecordUserOnline()                {}
func (NopRecorder) RecordUserOffline()               {}
func (NopRecorder) RecordRoomCreated()               {}
func (NopRecorder) RecordRoomDestroyed()             {}
func (NopRecorder) RecordMessageRelayed(string)      {}
func (NopRecorder) RecordSignalRelayed(string)       {}
func (NopRecorder) RecordSignalDropped()             {}
func (NopRecorder) RecordStorageFailure(string)      {}
