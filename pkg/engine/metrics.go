package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every EtherLink Prometheus collector on an isolated
// registry so they never collide with the default global registry, and so
// each test gets its own Metrics instance (grounded on the teacher's
// pkg/p2pnet/metrics.go pattern).
type Metrics struct {
	Registry *prometheus.Registry

	InterfaceCount      *prometheus.GaugeVec
	NetworkChangeTotal  prometheus.Counter
	PeersDiscoveredTotal prometheus.Counter
	DiscoverySweepsTotal prometheus.Counter
	PeersKnown           prometheus.Gauge
	DiscoveryStatus      *prometheus.GaugeVec

	TransfersStartedTotal   *prometheus.CounterVec
	TransfersCompletedTotal *prometheus.CounterVec
	TransfersFailedTotal    *prometheus.CounterVec
	TransferBytesTotal      *prometheus.CounterVec
	ActiveTransfers         prometheus.Gauge

	DaemonRequestsTotal          *prometheus.CounterVec
	DaemonRequestDurationSeconds *prometheus.HistogramVec

	BuildInfo *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with every collector registered.
func NewMetrics(version, goVersion string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		InterfaceCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "etherlink_interface_count",
				Help: "Number of local interfaces observed by the last poll, by connectivity.",
			},
			[]string{"connected"},
		),
		NetworkChangeTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "etherlink_network_change_total",
				Help: "Total number of interface-set changes detected.",
			},
		),
		PeersDiscoveredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "etherlink_peers_discovered_total",
				Help: "Total number of distinct peer-discovered events emitted.",
			},
		),
		DiscoverySweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "etherlink_discovery_sweeps_total",
				Help: "Total number of active subnet sweeps launched.",
			},
		),
		PeersKnown: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "etherlink_peers_known",
				Help: "Number of distinct peers currently in the discovery table.",
			},
		),
		DiscoveryStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "etherlink_discovery_status",
				Help: "Current discovery state machine status (1 for the active status, 0 otherwise).",
			},
			[]string{"status"},
		),

		TransfersStartedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etherlink_transfers_started_total",
				Help: "Total transfers started, by direction.",
			},
			[]string{"direction"},
		),
		TransfersCompletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etherlink_transfers_completed_total",
				Help: "Total transfers completed, by direction.",
			},
			[]string{"direction"},
		),
		TransfersFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etherlink_transfers_failed_total",
				Help: "Total transfers that ended in failed or cancelled, by direction and reason.",
			},
			[]string{"direction", "reason"},
		),
		TransferBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etherlink_transfer_bytes_total",
				Help: "Total bytes transferred, by direction.",
			},
			[]string{"direction"},
		),
		ActiveTransfers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "etherlink_active_transfers",
				Help: "Number of transfers currently connecting, sending, receiving, or paused.",
			},
		),

		DaemonRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etherlink_daemon_requests_total",
				Help: "Total daemon API requests, by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		DaemonRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etherlink_daemon_request_duration_seconds",
				Help:    "Daemon API request latency, by method, path, and status.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "etherlink_info",
				Help: "Build information for the running engine instance.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		m.InterfaceCount,
		m.NetworkChangeTotal,
		m.PeersDiscoveredTotal,
		m.DiscoverySweepsTotal,
		m.PeersKnown,
		m.DiscoveryStatus,
		m.TransfersStartedTotal,
		m.TransfersCompletedTotal,
		m.TransfersFailedTotal,
		m.TransferBytesTotal,
		m.ActiveTransfers,
		m.DaemonRequestsTotal,
		m.DaemonRequestDurationSeconds,
		m.BuildInfo,
	)

	m.BuildInfo.WithLabelValues(version, goVersion).Set(1)
	return m
}
