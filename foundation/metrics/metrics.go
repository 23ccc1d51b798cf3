// Package metrics maintains the prometheus collectors for the node. Every
// method is safe to call on a nil value so packages can run without metrics.
package metrics

import (
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "utxochain"

// Metrics holds the collectors registered against a private registry.
type Metrics struct {
	registry *prometheus.Registry

	height   prometheus.Gauge
	work     prometheus.Gauge
	mempool  prometheus.Gauge
	peers    prometheus.Gauge
	blocks   *prometheus.CounterVec
	rejected *prometheus.CounterVec
	reorgs   prometheus.Counter
	mining   *prometheus.CounterVec
	messages *prometheus.CounterVec
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New constructs the collectors and registers them, together with the Go
// runtime and process collectors, against a new registry.
func New() *Metrics {
	m := Metrics{
		registry: prometheus.NewRegistry(),

		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "chain", Name: "height",
			Help: "Index of the latest block in the chain.",
		}),
		work: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "chain", Name: "cumulative_work",
			Help: "Sum of two to the power of every block difficulty.",
		}),
		mempool: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "mempool", Name: "transactions",
			Help: "Number of pending transactions.",
		}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "peer", Name: "connected",
			Help: "Number of open peer connections.",
		}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chain", Name: "blocks_appended_total",
			Help: "Blocks appended to the chain by source.",
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chain", Name: "blocks_rejected_total",
			Help: "Blocks and chains rejected by reason.",
		}, []string{"reason"}),
		reorgs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chain", Name: "reorgs_total",
			Help: "Chains replaced by a heavier chain.",
		}),
		mining: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "miner", Name: "attempts_total",
			Help: "Mining attempts by outcome.",
		}, []string{"outcome"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "peer", Name: "messages_total",
			Help: "Peer messages received by type.",
		}, []string{"type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "api", Name: "requests_total",
			Help: "API requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "api", Name: "request_duration_seconds",
			Help:    "API request duration in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"method", "path"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.height, m.work, m.mempool, m.peers,
		m.blocks, m.rejected, m.reorgs, m.mining, m.messages,
		m.requests, m.duration,
	)

	return &m
}

// Registry returns the registry the collectors are registered against.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Handler returns the http handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
}

// =============================================================================

// SetChain records the height and cumulative work of the chain.
func (m *Metrics) SetChain(height uint64, work *big.Int) {
	if m == nil {
		return
	}

	m.height.Set(float64(height))
	f, _ := new(big.Float).SetInt(work).Float64()
	m.work.Set(f)
}

// SetMempool records the number of pending transactions.
func (m *Metrics) SetMempool(n int) {
	if m == nil {
		return
	}
	m.mempool.Set(float64(n))
}

// SetPeers records the number of open peer connections.
func (m *Metrics) SetPeers(n int) {
	if m == nil {
		return
	}
	m.peers.Set(float64(n))
}

// BlockAppended counts a block appended from the source.
func (m *Metrics) BlockAppended(source string) {
	if m == nil {
		return
	}
	m.blocks.WithLabelValues(source).Inc()
}

// BlockRejected counts a rejected block or chain.
func (m *Metrics) BlockRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// Reorg counts a chain replacement.
func (m *Metrics) Reorg() {
	if m == nil {
		return
	}
	m.reorgs.Inc()
}

// MiningAttempt counts a mining attempt with its outcome.
func (m *Metrics) MiningAttempt(outcome string) {
	if m == nil {
		return
	}
	m.mining.WithLabelValues(outcome).Inc()
}

// PeerMessage counts an inbound peer message.
func (m *Metrics) PeerMessage(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

// Request records an API request.
func (m *Metrics) Request(method string, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, path).Observe(d.Seconds())
}
