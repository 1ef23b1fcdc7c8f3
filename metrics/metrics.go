// Package metrics instruments halo exchange rounds with Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"strconv"
	"time"
)

const namespace = "dghalo"

// Exchange holds per-partition exchange collectors. A nil *Exchange is valid
// and records nothing.
type Exchange struct {
	Rounds    *prometheus.CounterVec
	Failures  *prometheus.CounterVec
	SentBytes *prometheus.CounterVec
	RecvBytes *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Borders   *prometheus.GaugeVec
}

// NewExchange creates the collectors and registers them on reg
func NewExchange(reg prometheus.Registerer) (*Exchange, error) {
	labels := []string{"part"}
	m := &Exchange{
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_rounds_total",
			Help:      "Completed halo exchange rounds.",
		}, labels),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_failures_total",
			Help:      "Halo exchange rounds that failed during transmit.",
		}, labels),
		SentBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_sent_bytes_total",
			Help:      "Payload bytes sent to neighbouring partitions.",
		}, labels),
		RecvBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_received_bytes_total",
			Help:      "Payload bytes received from neighbouring partitions.",
		}, labels),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_round_duration_seconds",
			Help:      "Wall time of a pack, transmit and unpack round.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, labels),
		Borders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "borders",
			Help:      "Number of neighbouring partitions with a non-empty border.",
		}, labels),
	}
	for _, c := range []prometheus.Collector{m.Rounds, m.Failures, m.SentBytes, m.RecvBytes, m.Duration, m.Borders} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SetBorders records the border count of a partition
func (m *Exchange) SetBorders(part, n int) {
	if m == nil {
		return
	}
	m.Borders.WithLabelValues(strconv.Itoa(part)).Set(float64(n))
}

// ObserveRound records a completed round; sizes are in float64 values
func (m *Exchange) ObserveRound(part, sent, recv int, d time.Duration) {
	if m == nil {
		return
	}
	p := strconv.Itoa(part)
	m.Rounds.WithLabelValues(p).Inc()
	m.SentBytes.WithLabelValues(p).Add(float64(sent * 8))
	m.RecvBytes.WithLabelValues(p).Add(float64(recv * 8))
	m.Duration.WithLabelValues(p).Observe(d.Seconds())
}

// ObserveFailure records a round that failed in transmit
func (m *Exchange) ObserveFailure(part int) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(strconv.Itoa(part)).Inc()
}
