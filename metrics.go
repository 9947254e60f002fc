package walletkit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records strategy activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	detections   *prometheus.CounterVec
	connects     *prometheus.CounterVec
	submissions  *prometheus.CounterVec
	submitTime   *prometheus.HistogramVec
	walletStates *prometheus.GaugeVec
}

// NewMetrics creates the walletkit collectors and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		detections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletkit_detections_total",
				Help: "Total number of wallet detection outcomes",
			},
			[]string{"wallet", "outcome"},
		),
		connects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletkit_connects_total",
				Help: "Total number of wallet connection attempts by result",
			},
			[]string{"wallet", "result"},
		),
		submissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletkit_submissions_total",
				Help: "Total number of transaction submissions by result",
			},
			[]string{"wallet", "result"},
		),
		submitTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletkit_submission_duration_seconds",
				Help:    "Duration of transaction submissions in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30},
			},
			[]string{"wallet"},
		),
		walletStates: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "walletkit_wallet_state",
				Help: "Current wallet state (0=unsupported, 1=supported, 2=connecting, 3=connected)",
			},
			[]string{"wallet"},
		),
	}
}

// RecordDetection records a detection outcome ("detected" or "timeout").
func (m *Metrics) RecordDetection(wallet WalletType, outcome string) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(string(wallet), outcome).Inc()
}

// RecordConnect records the result of a connection attempt.
func (m *Metrics) RecordConnect(wallet WalletType, result string) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(string(wallet), result).Inc()
}

// RecordSubmission records a transaction submission and its duration.
func (m *Metrics) RecordSubmission(wallet WalletType, success bool, durationSeconds float64) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.submissions.WithLabelValues(string(wallet), result).Inc()
	m.submitTime.WithLabelValues(string(wallet)).Observe(durationSeconds)
}

// SetState records the current state of a wallet.
func (m *Metrics) SetState(wallet WalletType, state WalletState) {
	if m == nil {
		return
	}
	m.walletStates.WithLabelValues(string(wallet)).Set(float64(state))
}
