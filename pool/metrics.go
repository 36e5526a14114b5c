package pool

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pool operations. A nil *Metrics disables collection; every
// method is nil-safe so callers never guard.
type Metrics struct {
	Swaps           prometheus.Counter
	Mints           prometheus.Counter
	Burns           prometheus.Counter
	Collects        prometheus.Counter
	Flashes         prometheus.Counter
	RevertedCalls   prometheus.Counter
	TicksCrossed    prometheus.Counter
	ObservationSize prometheus.Gauge
}

func (m *Metrics) swap() {
	if m != nil && m.Swaps != nil {
		m.Swaps.Inc()
	}
}

func (m *Metrics) mint() {
	if m != nil && m.Mints != nil {
		m.Mints.Inc()
	}
}

func (m *Metrics) burn() {
	if m != nil && m.Burns != nil {
		m.Burns.Inc()
	}
}

func (m *Metrics) collect() {
	if m != nil && m.Collects != nil {
		m.Collects.Inc()
	}
}

func (m *Metrics) flash() {
	if m != nil && m.Flashes != nil {
		m.Flashes.Inc()
	}
}

func (m *Metrics) reverted() {
	if m != nil && m.RevertedCalls != nil {
		m.RevertedCalls.Inc()
	}
}

func (m *Metrics) crossed(n float64) {
	if m != nil && m.TicksCrossed != nil && n > 0 {
		m.TicksCrossed.Add(n)
	}
}

func (m *Metrics) observationSize(n float64) {
	if m != nil && m.ObservationSize != nil {
		m.ObservationSize.Set(n)
	}
}
