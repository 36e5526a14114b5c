package factory

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/clamm-go/pool"
)

// metrics holds the factory-wide collectors. Per-pool counters are label
// vectors curried on the pool address so a registry sees one family each.
type metrics struct {
	poolsCreated prometheus.Counter

	swaps         *prometheus.CounterVec
	mints         *prometheus.CounterVec
	burns         *prometheus.CounterVec
	collects      *prometheus.CounterVec
	flashes       *prometheus.CounterVec
	reverted      *prometheus.CounterVec
	ticksCrossed  *prometheus.CounterVec
	observationSz *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		poolsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clamm",
			Name:      "pools_created_total",
			Help:      "Number of pools created by the factory.",
		}),
		swaps: newPoolCounterVec("swaps_total", "Number of committed swaps."),
		mints: newPoolCounterVec("mints_total", "Number of committed mints."),
		burns: newPoolCounterVec("burns_total", "Number of committed burns."),
		collects: newPoolCounterVec("collects_total",
			"Number of committed fee collections."),
		flashes: newPoolCounterVec("flashes_total", "Number of committed flash loans."),
		reverted: newPoolCounterVec("reverted_calls_total",
			"Number of calls rolled back by an error."),
		ticksCrossed: newPoolCounterVec("ticks_crossed_total",
			"Number of initialized ticks crossed by swaps."),
		observationSz: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clamm",
			Name:      "observation_cardinality_next",
			Help:      "Target size of the oracle observation ring.",
		}, []string{"pool"}),
	}
	reg.MustRegister(
		m.poolsCreated, m.swaps, m.mints, m.burns, m.collects,
		m.flashes, m.reverted, m.ticksCrossed, m.observationSz,
	)
	return m
}

func newPoolCounterVec(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clamm",
		Name:      name,
		Help:      help,
	}, []string{"pool"})
}

func (m *metrics) poolCreated() {
	if m != nil {
		m.poolsCreated.Inc()
	}
}

// forPool curries the vectors down to a single pool's collectors.
func (m *metrics) forPool(address common.Address) *pool.Metrics {
	if m == nil {
		return nil
	}
	label := address.Hex()
	return &pool.Metrics{
		Swaps:           m.swaps.WithLabelValues(label),
		Mints:           m.mints.WithLabelValues(label),
		Burns:           m.burns.WithLabelValues(label),
		Collects:        m.collects.WithLabelValues(label),
		Flashes:         m.flashes.WithLabelValues(label),
		RevertedCalls:   m.reverted.WithLabelValues(label),
		TicksCrossed:    m.ticksCrossed.WithLabelValues(label),
		ObservationSize: m.observationSz.WithLabelValues(label),
	}
}
