package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the marketplace core.
type Metrics struct {
	CurrentSlot       prometheus.Gauge
	BidsSubmitted     *prometheus.CounterVec
	BidsRejected      *prometheus.CounterVec
	AuctionsResolved  *prometheus.CounterVec
	RefundsTotal      prometheus.Counter
	TransactionsTotal prometheus.Counter
}

// NewMetrics creates and registers the collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CurrentSlot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slotmarket",
			Name:      "current_slot",
			Help:      "Current slot number.",
		}),
		BidsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotmarket",
			Name:      "bids_submitted_total",
			Help:      "Admitted bids by auction type.",
		}, []string{"auction"}),
		BidsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotmarket",
			Name:      "bids_rejected_total",
			Help:      "Rejected bids by auction type.",
		}, []string{"auction"}),
		AuctionsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slotmarket",
			Name:      "auctions_resolved_total",
			Help:      "Resolved auctions by auction type.",
		}, []string{"auction"}),
		RefundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotmarket",
			Name:      "refunds_total",
			Help:      "Ledger refunds issued.",
		}),
		TransactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slotmarket",
			Name:      "transactions_total",
			Help:      "Transactions created.",
		}),
	}

	reg.MustRegister(
		m.CurrentSlot,
		m.BidsSubmitted,
		m.BidsRejected,
		m.AuctionsResolved,
		m.RefundsTotal,
		m.TransactionsTotal,
	)

	return m
}
