package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coreerrors "hashmelody/core/errors"
	"hashmelody/core/events"
)

// LedgerMetrics tracks state transitions and the market figures they produce.
type LedgerMetrics struct {
	transitions    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	purchaseVolume *prometheus.CounterVec
	purchases      *prometheus.CounterVec
	price          *prometheus.GaugeVec
	viewCount      *prometheus.GaugeVec
	totalCollected *prometheus.GaugeVec
	liquidityReady *prometheus.CounterVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process wide ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "hashmelody_transitions_total",
				Help: "Count of state transitions by operation and outcome category.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "hashmelody_transition_duration_seconds",
				Help:    "Latency of state transitions including commit.",
				Buckets: prometheus.DefBuckets,
			}, []string{"operation"}),
			purchaseVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "hashmelody_purchase_volume_base_units_total",
				Help: "Native base units routed by purchases, split by destination.",
			}, []string{"destination"}),
			purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "hashmelody_purchases_total",
				Help: "Completed purchases per token.",
			}, []string{"token"}),
			price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "hashmelody_token_price",
				Help: "Last observed price per whole token in base units.",
			}, []string{"token"}),
			viewCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "hashmelody_token_view_count",
				Help: "Last accepted cumulative view count per token.",
			}, []string{"token"}),
			totalCollected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "hashmelody_vault_total_collected",
				Help: "Cumulative net proceeds collected per vault.",
			}, []string{"token"}),
			liquidityReady: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "hashmelody_liquidity_ready_total",
				Help: "Liquidity readiness signals per token.",
			}, []string{"token", "crossed"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.transitions,
			ledgerRegistry.latency,
			ledgerRegistry.purchaseVolume,
			ledgerRegistry.purchases,
			ledgerRegistry.price,
			ledgerRegistry.viewCount,
			ledgerRegistry.totalCollected,
			ledgerRegistry.liquidityReady,
		)
	})
	return ledgerRegistry
}

// ObserveTransition records the outcome category of a transition.
func (m *LedgerMetrics) ObserveTransition(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.transitions.WithLabelValues(operation, coreerrors.Label(err)).Inc()
	m.latency.WithLabelValues(operation).Observe(d.Seconds())
}

// Emit implements events.Emitter so the registry can subscribe to committed
// ledger events.
func (m *LedgerMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	payload := events.Payload(evt)
	attrs := payload.Attributes
	token := attrs["token"]
	switch payload.Type {
	case events.TypeTokenPurchased:
		m.purchases.WithLabelValues(token).Inc()
		m.purchaseVolume.WithLabelValues("treasury").Add(parseFloat(attrs["platformFee"]))
		m.purchaseVolume.WithLabelValues("vault").Add(parseFloat(attrs["vaultAmount"]))
		m.price.WithLabelValues(token).Set(parseFloat(attrs["price"]))
		m.totalCollected.WithLabelValues(token).Set(parseFloat(attrs["totalCollected"]))
	case events.TypeOracleUpdated:
		m.viewCount.WithLabelValues(token).Set(parseFloat(attrs["views"]))
		if price := parseFloat(attrs["price"]); price > 0 {
			m.price.WithLabelValues(token).Set(price)
		}
	case events.TypeLiquidityReady:
		m.liquidityReady.WithLabelValues(token, attrs["crossed"]).Inc()
	}
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return float64(v)
}
