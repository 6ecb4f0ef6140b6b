// Package metrics provides the centralized Prometheus metrics registry for
// the trading bot.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	TicksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cross_book",
		Name:      "engine_ticks_total",
		Help:      "Total number of engine ticks executed",
	})
	PriceFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cross_book",
		Name:      "price_fetches_total",
		Help:      "Price fetch calls by exchange and result",
	}, []string{"exchange", "result"})
	OrderActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cross_book",
		Name:      "order_actions_total",
		Help:      "Order actions submitted by exchange and action",
	}, []string{"exchange", "action"})
	OrdersMatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cross_book",
		Name:      "orders_matched_total",
		Help:      "Orders reported fully matched by exchange",
	}, []string{"exchange"})
	OpportunitiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cross_book",
		Name:      "opportunities_total",
		Help:      "Opportunities detected by strategy kind",
	}, []string{"strategy"})
	APIErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cross_book",
		Name:      "api_errors_total",
		Help:      "Exchange API errors by exchange and kind",
	}, []string{"exchange", "kind"})
	PracticeSkipsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cross_book",
		Name:      "practice_skips_total",
		Help:      "Order executions suppressed by practice mode",
	})
)

// Gauge metrics
var (
	ActiveStrategies = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cross_book",
		Name:      "active_strategies",
		Help:      "Number of currently active strategies",
	})
	UnmatchedOrders = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cross_book",
		Name:      "unmatched_orders",
		Help:      "Orders resting unmatched by exchange",
	}, []string{"exchange"})
	AccountBalance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cross_book",
		Name:      "account_balance",
		Help:      "Available account funds by exchange",
	}, []string{"exchange"})
	AccountExposure = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cross_book",
		Name:      "account_exposure",
		Help:      "Account exposure by exchange",
	}, []string{"exchange"})
)

// Histogram metrics
var (
	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cross_book",
		Name:      "tick_duration_seconds",
		Help:      "Duration of one full engine tick in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	PriceFetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cross_book",
		Name:      "price_fetch_latency_seconds",
		Help:      "Latency of price fetch calls in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"exchange"})
	OrderActionLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cross_book",
		Name:      "order_action_latency_seconds",
		Help:      "Latency of order placement calls in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"exchange", "action"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(TicksTotal)
		registry.MustRegister(PriceFetchesTotal)
		registry.MustRegister(OrderActionsTotal)
		registry.MustRegister(OrdersMatchedTotal)
		registry.MustRegister(OpportunitiesTotal)
		registry.MustRegister(APIErrorsTotal)
		registry.MustRegister(PracticeSkipsTotal)

		registry.MustRegister(ActiveStrategies)
		registry.MustRegister(UnmatchedOrders)
		registry.MustRegister(AccountBalance)
		registry.MustRegister(AccountExposure)

		registry.MustRegister(TickDuration)
		registry.MustRegister(PriceFetchLatency)
		registry.MustRegister(OrderActionLatency)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPriceFetch records one price fetch call outcome.
func RecordPriceFetch(exchange, result string, seconds float64) {
	PriceFetchesTotal.WithLabelValues(exchange, result).Inc()
	PriceFetchLatency.WithLabelValues(exchange).Observe(seconds)
}

// RecordOrderAction records one order API call outcome.
func RecordOrderAction(exchange, action string, count int, seconds float64) {
	if count > 0 {
		OrderActionsTotal.WithLabelValues(exchange, action).Add(float64(count))
	}
	OrderActionLatency.WithLabelValues(exchange, action).Observe(seconds)
}

// RecordAPIError records an exchange API error.
func RecordAPIError(exchange, kind string) {
	APIErrorsTotal.WithLabelValues(exchange, kind).Inc()
}

// UpdateBalance updates the balance gauges for one exchange.
func UpdateBalance(exchange string, available, exposure float64) {
	AccountBalance.WithLabelValues(exchange).Set(available)
	AccountExposure.WithLabelValues(exchange).Set(exposure)
}
