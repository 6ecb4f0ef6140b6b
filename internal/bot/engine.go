package bot

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/metrics"
	"github.com/yourusername/cross-book/internal/strategy"
)

// StatusSink receives a snapshot of engine state after every tick. Satisfied
// by the monitor hub; nil-safe at the engine level.
type StatusSink interface {
	PublishStatus(TickStatus)
}

// TickStatus is the per-tick snapshot pushed to the monitor.
type TickStatus struct {
	Tick       int64     `json:"tick"`
	Strategies []string  `json:"strategies"`
	Practice   bool      `json:"practice"`
	DurationMS int64     `json:"duration_ms"`
	Time       time.Time `json:"time"`
}

// Engine drives the tick loop. Every tick runs the same pipeline on a single
// goroutine: automations, order reconciliation, price refresh, strategy
// evaluation, order execution. Only the price fetches and exchange calls
// inside the managers fan out.
type Engine struct {
	group    *strategy.Group
	pricing  *PricingManager
	orders   *OrderManager
	store    *PriceStore
	autos    []Automation
	monitor  StatusSink
	practice bool
	interval time.Duration
	logger   *logrus.Entry

	tick int64
}

// NewEngine assembles the engine. monitor may be nil.
func NewEngine(
	group *strategy.Group,
	pricing *PricingManager,
	orders *OrderManager,
	store *PriceStore,
	autos []Automation,
	monitor StatusSink,
	practice bool,
	interval time.Duration,
	logger *logrus.Entry,
) *Engine {
	if interval <= 0 {
		interval = time.Second
	}
	return &Engine{
		group:    group,
		pricing:  pricing,
		orders:   orders,
		store:    store,
		autos:    autos,
		monitor:  monitor,
		practice: practice,
		interval: interval,
		logger:   logger.WithField("component", "engine"),
	}
}

// Run bootstraps the exchanges and ticks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.orders.Bootstrap(ctx); err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"interval": e.interval,
		"practice": e.practice,
	}).Info("engine starting")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping")
			return ctx.Err()
		case <-ticker.C:
			e.Step(ctx)
		}
	}
}

// Step executes one tick of the pipeline. Exported so tests and the paper
// trading harness can drive the engine without the wall clock.
func (e *Engine) Step(ctx context.Context) {
	start := time.Now()
	e.tick++
	metrics.TicksTotal.Inc()

	for _, a := range e.autos {
		if err := a.Run(ctx, e.tick); err != nil {
			e.logger.WithError(err).WithField("automation", a.Name()).Warn("automation failed")
		}
	}

	reports, err := e.orders.UpdateOrderInformation(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("order reconciliation failed")
	}
	if len(reports) > 0 {
		e.group.UpdateOrders(reports)
	}

	if e.pricing.UpdatePrices(ctx, e.tick) {
		e.group.UpdatePricesIf(e.store)
		if _, err := e.orders.MakeOrders(ctx); err != nil {
			e.logger.WithError(err).Warn("order execution failed")
		}
	}

	elapsed := time.Since(start)
	metrics.TickDuration.Observe(elapsed.Seconds())
	metrics.ActiveStrategies.Set(float64(e.group.Len()))
	if elapsed > e.interval {
		e.logger.WithField("elapsed", elapsed).Warn("tick overran interval")
	}

	if e.monitor != nil {
		names := make([]string, 0, e.group.Len())
		for _, s := range e.group.Strategies() {
			names = append(names, s.Name())
		}
		e.monitor.PublishStatus(TickStatus{
			Tick:       e.tick,
			Strategies: names,
			Practice:   e.practice,
			DurationMS: elapsed.Milliseconds(),
			Time:       start,
		})
	}
}
