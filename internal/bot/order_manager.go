package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/cross-book/internal/exchange"
	"github.com/yourusername/cross-book/internal/logger"
	"github.com/yourusername/cross-book/internal/metrics"
	"github.com/yourusername/cross-book/internal/models"
	"github.com/yourusername/cross-book/internal/repository"
	"github.com/yourusername/cross-book/internal/strategy"
)

// OrderManager reconciles tracked orders against both exchanges and executes
// the pending intents collected from strategies. Reconciliation is asymmetric:
// BetDAQ exposes a changed-orders feed consumed through a sequence cursor,
// Betfair answers direct status queries.
type OrderManager struct {
	group     *strategy.Group
	services  map[models.ExchangeID]exchange.OrderService
	orderRepo repository.OrderRepository
	practice  bool
	logger    *logrus.Entry
	audit     *logger.AuditLogger

	// bdaqSeq is the changed-orders cursor, advanced on every successful
	// ListChangedOrders call. Only the tick goroutine touches it.
	bdaqSeq int64
}

// NewOrderManager creates an order manager. In practice mode MakeOrders logs
// intents without touching either exchange.
func NewOrderManager(
	group *strategy.Group,
	services map[models.ExchangeID]exchange.OrderService,
	orderRepo repository.OrderRepository,
	practice bool,
	log *logrus.Entry,
) *OrderManager {
	return &OrderManager{
		group:     group,
		services:  services,
		orderRepo: orderRepo,
		practice:  practice,
		logger:    log.WithField("component", "order_manager"),
	}
}

// SetAuditLogger enables the order action audit trail.
func (m *OrderManager) SetAuditLogger(audit *logger.AuditLogger) {
	m.audit = audit
}

// Bootstrap logs in to both exchanges and drains the BetDAQ changed-orders
// backlog so the first tick starts from a clean sequence baseline. Skipped
// entirely in practice mode.
func (m *OrderManager) Bootstrap(ctx context.Context) error {
	if m.practice {
		m.logger.Info("practice mode, skipping exchange bootstrap")
		return nil
	}

	for _, ex := range models.Exchanges() {
		svc, ok := m.services[ex]
		if !ok {
			continue
		}
		if err := svc.Login(ctx); err != nil {
			return fmt.Errorf("login %s: %w", ex, err)
		}
	}

	bdaq, ok := m.services[models.ExchangeBDAQ]
	if !ok {
		return nil
	}
	for {
		changed, seq, err := bdaq.Bootstrap(ctx)
		if err != nil {
			return fmt.Errorf("bootstrap changed orders: %w", err)
		}
		m.bdaqSeq = seq
		if len(changed) == 0 {
			break
		}
		m.logger.WithField("count", len(changed)).Debug("drained stale changed orders")
	}
	m.logger.WithField("seq", m.bdaqSeq).Info("order feed bootstrapped")
	return nil
}

// UpdateOrderInformation reconciles every strategy's unmatched orders with
// the exchanges and returns the reports to fold back into the group, keyed
// by local order id. Exchanges with no unmatched orders are not queried.
func (m *OrderManager) UpdateOrderInformation(ctx context.Context) (map[uuid.UUID]*models.Order, error) {
	if m.practice || m.group.Len() == 0 {
		return nil, nil
	}

	unmatched := m.group.UnmatchedOrders()
	reports := make(map[uuid.UUID]*models.Order)

	if orders := unmatched[models.ExchangeBDAQ]; len(orders) > 0 {
		if err := m.reconcileBDAQ(ctx, orders, reports); err != nil {
			m.logger.WithError(err).Warn("changed-orders reconciliation failed")
			m.relogin(ctx, models.ExchangeBDAQ, err)
		}
	}
	if orders := unmatched[models.ExchangeBF]; len(orders) > 0 {
		if err := m.reconcileBF(ctx, orders, reports); err != nil {
			m.logger.WithError(err).Warn("order status reconciliation failed")
			m.relogin(ctx, models.ExchangeBF, err)
		}
	}

	for ex, orders := range unmatched {
		metrics.UnmatchedOrders.WithLabelValues(ex.String()).Set(float64(len(orders)))
	}
	return reports, nil
}

// reconcileBDAQ consumes the changed-orders feed since the last cursor and
// correlates entries back to tracked orders. An unmatched tracked order with
// a reference that the full changed set no longer mentions was cancelled or
// voided server-side, so its absence is folded in as a cancellation.
func (m *OrderManager) reconcileBDAQ(ctx context.Context, tracked []*models.Order, reports map[uuid.UUID]*models.Order) error {
	svc := m.services[models.ExchangeBDAQ]
	changed, seq, err := svc.ListChangedOrders(ctx, m.bdaqSeq)
	if err != nil {
		return err
	}
	m.bdaqSeq = seq
	if len(changed) == 0 {
		return nil
	}

	matched := make(map[string]bool, len(changed))
	for _, o := range tracked {
		r := m.correlate(o, changed)
		if r == nil {
			continue
		}
		matched[r.Ref] = true
		// Report under the local id so strategies fold it into the order
		// they already track rather than treating it as a replacement.
		report := *r
		report.ID = o.ID
		reports[o.ID] = &report
	}

	for _, o := range tracked {
		if o.Ref == "" || reports[o.ID] != nil {
			continue
		}
		if _, still := changed[o.Ref]; still {
			continue
		}
		// The feed returned changes but none for this live order: the
		// exchange dropped it out from under us.
		cancelled := *o
		cancelled.Status = models.OrderCancelled
		cancelled.UnmatchedStake = 0
		reports[o.ID] = &cancelled
		m.logger.WithFields(logrus.Fields{
			"order_id": o.ID,
			"ref":      o.Ref,
		}).Warn("order absent from changed feed, inferring cancellation")
	}

	for ref := range changed {
		if !matched[ref] {
			m.logger.WithField("ref", ref).Debug("untracked order in changed feed")
		}
	}
	return nil
}

// correlate finds the changed-feed entry for a tracked order. Preference
// order: the client correlation id the order was placed with, then the
// exchange reference, then a selection and side match for orders whose
// reference has not arrived yet.
func (m *OrderManager) correlate(o *models.Order, changed map[string]*models.Order) *models.Order {
	for _, r := range changed {
		if r.ID == o.ID {
			return r
		}
	}
	if o.Ref != "" {
		if r, ok := changed[o.Ref]; ok {
			return r
		}
		return nil
	}
	for _, r := range changed {
		if r.MarketID == o.MarketID && r.SelectionID == o.SelectionID && r.Side == o.Side {
			return r
		}
	}
	return nil
}

// reconcileBF asks Betfair directly for the status of the tracked orders.
func (m *OrderManager) reconcileBF(ctx context.Context, tracked []*models.Order, reports map[uuid.UUID]*models.Order) error {
	svc := m.services[models.ExchangeBF]
	statuses, err := svc.OrderStatus(ctx, tracked)
	if err != nil {
		return err
	}
	for id, r := range statuses {
		reports[id] = r
	}
	return nil
}

// MakeOrders executes the pending intents collected from strategies updated
// this tick. In practice mode every intent is logged and counted but no
// exchange call and no persistence happens. Cancels and updates run before
// placements so freed exposure is available to new orders.
func (m *OrderManager) MakeOrders(ctx context.Context) (map[uuid.UUID]*models.Order, error) {
	place := m.group.PendingPlace()
	cancel := m.group.PendingCancel()
	update := m.group.PendingUpdate()
	if len(place) == 0 && len(cancel) == 0 && len(update) == 0 {
		return nil, nil
	}

	if m.practice {
		m.logPractice("place", place)
		m.logPractice("cancel", cancel)
		m.logPractice("update", update)
		return nil, nil
	}

	reports := make(map[uuid.UUID]*models.Order)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, ex := range models.Exchanges() {
		ex := ex
		svc, ok := m.services[ex]
		if !ok {
			continue
		}
		cancels := cancel[ex]
		updates := update[ex]
		places := place[ex]
		if len(cancels) == 0 && len(updates) == 0 && len(places) == 0 {
			continue
		}

		g.Go(func() error {
			m.execute(gctx, ex, svc, cancels, updates, places, reports, &mu)
			return nil
		})
	}
	_ = g.Wait()

	if len(reports) > 0 {
		m.group.UpdateOrders(reports)
		m.persistReports(ctx, reports)
	}
	return reports, nil
}

// execute runs one exchange's cancel, update and place calls in order.
// Failures log and count; the strategies see whatever reports did come back
// and re-evaluate on the next tick.
func (m *OrderManager) execute(
	ctx context.Context,
	ex models.ExchangeID,
	svc exchange.OrderService,
	cancels, updates, places []*models.Order,
	reports map[uuid.UUID]*models.Order,
	mu *sync.Mutex,
) {
	if len(cancels) > 0 {
		m.auditOrders("cancel", cancels)
		m.call(ctx, ex, "cancel", reports, mu, func() (map[uuid.UUID]*models.Order, error) {
			return svc.CancelOrders(ctx, cancels)
		}, len(cancels))
	}
	if len(updates) > 0 {
		m.auditOrders("update", updates)
		m.call(ctx, ex, "update", reports, mu, func() (map[uuid.UUID]*models.Order, error) {
			return svc.UpdateOrders(ctx, updates)
		}, len(updates))
	}
	if len(places) == 0 {
		return
	}
	m.auditOrders("place", places)

	if pm, ok := svc.(exchange.PerMarketPlacement); ok && pm.PerMarketPlacement() {
		for _, chunk := range splitByMarket(places) {
			m.call(ctx, ex, "place", reports, mu, func() (map[uuid.UUID]*models.Order, error) {
				return svc.PlaceOrders(ctx, chunk)
			}, len(chunk))
		}
		return
	}
	m.call(ctx, ex, "place", reports, mu, func() (map[uuid.UUID]*models.Order, error) {
		return svc.PlaceOrders(ctx, places)
	}, len(places))
}

func (m *OrderManager) call(
	ctx context.Context,
	ex models.ExchangeID,
	action string,
	reports map[uuid.UUID]*models.Order,
	mu *sync.Mutex,
	f func() (map[uuid.UUID]*models.Order, error),
	count int,
) {
	start := time.Now()
	result, err := f()
	metrics.RecordOrderAction(ex.String(), action, count, time.Since(start).Seconds())
	if err != nil {
		kind := "permanent"
		if exchange.Transient(err) {
			kind = "transient"
		}
		metrics.RecordAPIError(ex.String(), kind)
		m.logger.WithError(err).WithFields(logrus.Fields{
			"exchange": ex.String(),
			"action":   action,
			"count":    count,
		}).Error("order action failed")
		m.relogin(ctx, ex, err)
	}
	if len(result) == 0 {
		return
	}
	mu.Lock()
	for id, r := range result {
		reports[id] = r
		if r.Status == models.OrderMatched {
			metrics.OrdersMatchedTotal.WithLabelValues(ex.String()).Inc()
			if m.audit != nil {
				m.audit.LogOrderMatched(r)
			}
		}
	}
	mu.Unlock()
}

// relogin re-establishes a session when err signals it expired. The failed
// action is not replayed; the next tick retries against the fresh session.
func (m *OrderManager) relogin(ctx context.Context, ex models.ExchangeID, err error) {
	var auth *exchange.AuthenticationError
	if !errors.As(err, &auth) {
		return
	}
	svc, ok := m.services[ex]
	if !ok {
		return
	}
	if lerr := svc.Login(ctx); lerr != nil {
		m.logger.WithError(lerr).WithField("exchange", ex.String()).Error("session re-login failed")
		return
	}
	m.logger.WithField("exchange", ex.String()).Info("session re-established")
}

func (m *OrderManager) logPractice(action string, intents map[models.ExchangeID][]*models.Order) {
	for ex, orders := range intents {
		for _, o := range orders {
			metrics.PracticeSkipsTotal.Inc()
			if m.audit != nil {
				m.audit.LogOrderAction(action, "", o, true)
			}
			m.logger.WithFields(logrus.Fields{
				"exchange":  ex.String(),
				"action":    action,
				"market_id": o.MarketID,
				"selection": o.SelectionID,
				"side":      o.Side.String(),
				"price":     o.Price,
				"stake":     o.Stake,
			}).Info("practice mode, skipping order action")
		}
	}
}

func (m *OrderManager) auditOrders(action string, orders []*models.Order) {
	if m.audit == nil {
		return
	}
	for _, o := range orders {
		m.audit.LogOrderAction(action, "", o, false)
	}
}

func (m *OrderManager) persistReports(ctx context.Context, reports map[uuid.UUID]*models.Order) {
	if m.orderRepo == nil {
		return
	}
	orders := make([]*models.Order, 0, len(reports))
	for _, o := range reports {
		orders = append(orders, o)
	}
	if err := m.orderRepo.UpsertBatch(ctx, orders); err != nil {
		m.logger.WithError(err).Warn("failed to persist order reports")
	}
}

// splitByMarket partitions intents into one slice per market id, preserving
// slice order within each market.
func splitByMarket(orders []*models.Order) [][]*models.Order {
	byMarket := make(map[int64][]*models.Order)
	var marketOrder []int64
	for _, o := range orders {
		if _, seen := byMarket[o.MarketID]; !seen {
			marketOrder = append(marketOrder, o.MarketID)
		}
		byMarket[o.MarketID] = append(byMarket[o.MarketID], o)
	}
	chunks := make([][]*models.Order, 0, len(marketOrder))
	for _, id := range marketOrder {
		chunks = append(chunks, byMarket[id])
	}
	return chunks
}
