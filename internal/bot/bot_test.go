package bot

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/models"
	"github.com/yourusername/cross-book/internal/strategy"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// stubStrategy is a scriptable strategy.Strategy for exercising the managers
// without real state machine logic.
type stubStrategy struct {
	name     string
	interval int
	updated  bool
	finished bool
	ttl      int

	markets   map[models.ExchangeID][]int64
	unmatched map[models.ExchangeID][]*models.Order

	place  map[models.ExchangeID][]*models.Order
	cancel map[models.ExchangeID][]*models.Order
	update map[models.ExchangeID][]*models.Order

	priceUpdates int
	reports      []map[uuid.UUID]*models.Order
}

func newStubStrategy(name string, interval int) *stubStrategy {
	return &stubStrategy{
		name:      name,
		interval:  interval,
		markets:   make(map[models.ExchangeID][]int64),
		unmatched: make(map[models.ExchangeID][]*models.Order),
		place:     make(map[models.ExchangeID][]*models.Order),
		cancel:    make(map[models.ExchangeID][]*models.Order),
		update:    make(map[models.ExchangeID][]*models.Order),
	}
}

func (s *stubStrategy) Name() string                             { return s.name }
func (s *stubStrategy) MarketIDs() map[models.ExchangeID][]int64 { return s.markets }
func (s *stubStrategy) UpdateInterval() int                      { return s.interval }
func (s *stubStrategy) WasUpdated() bool                         { return s.updated }
func (s *stubStrategy) SetUpdated(updated bool)                  { s.updated = updated }
func (s *stubStrategy) UpdatePrices(strategy.PriceBook)          { s.priceUpdates++ }
func (s *stubStrategy) SetTicksToLive(ticks int)                 { s.ttl = ticks }
func (s *stubStrategy) Finished() bool                           { return s.finished }

func (s *stubStrategy) UpdateOrders(reports map[uuid.UUID]*models.Order) {
	s.reports = append(s.reports, reports)
	for _, orders := range s.unmatched {
		for _, o := range orders {
			if r, ok := reports[o.ID]; ok {
				_ = o.ApplyReport(r)
			}
		}
	}
}

func (s *stubStrategy) UnmatchedOrders() map[models.ExchangeID][]*models.Order {
	out := make(map[models.ExchangeID][]*models.Order)
	for ex, orders := range s.unmatched {
		for _, o := range orders {
			if o.Unmatched() {
				out[ex] = append(out[ex], o)
			}
		}
	}
	return out
}

func (s *stubStrategy) PendingPlace() map[models.ExchangeID][]*models.Order  { return s.place }
func (s *stubStrategy) PendingCancel() map[models.ExchangeID][]*models.Order { return s.cancel }
func (s *stubStrategy) PendingUpdate() map[models.ExchangeID][]*models.Order { return s.update }

var _ strategy.Strategy = (*stubStrategy)(nil)

// fakePriceService records the batches it was asked for and serves canned
// selections.
type fakePriceService struct {
	calls      [][]int64
	selections map[models.SelectionKey]*models.Selection
	errored    []int64
	err        error
}

func (f *fakePriceService) FetchPrices(_ context.Context, marketIDs []int64) (map[models.SelectionKey]*models.Selection, []int64, error) {
	sorted := append([]int64(nil), marketIDs...)
	f.calls = append(f.calls, sorted)
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.selections, f.errored, nil
}

// fakeOrderService counts every call and answers from canned maps.
type fakeOrderService struct {
	placeCalls  int
	cancelCalls int
	updateCalls int
	statusCalls int
	listCalls   int
	loginCalls  int

	placed [][]*models.Order

	placeResult  map[uuid.UUID]*models.Order
	statusResult map[uuid.UUID]*models.Order
	statusErr    error
	listErr      error
	changed      map[string]*models.Order
	seq          int64
	perMarket    bool
}

func (f *fakeOrderService) Login(context.Context) error {
	f.loginCalls++
	return nil
}

func (f *fakeOrderService) PlaceOrders(_ context.Context, intents []*models.Order) (map[uuid.UUID]*models.Order, error) {
	f.placeCalls++
	f.placed = append(f.placed, intents)
	return f.placeResult, nil
}

func (f *fakeOrderService) CancelOrders(_ context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error) {
	f.cancelCalls++
	return nil, nil
}

func (f *fakeOrderService) UpdateOrders(_ context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error) {
	f.updateCalls++
	return nil, nil
}

func (f *fakeOrderService) ListChangedOrders(_ context.Context, since int64) (map[string]*models.Order, int64, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.seq, f.listErr
	}
	return f.changed, f.seq, nil
}

func (f *fakeOrderService) OrderStatus(_ context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.statusResult, nil
}

func (f *fakeOrderService) Bootstrap(context.Context) (map[string]*models.Order, int64, error) {
	return nil, f.seq, nil
}

func (f *fakeOrderService) Balance(context.Context) (*models.AccountBalance, error) {
	return &models.AccountBalance{FetchedAt: time.Now()}, nil
}

func (f *fakeOrderService) PerMarketPlacement() bool { return f.perMarket }

func testSelection(ex models.ExchangeID, marketID, selectionID int64, back, lay float64) *models.Selection {
	return models.NewSelection(ex, marketID, selectionID, "sel",
		[]models.PricePoint{{Price: back, Amount: 100}},
		[]models.PricePoint{{Price: lay, Amount: 100}},
		models.DefaultLadderDepth)
}

func testOrder(ex models.ExchangeID, marketID, selectionID int64, side models.Side, ref string) *models.Order {
	o := models.NewOrder(testSelection(ex, marketID, selectionID, 5.0, 5.2), side, 5.0, 2.0)
	o.Status = models.OrderUnmatched
	o.UnmatchedStake = o.Stake
	o.Ref = ref
	return o
}
