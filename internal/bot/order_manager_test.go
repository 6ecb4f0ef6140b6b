package bot

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cross-book/internal/exchange"
	"github.com/yourusername/cross-book/internal/models"
	"github.com/yourusername/cross-book/internal/strategy"
)

func orderServices(bdaq, bf *fakeOrderService) map[models.ExchangeID]exchange.OrderService {
	return map[models.ExchangeID]exchange.OrderService{
		models.ExchangeBDAQ: bdaq,
		models.ExchangeBF:   bf,
	}
}

func TestMakeOrdersPracticeModeNeverCallsExchanges(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	s.updated = true
	s.place[models.ExchangeBDAQ] = []*models.Order{testOrder(models.ExchangeBDAQ, 10, 1, models.SideBack, "")}
	s.cancel[models.ExchangeBF] = []*models.Order{testOrder(models.ExchangeBF, 30, 2, models.SideLay, "R1")}
	group.Add(s)

	bdaq := &fakeOrderService{}
	bf := &fakeOrderService{}
	m := NewOrderManager(group, orderServices(bdaq, bf), nil, true, testLogger())

	reports, err := m.MakeOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)

	assert.Zero(t, bdaq.placeCalls+bdaq.cancelCalls+bdaq.updateCalls)
	assert.Zero(t, bf.placeCalls+bf.cancelCalls+bf.updateCalls)
}

func TestUpdateOrderInformationPracticeModeNoQueries(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	s.unmatched[models.ExchangeBF] = []*models.Order{testOrder(models.ExchangeBF, 30, 2, models.SideLay, "R1")}
	group.Add(s)

	bdaq := &fakeOrderService{}
	bf := &fakeOrderService{}
	m := NewOrderManager(group, orderServices(bdaq, bf), nil, true, testLogger())

	reports, err := m.UpdateOrderInformation(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Zero(t, bdaq.listCalls)
	assert.Zero(t, bf.statusCalls)
}

func TestUpdateOrderInformationSkipsIdleExchanges(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	s.unmatched[models.ExchangeBF] = []*models.Order{testOrder(models.ExchangeBF, 30, 2, models.SideLay, "R1")}
	group.Add(s)

	bdaq := &fakeOrderService{}
	bf := &fakeOrderService{}
	m := NewOrderManager(group, orderServices(bdaq, bf), nil, false, testLogger())

	_, err := m.UpdateOrderInformation(context.Background())
	require.NoError(t, err)
	// Nothing unmatched on BDAQ, so the changed-orders feed is not polled.
	assert.Zero(t, bdaq.listCalls)
	assert.Equal(t, 1, bf.statusCalls)
}

func TestUpdateOrderInformationCorrelatesByClientID(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	// Placed on BDAQ but the reference has not arrived yet.
	local := testOrder(models.ExchangeBDAQ, 10, 1, models.SideBack, "")
	s.unmatched[models.ExchangeBDAQ] = []*models.Order{local}
	group.Add(s)

	feedOrder := *local
	feedOrder.Ref = "D100"
	feedOrder.Status = models.OrderMatched
	feedOrder.MatchedStake = feedOrder.Stake
	feedOrder.UnmatchedStake = 0

	bdaq := &fakeOrderService{changed: map[string]*models.Order{"D100": &feedOrder}, seq: 7}
	m := NewOrderManager(group, orderServices(bdaq, &fakeOrderService{}), nil, false, testLogger())

	reports, err := m.UpdateOrderInformation(context.Background())
	require.NoError(t, err)

	r, ok := reports[local.ID]
	require.True(t, ok)
	assert.Equal(t, local.ID, r.ID)
	assert.Equal(t, "D100", r.Ref)
	assert.Equal(t, models.OrderMatched, r.Status)
	assert.Equal(t, int64(7), m.bdaqSeq)
}

func TestUpdateOrderInformationInfersCancellationFromAbsence(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	gone := testOrder(models.ExchangeBDAQ, 10, 1, models.SideBack, "D1")
	live := testOrder(models.ExchangeBDAQ, 10, 2, models.SideBack, "D2")
	s.unmatched[models.ExchangeBDAQ] = []*models.Order{gone, live}
	group.Add(s)

	// The feed reports a change for D2 only; D1 has vanished server-side.
	liveUpdate := *live
	liveUpdate.MatchedStake = 1.0
	bdaq := &fakeOrderService{changed: map[string]*models.Order{"D2": &liveUpdate}, seq: 3}
	m := NewOrderManager(group, orderServices(bdaq, &fakeOrderService{}), nil, false, testLogger())

	reports, err := m.UpdateOrderInformation(context.Background())
	require.NoError(t, err)

	r, ok := reports[gone.ID]
	require.True(t, ok)
	assert.Equal(t, models.OrderCancelled, r.Status)
	assert.Zero(t, r.UnmatchedStake)
}

func TestUpdateOrderInformationEmptyFeedInfersNothing(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	live := testOrder(models.ExchangeBDAQ, 10, 1, models.SideBack, "D1")
	s.unmatched[models.ExchangeBDAQ] = []*models.Order{live}
	group.Add(s)

	// An empty changed set means nothing happened, not that orders are gone.
	bdaq := &fakeOrderService{changed: map[string]*models.Order{}, seq: 5}
	m := NewOrderManager(group, orderServices(bdaq, &fakeOrderService{}), nil, false, testLogger())

	reports, err := m.UpdateOrderInformation(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Equal(t, int64(5), m.bdaqSeq)
}

func TestUpdateOrderInformationExpiredSessionTriggersRelogin(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	s.unmatched[models.ExchangeBF] = []*models.Order{testOrder(models.ExchangeBF, 30, 2, models.SideLay, "R1")}
	group.Add(s)

	bf := &fakeOrderService{statusErr: &exchange.AuthenticationError{
		Exchange: models.ExchangeBF,
		Message:  "session expired",
	}}
	m := NewOrderManager(group, orderServices(&fakeOrderService{}, bf), nil, false, testLogger())

	// The failed reconciliation is swallowed; the session comes back for
	// the next tick.
	_, err := m.UpdateOrderInformation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, bf.loginCalls)
}

func TestUpdateOrderInformationOtherErrorsSkipRelogin(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	s.unmatched[models.ExchangeBDAQ] = []*models.Order{testOrder(models.ExchangeBDAQ, 10, 1, models.SideBack, "D1")}
	group.Add(s)

	bdaq := &fakeOrderService{listErr: &exchange.APIError{
		Exchange:  models.ExchangeBDAQ,
		Code:      "503",
		Message:   "feed unavailable",
		Transient: true,
	}}
	m := NewOrderManager(group, orderServices(bdaq, &fakeOrderService{}), nil, false, testLogger())

	_, err := m.UpdateOrderInformation(context.Background())
	require.NoError(t, err)
	assert.Zero(t, bdaq.loginCalls)
}

func TestMakeOrdersChunksPerMarketOnBDAQ(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	s.updated = true
	s.place[models.ExchangeBDAQ] = []*models.Order{
		testOrder(models.ExchangeBDAQ, 10, 1, models.SideBack, ""),
		testOrder(models.ExchangeBDAQ, 10, 2, models.SideLay, ""),
		testOrder(models.ExchangeBDAQ, 20, 3, models.SideBack, ""),
	}
	group.Add(s)

	bdaq := &fakeOrderService{perMarket: true}
	m := NewOrderManager(group, orderServices(bdaq, &fakeOrderService{}), nil, false, testLogger())

	_, err := m.MakeOrders(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, bdaq.placeCalls)
	for _, batch := range bdaq.placed {
		market := batch[0].MarketID
		for _, o := range batch {
			assert.Equal(t, market, o.MarketID)
		}
	}
}

func TestMakeOrdersFoldsReportsIntoStrategies(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	s.updated = true
	intent := testOrder(models.ExchangeBF, 30, 2, models.SideLay, "")
	intent.Status = models.OrderNotPlaced
	s.place[models.ExchangeBF] = []*models.Order{intent}
	group.Add(s)

	placed := *intent
	placed.Ref = "R55"
	placed.Status = models.OrderUnmatched
	placed.UnmatchedStake = placed.Stake
	bf := &fakeOrderService{placeResult: map[uuid.UUID]*models.Order{intent.ID: &placed}}
	m := NewOrderManager(group, orderServices(&fakeOrderService{}, bf), nil, false, testLogger())

	reports, err := m.MakeOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)

	// The reports came back through the group into the strategy.
	require.Len(t, s.reports, 1)
	assert.Contains(t, s.reports[0], intent.ID)
}

func TestMakeOrdersNoPendingNoCalls(t *testing.T) {
	group := strategy.NewGroup()
	s := newStubStrategy("s", 1)
	s.updated = true
	group.Add(s)

	bdaq := &fakeOrderService{}
	m := NewOrderManager(group, orderServices(bdaq, &fakeOrderService{}), nil, false, testLogger())

	reports, err := m.MakeOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.Zero(t, bdaq.placeCalls)
}
