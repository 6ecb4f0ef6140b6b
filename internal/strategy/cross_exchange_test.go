package strategy

import (
	"io"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cross-book/internal/models"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeBook is an in-memory PriceBook for tests.
type fakeBook map[models.ExchangeID]map[models.SelectionKey]*models.Selection

func (f fakeBook) put(sel *models.Selection) fakeBook {
	if f[sel.ExchangeID] == nil {
		f[sel.ExchangeID] = make(map[models.SelectionKey]*models.Selection)
	}
	f[sel.ExchangeID][sel.Key()] = sel
	return f
}

func (f fakeBook) Selection(ex models.ExchangeID, marketID, selectionID int64) (*models.Selection, bool) {
	sel, ok := f[ex][models.SelectionKey{MarketID: marketID, SelectionID: selectionID}]
	return sel, ok
}

func levels(prices ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = models.PricePoint{Price: p, Amount: 100}
	}
	return out
}

func crossConfig() CrossExchangeConfig {
	return CrossExchangeConfig{
		Commission: map[models.ExchangeID]float64{
			models.ExchangeBDAQ: 0.05,
			models.ExchangeBF:   0.05,
		},
		MinStake: map[models.ExchangeID]float64{
			models.ExchangeBDAQ: 0.5,
			models.ExchangeBF:   2.0,
		},
	}
}

func crossKeys() (models.SelectionKey, models.SelectionKey) {
	return models.SelectionKey{MarketID: 11, SelectionID: 1},
		models.SelectionKey{MarketID: 21, SelectionID: 2}
}

func TestCrossExchangeInstantOpportunity(t *testing.T) {
	bdaqKey, bfKey := crossKeys()
	s := NewCrossExchange(bdaqKey, bfKey, crossConfig(), testLogger())

	// Back 6.0 resting on BDAQ, lay 5.0 resting on BF:
	// 6.0 > 5.0 / (0.95 * 0.95) = 5.54, both legs fire at once.
	book := fakeBook{}.
		put(models.NewSelection(models.ExchangeBDAQ, bdaqKey.MarketID, bdaqKey.SelectionID, "", levels(6.0), nil, 5)).
		put(models.NewSelection(models.ExchangeBF, bfKey.MarketID, bfKey.SelectionID, "", nil, levels(5.0), 5))

	s.UpdatePrices(book)

	assert.Equal(t, StateBothPlaced, s.state)
	require.Len(t, s.PendingPlace()[models.ExchangeBF], 1)
	require.Len(t, s.PendingPlace()[models.ExchangeBDAQ], 1)

	lay := s.PendingPlace()[models.ExchangeBF][0]
	back := s.PendingPlace()[models.ExchangeBDAQ][0]
	assert.Equal(t, models.SideLay, lay.Side)
	assert.Equal(t, models.SideBack, back.Side)
	assert.Equal(t, 5.0, lay.Price)
	assert.Equal(t, 6.0, back.Price)

	// Stakes rounded to 2dp and clear both exchange minimums.
	for _, o := range []*models.Order{lay, back} {
		cents := o.Stake * 100
		assert.InDelta(t, math.Round(cents), cents, 1e-9, "stake %.4f not 2dp", o.Stake)
	}
	assert.GreaterOrEqual(t, back.Stake, 0.5)
	assert.GreaterOrEqual(t, lay.Stake, 2.0)
	assert.Equal(t, 1.75, back.Stake)
}

func TestCrossExchangeNoOpportunity(t *testing.T) {
	bdaqKey, bfKey := crossKeys()
	s := NewCrossExchange(bdaqKey, bfKey, crossConfig(), testLogger())

	// Best back 5.6 against best lay 5.4 needs 5.4 / 0.9025 = 5.98 to pay;
	// not profitable in either direction.
	book := fakeBook{}.
		put(models.NewSelection(models.ExchangeBDAQ, bdaqKey.MarketID, bdaqKey.SelectionID, "", levels(5.6), levels(5.8), 5)).
		put(models.NewSelection(models.ExchangeBF, bfKey.MarketID, bfKey.SelectionID, "", levels(5.2), levels(5.4), 5))

	s.UpdatePrices(book)

	assert.Equal(t, StateNoOpp, s.state)
	assert.Empty(t, s.PendingPlace())
}

func TestCrossExchangeImprovableOpportunity(t *testing.T) {
	bdaqKey, bfKey := crossKeys()
	s := NewCrossExchange(bdaqKey, bfKey, crossConfig(), testLogger())

	// Resting lay 9.2 on BF fails the instant test against back 10.0 on BDAQ
	// (9.2 / 0.9025 = 10.19) but quoting one tick inside at 9.0 clears it
	// (9.0 / 0.9025 = 9.97).
	book := fakeBook{}.
		put(models.NewSelection(models.ExchangeBDAQ, bdaqKey.MarketID, bdaqKey.SelectionID, "", levels(10.0), nil, 5)).
		put(models.NewSelection(models.ExchangeBF, bfKey.MarketID, bfKey.SelectionID, "", nil, levels(9.2), 5))

	s.UpdatePrices(book)

	assert.Equal(t, StateLayPlaced, s.state)
	assert.Empty(t, s.PendingPlace()[models.ExchangeBDAQ])
	require.Len(t, s.PendingPlace()[models.ExchangeBF], 1)
	lay := s.PendingPlace()[models.ExchangeBF][0]
	assert.Equal(t, 9.0, lay.Price)
	assert.Equal(t, models.SideLay, lay.Side)

	// Lay matches; the back leg fires on the next evaluation.
	matched := *lay
	matched.Ref = "B1"
	matched.Status = models.OrderMatched
	matched.MatchedStake = lay.Stake
	s.UpdateOrders(map[uuid.UUID]*models.Order{lay.ID: &matched})

	s.UpdatePrices(book)
	assert.Equal(t, StateLayMatched, s.state)
	require.Len(t, s.PendingPlace()[models.ExchangeBDAQ], 1)
	back := s.PendingPlace()[models.ExchangeBDAQ][0]
	assert.Equal(t, 10.0, back.Price)
	assert.Equal(t, models.SideBack, back.Side)

	// Back matches too; the cycle completes and detection re-arms.
	backMatched := *back
	backMatched.Ref = "D1"
	backMatched.Status = models.OrderMatched
	s.UpdateOrders(map[uuid.UUID]*models.Order{back.ID: &backMatched})

	s.UpdatePrices(book)
	assert.Equal(t, StateBothMatched, s.state)
	s.UpdatePrices(book)
	// Prices still show the opportunity, so a fresh lay leg goes out.
	assert.Equal(t, StateLayPlaced, s.state)
}

func TestCrossExchangeLayCeilingDropsPendingSet(t *testing.T) {
	bdaqKey, bfKey := crossKeys()
	s := NewCrossExchange(bdaqKey, bfKey, crossConfig(), testLogger())

	// Profitable on paper (22.0 / 0.9025 = 24.4 < 30) but the lay price is
	// above the risk ceiling, so nothing is submitted.
	book := fakeBook{}.
		put(models.NewSelection(models.ExchangeBDAQ, bdaqKey.MarketID, bdaqKey.SelectionID, "", levels(30.0), nil, 5)).
		put(models.NewSelection(models.ExchangeBF, bfKey.MarketID, bfKey.SelectionID, "", nil, levels(22.0), 5))

	s.UpdatePrices(book)

	assert.Equal(t, StateNoOpp, s.state)
	assert.Empty(t, s.PendingPlace())
	assert.Empty(t, s.tracked)
}

func TestCrossExchangeSkipsTickOnMissingPrices(t *testing.T) {
	bdaqKey, bfKey := crossKeys()
	s := NewCrossExchange(bdaqKey, bfKey, crossConfig(), testLogger())

	// Only one exchange has prices; no partial transition happens.
	book := fakeBook{}.
		put(models.NewSelection(models.ExchangeBDAQ, bdaqKey.MarketID, bdaqKey.SelectionID, "", levels(6.0), nil, 5))

	s.UpdatePrices(book)

	assert.Equal(t, StateNoOpp, s.state)
	assert.Empty(t, s.PendingPlace())
}

func TestCrossExchangeAtMostOncePlacement(t *testing.T) {
	bdaqKey, bfKey := crossKeys()
	s := NewCrossExchange(bdaqKey, bfKey, crossConfig(), testLogger())

	book := fakeBook{}.
		put(models.NewSelection(models.ExchangeBDAQ, bdaqKey.MarketID, bdaqKey.SelectionID, "", levels(6.0), nil, 5)).
		put(models.NewSelection(models.ExchangeBF, bfKey.MarketID, bfKey.SelectionID, "", nil, levels(5.0), 5))

	s.UpdatePrices(book)
	require.Len(t, s.PendingPlace()[models.ExchangeBF], 1)
	require.Len(t, s.PendingPlace()[models.ExchangeBDAQ], 1)

	// Re-evaluating without a price change must not queue the pair again.
	s.UpdatePrices(book)
	assert.Empty(t, s.PendingPlace())
	assert.Len(t, s.tracked, 2)
}

func TestProfitableProperty(t *testing.T) {
	// check across randomized-ish grid: true iff back > lay / ((1-c1)(1-c2))
	for _, back := range []float64{1.5, 2.0, 5.0, 6.0, 10.0, 50.0} {
		for _, lay := range []float64{1.5, 2.0, 5.0, 6.0, 10.0, 50.0} {
			for _, c := range []float64{0, 0.02, 0.05, 0.1, 0.2} {
				want := back > lay/((1-c)*(1-c))
				assert.Equal(t, want, profitable(back, lay, c, c),
					"back=%v lay=%v c=%v", back, lay, c)
			}
		}
	}
}
