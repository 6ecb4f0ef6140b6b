package strategy

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/metrics"
	"github.com/yourusername/cross-book/internal/models"
)

// DefaultLayCeiling is the highest lay price a cross-exchange strategy will
// quote; laying above it risks more liability than the edge is worth.
const DefaultLayCeiling = 20.0

// CrossExchangeConfig carries the per-exchange economics a cross-exchange
// strategy needs.
type CrossExchangeConfig struct {
	Commission map[models.ExchangeID]float64
	MinStake   map[models.ExchangeID]float64
	LayCeiling float64
	Interval   int
}

// CrossExchange detects arbitrage between the same outcome priced on both
// exchanges: lay on one, back on the other, whenever the spread clears both
// commissions. It either fires both legs at resting prices (instant) or
// quotes the lay first and places the back only once the lay is matched
// (improvable).
type CrossExchange struct {
	baseStrategy

	keys map[models.ExchangeID]models.SelectionKey
	cfg  CrossExchangeConfig

	// leg assignment chosen when the opportunity was detected
	layExchange  models.ExchangeID
	backExchange models.ExchangeID
	backPrice    float64
	backStake    float64
}

// NewCrossExchange builds a cross-exchange strategy over one matched
// selection pair.
func NewCrossExchange(bdaqKey, bfKey models.SelectionKey, cfg CrossExchangeConfig, logger *logrus.Entry) *CrossExchange {
	if cfg.LayCeiling <= 0 {
		cfg.LayCeiling = DefaultLayCeiling
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 1
	}
	name := fmt.Sprintf("cross-%d-%d", bdaqKey.MarketID, bdaqKey.SelectionID)
	return &CrossExchange{
		baseStrategy: newBaseStrategy(name, cfg.Interval, logger),
		keys: map[models.ExchangeID]models.SelectionKey{
			models.ExchangeBDAQ: bdaqKey,
			models.ExchangeBF:   bfKey,
		},
		cfg: cfg,
	}
}

func (s *CrossExchange) MarketIDs() map[models.ExchangeID][]int64 {
	out := make(map[models.ExchangeID][]int64, len(s.keys))
	for ex, key := range s.keys {
		out[ex] = []int64{key.MarketID}
	}
	return out
}

// UpdatePrices runs one evaluation of the state machine. If either snapshot
// is missing the tick is skipped whole: no partial transitions.
func (s *CrossExchange) UpdatePrices(book PriceBook) {
	s.clearPending()

	selections := make(map[models.ExchangeID]*models.Selection, len(s.keys))
	for ex, key := range s.keys {
		sel, ok := book.Selection(ex, key.MarketID, key.SelectionID)
		if !ok {
			return
		}
		selections[ex] = sel
	}

	switch s.state {
	case StateNoOpp:
		s.detect(selections)
	case StateLayPlaced:
		s.afterLayPlaced(selections)
	case StateBothPlaced:
		s.watchBothLegs()
	case StateLayMatched, StateBackMatched:
		s.watchBothLegs()
	case StateBothMatched:
		// Cycle complete; re-arm and look again at the same prices.
		s.untrackAll()
		s.state = StateNoOpp
		s.detect(selections)
	}
}

// detect evaluates both (lay-exchange, back-exchange) assignments, preferring
// an instantly matchable pair over one that needs to quote.
func (s *CrossExchange) detect(selections map[models.ExchangeID]*models.Selection) {
	for _, layEx := range models.Exchanges() {
		backEx := layEx.Other()
		laySel, backSel := selections[layEx], selections[backEx]
		cLay, cBack := s.cfg.Commission[layEx], s.cfg.Commission[backEx]

		// Instant: both legs rest on the books already.
		layPrice := laySel.BestLay()
		backPrice := backSel.BestBack()
		if layPrice < models.MaxOdds && profitable(backPrice, layPrice, cBack, cLay) {
			if s.placeBothLegs(laySel, backSel, layPrice, backPrice, cBack) {
				return
			}
			continue
		}

		// Improvable: quote the lay one tick inside the spread; back leg
		// waits for the lay to match.
		candidateLay := laySel.MakeBestBack()
		if candidateLay < models.MaxOdds && profitable(backPrice, candidateLay, cBack, cLay) {
			if s.placeLayLeg(laySel, candidateLay, backPrice, cBack, backEx, layEx) {
				return
			}
		}
	}
}

// layAllowed filters lay quotes at the no-liquidity sentinel or above the
// risk ceiling. A disallowed lay drops the whole tick's intents.
func (s *CrossExchange) layAllowed(price float64) bool {
	return price < models.MaxOdds && price <= s.cfg.LayCeiling
}

func (s *CrossExchange) placeBothLegs(laySel, backSel *models.Selection, layPrice, backPrice, cBack float64) bool {
	if !s.layAllowed(layPrice) {
		s.dropPending()
		return false
	}

	backStake, layStake := crossStakes(backPrice, layPrice, cBack,
		s.cfg.MinStake[backSel.ExchangeID], s.cfg.MinStake[laySel.ExchangeID])

	layOrder := models.NewOrder(laySel, models.SideLay, layPrice, layStake)
	backOrder := models.NewOrder(backSel, models.SideBack, backPrice, backStake)
	s.queuePlace(layOrder)
	s.queuePlace(backOrder)

	s.layExchange = laySel.ExchangeID
	s.backExchange = backSel.ExchangeID
	s.state = StateBothPlaced
	metrics.OpportunitiesTotal.WithLabelValues("cross_exchange").Inc()
	s.logger.WithFields(logrus.Fields{
		"lay_exchange": laySel.ExchangeID.String(),
		"lay_price":    layPrice,
		"back_price":   backPrice,
		"lay_stake":    layStake,
		"back_stake":   backStake,
	}).Info("instant opportunity, placing both legs")
	return true
}

func (s *CrossExchange) placeLayLeg(laySel *models.Selection, layPrice, backPrice, cBack float64, backEx, layEx models.ExchangeID) bool {
	if !s.layAllowed(layPrice) {
		s.dropPending()
		return false
	}

	backStake, layStake := crossStakes(backPrice, layPrice, cBack,
		s.cfg.MinStake[backEx], s.cfg.MinStake[layEx])

	layOrder := models.NewOrder(laySel, models.SideLay, layPrice, layStake)
	s.queuePlace(layOrder)

	s.layExchange = layEx
	s.backExchange = backEx
	s.backPrice = backPrice
	s.backStake = backStake
	s.state = StateLayPlaced
	metrics.OpportunitiesTotal.WithLabelValues("cross_exchange").Inc()
	s.logger.WithFields(logrus.Fields{
		"lay_exchange": layEx.String(),
		"lay_price":    layPrice,
		"back_price":   backPrice,
		"lay_stake":    layStake,
	}).Info("improvable opportunity, quoting lay leg")
	return true
}

// afterLayPlaced waits for the quoted lay to match, then fires the back leg
// at the best currently available back price.
func (s *CrossExchange) afterLayPlaced(selections map[models.ExchangeID]*models.Selection) {
	lay := s.legOrder(s.layExchange)
	if lay == nil || lay.Status == models.OrderCancelled {
		s.untrackAll()
		s.state = StateNoOpp
		return
	}
	if lay.Status != models.OrderMatched {
		return
	}

	backSel := selections[s.backExchange]
	backPrice := backSel.BestBack()
	if backPrice <= models.MinOdds {
		// No back liquidity right now; fall back to the detection price.
		backPrice = s.backPrice
	}

	backOrder := models.NewOrder(backSel, models.SideBack, backPrice, s.backStake)
	s.queuePlace(backOrder)
	s.state = StateLayMatched
	s.logger.WithFields(logrus.Fields{
		"back_exchange": s.backExchange.String(),
		"back_price":    backPrice,
		"back_stake":    s.backStake,
	}).Info("lay leg matched, placing back leg")
}

// watchBothLegs advances through the matched states as reports come in.
func (s *CrossExchange) watchBothLegs() {
	lay := s.legOrder(s.layExchange)
	back := s.legOrder(s.backExchange)

	layMatched := lay != nil && lay.Status == models.OrderMatched
	backMatched := back != nil && back.Status == models.OrderMatched

	switch {
	case layMatched && backMatched:
		s.state = StateBothMatched
	case layMatched:
		s.state = StateLayMatched
	case backMatched:
		s.state = StateBackMatched
	default:
		if lay != nil && back != nil &&
			lay.Status == models.OrderCancelled && back.Status == models.OrderCancelled {
			s.untrackAll()
			s.state = StateNoOpp
		}
	}
}

// legOrder finds the tracked order on the given exchange, nil if none.
func (s *CrossExchange) legOrder(ex models.ExchangeID) *models.Order {
	for _, o := range s.tracked {
		if o.ExchangeID == ex {
			return o
		}
	}
	return nil
}
