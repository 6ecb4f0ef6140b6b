package strategy

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/metrics"
	"github.com/yourusername/cross-book/internal/models"
)

// MarketMakerConfig carries the quoting parameters for a single-exchange
// market maker.
type MarketMakerConfig struct {
	// Epsilon is the minimum gap between our two quotes; quoting requires
	// room inside the current spread.
	Epsilon float64

	// BackStake is the base stake for the back quote; the lay stake is
	// derived from it to keep the position odds-neutral.
	BackStake float64

	// CloseOutTicks is the time-to-live threshold below which the strategy
	// stops quoting and closes its position.
	CloseOutTicks int

	Interval int
}

// MarketMaker quotes both sides of one selection's book on one exchange,
// earning the spread when both quotes match. When its externally supplied
// time-to-live runs down it closes out: an unmatched side is repriced one
// tick worse to force a fill, or both quotes cancelled if neither matched.
type MarketMaker struct {
	baseStrategy

	ex  models.ExchangeID
	key models.SelectionKey
	cfg MarketMakerConfig
}

// NewMarketMaker builds a market-making strategy for one selection.
func NewMarketMaker(ex models.ExchangeID, key models.SelectionKey, cfg MarketMakerConfig, logger *logrus.Entry) *MarketMaker {
	if cfg.Interval <= 0 {
		cfg.Interval = 1
	}
	name := fmt.Sprintf("maker-%s-%d-%d", ex, key.MarketID, key.SelectionID)
	return &MarketMaker{
		baseStrategy: newBaseStrategy(name, cfg.Interval, logger),
		ex:           ex,
		key:          key,
		cfg:          cfg,
	}
}

func (s *MarketMaker) MarketIDs() map[models.ExchangeID][]int64 {
	return map[models.ExchangeID][]int64{s.ex: {s.key.MarketID}}
}

func (s *MarketMaker) UpdatePrices(book PriceBook) {
	s.clearPending()

	sel, ok := book.Selection(s.ex, s.key.MarketID, s.key.SelectionID)
	if !ok {
		return
	}

	if s.state != StateFinished && s.ttl < s.cfg.CloseOutTicks {
		// Too close to the off to open a fresh pair; with nothing out there
		// is nothing to unwind either.
		if s.state == StateNoOpp {
			s.state = StateFinished
			return
		}
		s.closeOut()
		return
	}

	switch s.state {
	case StateNoOpp:
		s.quote(sel)
	case StateOpp:
		if s.bothSubmitted() {
			s.state = StateBothPlaced
		}
		s.watchQuotes(sel)
	case StateBothPlaced, StateBackMatched, StateLayMatched:
		s.watchQuotes(sel)
	}
}

// quote places a back/lay pair inside the current spread when there is room:
// the back quote one tick under the best lay, the lay quote one tick over the
// best back, profitable only when the improved prices still leave a gap.
func (s *MarketMaker) quote(sel *models.Selection) {
	backPrice := sel.MakeBestBack()
	layPrice := sel.MakeBestLay()

	// Sentinels mean an empty side of the book; nothing to improve on.
	if backPrice >= models.MaxOdds || layPrice <= models.MinOdds {
		return
	}
	if backPrice <= layPrice+s.cfg.Epsilon {
		return
	}

	backStake := models.RoundStake(s.cfg.BackStake)
	layStake := neutralLayStake(backStake, backPrice, layPrice)

	s.queuePlace(models.NewOrder(sel, models.SideBack, backPrice, backStake))
	s.queuePlace(models.NewOrder(sel, models.SideLay, layPrice, layStake))
	s.state = StateOpp
	metrics.OpportunitiesTotal.WithLabelValues("market_maker").Inc()
	s.logger.WithFields(logrus.Fields{
		"back_price": backPrice,
		"lay_price":  layPrice,
		"back_stake": backStake,
		"lay_stake":  layStake,
	}).Info("quoting both sides")
}

func (s *MarketMaker) bothSubmitted() bool {
	back := s.sideOrder(models.SideBack)
	lay := s.sideOrder(models.SideLay)
	return back != nil && lay != nil &&
		back.Status != models.OrderNotPlaced && lay.Status != models.OrderNotPlaced
}

// watchQuotes advances through the matched states. Both sides matched means
// the spread is earned; the strategy reverts to detection immediately and
// looks at the same prices again.
func (s *MarketMaker) watchQuotes(sel *models.Selection) {
	back := s.sideOrder(models.SideBack)
	lay := s.sideOrder(models.SideLay)

	backMatched := back != nil && back.Status == models.OrderMatched
	layMatched := lay != nil && lay.Status == models.OrderMatched

	switch {
	case backMatched && layMatched:
		s.logger.Info("both quotes matched, spread earned")
		s.untrackAll()
		s.state = StateNoOpp
		s.quote(sel)
	case backMatched:
		s.state = StateBackMatched
	case layMatched:
		s.state = StateLayMatched
	default:
		if back != nil && lay != nil &&
			back.Status == models.OrderCancelled && lay.Status == models.OrderCancelled {
			s.untrackAll()
			s.state = StateNoOpp
		}
	}
}

// closeOut ends the quoting cycle when time runs short. A half-filled pair
// reprices the live side one tick in the book-crossing direction to force a
// fill; an unfilled pair is cancelled outright. Either way the strategy is
// finished and gets retired by its automation.
func (s *MarketMaker) closeOut() {
	back := s.sideOrder(models.SideBack)
	lay := s.sideOrder(models.SideLay)

	backMatched := back != nil && back.Status == models.OrderMatched
	layMatched := lay != nil && lay.Status == models.OrderMatched

	switch {
	case backMatched && layMatched:
		// Position already balanced, nothing to close.
	case backMatched && lay != nil && lay.Unmatched():
		lay.Price = models.TickAbove(s.ex, lay.Price)
		s.queueUpdate(lay)
		s.logger.WithField("lay_price", lay.Price).Info("closing out, repricing lay to force fill")
	case layMatched && back != nil && back.Unmatched():
		back.Price = models.TickBelow(s.ex, back.Price)
		s.queueUpdate(back)
		s.logger.WithField("back_price", back.Price).Info("closing out, repricing back to force fill")
	default:
		for _, o := range []*models.Order{back, lay} {
			if o != nil && o.Ref != "" && o.Unmatched() {
				s.queueCancel(o)
			}
		}
		s.logger.Info("closing out, cancelling unmatched quotes")
	}

	s.state = StateFinished
}

// sideOrder finds the tracked order on the given side, nil if none.
func (s *MarketMaker) sideOrder(side models.Side) *models.Order {
	for _, o := range s.tracked {
		if o.Side == side {
			return o
		}
	}
	return nil
}
