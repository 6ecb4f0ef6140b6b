package strategy

import (
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/models"
)

// baseStrategy carries the bookkeeping shared by all strategies: identity,
// cadence, the updated-this-tick flag, tracked orders and the pending intent
// sets repopulated on every evaluation.
type baseStrategy struct {
	name     string
	interval int
	updated  bool
	ttl      int
	state    State
	logger   *logrus.Entry

	tracked map[uuid.UUID]*models.Order

	pendingPlace  map[models.ExchangeID][]*models.Order
	pendingCancel map[models.ExchangeID][]*models.Order
	pendingUpdate map[models.ExchangeID][]*models.Order
}

func newBaseStrategy(name string, interval int, logger *logrus.Entry) baseStrategy {
	return baseStrategy{
		name:     name,
		interval: interval,
		state:    StateNoOpp,
		// Effectively unbounded until an automation supplies a real value.
		ttl:           1 << 30,
		logger:        logger.WithField("strategy", name),
		tracked:       make(map[uuid.UUID]*models.Order),
		pendingPlace:  make(map[models.ExchangeID][]*models.Order),
		pendingCancel: make(map[models.ExchangeID][]*models.Order),
		pendingUpdate: make(map[models.ExchangeID][]*models.Order),
	}
}

func (b *baseStrategy) Name() string             { return b.name }
func (b *baseStrategy) UpdateInterval() int      { return b.interval }
func (b *baseStrategy) WasUpdated() bool         { return b.updated }
func (b *baseStrategy) SetUpdated(updated bool)  { b.updated = updated }
func (b *baseStrategy) SetTicksToLive(ticks int) { b.ttl = ticks }
func (b *baseStrategy) Finished() bool           { return b.state == StateFinished }

func (b *baseStrategy) PendingPlace() map[models.ExchangeID][]*models.Order  { return b.pendingPlace }
func (b *baseStrategy) PendingCancel() map[models.ExchangeID][]*models.Order { return b.pendingCancel }
func (b *baseStrategy) PendingUpdate() map[models.ExchangeID][]*models.Order { return b.pendingUpdate }

// clearPending resets the pending sets. Called at the start of every price
// update so each detected opportunity submits at most once.
func (b *baseStrategy) clearPending() {
	b.pendingPlace = make(map[models.ExchangeID][]*models.Order)
	b.pendingCancel = make(map[models.ExchangeID][]*models.Order)
	b.pendingUpdate = make(map[models.ExchangeID][]*models.Order)
}

func (b *baseStrategy) queuePlace(o *models.Order) {
	b.pendingPlace[o.ExchangeID] = append(b.pendingPlace[o.ExchangeID], o)
	b.tracked[o.ID] = o
}

func (b *baseStrategy) queueCancel(o *models.Order) {
	b.pendingCancel[o.ExchangeID] = append(b.pendingCancel[o.ExchangeID], o)
}

func (b *baseStrategy) queueUpdate(o *models.Order) {
	b.pendingUpdate[o.ExchangeID] = append(b.pendingUpdate[o.ExchangeID], o)
}

// dropPending abandons this tick's intents, untracking orders that were never
// submitted.
func (b *baseStrategy) dropPending() {
	for _, orders := range b.pendingPlace {
		for _, o := range orders {
			delete(b.tracked, o.ID)
		}
	}
	b.clearPending()
}

// UpdateOrders folds exchange reports into tracked orders. Reports carrying a
// fresh id under an old key are replacements (cancel-and-replace repricing)
// and swap the tracked order wholesale.
func (b *baseStrategy) UpdateOrders(reports map[uuid.UUID]*models.Order) {
	for id, report := range reports {
		local, ok := b.tracked[id]
		if !ok {
			continue
		}
		if report.ID != id {
			delete(b.tracked, id)
			b.tracked[report.ID] = report
			continue
		}
		if err := local.ApplyReport(report); err != nil {
			b.logger.WithError(err).WithField("order_id", id).Warn("rejecting order report")
		}
	}
}

// UnmatchedOrders returns tracked orders still live on an exchange.
func (b *baseStrategy) UnmatchedOrders() map[models.ExchangeID][]*models.Order {
	out := make(map[models.ExchangeID][]*models.Order)
	for _, o := range b.tracked {
		if o.Unmatched() {
			out[o.ExchangeID] = append(out[o.ExchangeID], o)
		}
	}
	return out
}

// untrackAll clears tracked orders, used when a cycle completes and the
// strategy reverts to opportunity detection.
func (b *baseStrategy) untrackAll() {
	b.tracked = make(map[uuid.UUID]*models.Order)
}

// profitable reports whether backing at backPrice on one exchange and laying
// at layPrice on the other clears both commissions.
func profitable(backPrice, layPrice, commissionBack, commissionLay float64) bool {
	return backPrice > layPrice/((1-commissionBack)*(1-commissionLay))
}

// crossStakes sizes the back/lay pair for a cross-exchange opportunity. The
// ratio converts back stake to the lay stake that levels the position after
// back-side commission; the back stake is floored so both legs clear their
// exchange minimums. Both stakes come back rounded to 2 decimal places.
func crossStakes(backPrice, layPrice, commissionBack, minBack, minLay float64) (backStake, layStake float64) {
	ratio := (backPrice / layPrice) * (1 - commissionBack)
	backStake = math.Max(minBack, minLay/ratio)
	backStake = models.RoundStake(backStake)
	layStake = models.RoundStake(backStake * ratio)
	if layStake < minLay {
		layStake = minLay
	}
	return backStake, layStake
}

// neutralLayStake sizes the lay leg of a market-making pair so the position
// is odds-neutral whichever side wins.
func neutralLayStake(backStake, backPrice, layPrice float64) float64 {
	return models.RoundStake(backStake * (1 + backPrice) / (1 + layPrice))
}
