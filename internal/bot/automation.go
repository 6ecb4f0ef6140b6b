package bot

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/models"
	"github.com/yourusername/cross-book/internal/repository"
	"github.com/yourusername/cross-book/internal/strategy"
)

// Automation adjusts the strategy group between ticks: spawning strategies
// for upcoming markets, feeding them time-to-live, retiring finished ones.
type Automation interface {
	Name() string

	// Run is called once per engine tick before reconciliation.
	Run(ctx context.Context, tick int64) error
}

// MarketAutomationConfig controls which strategies the market automation
// spawns and with what parameters.
type MarketAutomationConfig struct {
	// Lookahead is how far before its start time a market becomes eligible.
	Lookahead time.Duration

	// Linger keeps strategies alive this long past the market start.
	Linger time.Duration

	// TickInterval converts wall-clock time to engine ticks for close-out.
	TickInterval time.Duration

	CrossEnabled bool
	MakerEnabled bool

	Cross strategy.CrossExchangeConfig
	Maker strategy.MarketMakerConfig

	// RefreshEvery rate-limits the repository scan, in ticks.
	RefreshEvery int64
}

// MarketAutomation scans the matched-market mapping for markets starting
// soon, spawns the configured strategies per matched selection and retires
// strategies once finished. It also keeps every member's time-to-live in
// step with its market's start time.
type MarketAutomation struct {
	group   *strategy.Group
	matches repository.MatchRepository
	cfg     MarketAutomationConfig
	logger  *logrus.Entry

	// startTimes remembers each spawned strategy's market start so ttl can
	// be refreshed without another repository scan.
	startTimes map[string]time.Time
}

// NewMarketAutomation creates the market automation.
func NewMarketAutomation(group *strategy.Group, matches repository.MatchRepository, cfg MarketAutomationConfig, logger *logrus.Entry) *MarketAutomation {
	if cfg.RefreshEvery < 1 {
		cfg.RefreshEvery = 1
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &MarketAutomation{
		group:      group,
		matches:    matches,
		cfg:        cfg,
		logger:     logger.WithField("component", "market_automation"),
		startTimes: make(map[string]time.Time),
	}
}

func (a *MarketAutomation) Name() string { return "market" }

// Run retires finished strategies, refreshes time-to-live and periodically
// rescans the repository for new markets.
func (a *MarketAutomation) Run(ctx context.Context, tick int64) error {
	now := time.Now()
	a.retire(now)
	a.refreshTTL(now)

	if tick%a.cfg.RefreshEvery != 0 {
		return nil
	}
	return a.spawn(ctx, now)
}

// retire removes finished strategies from the group. Their names stay in
// startTimes until the market leaves the rescan window, so a retired
// strategy is not respawned by the next scan.
func (a *MarketAutomation) retire(now time.Time) {
	for _, s := range a.group.Strategies() {
		if !s.Finished() {
			continue
		}
		a.group.Remove(s.Name())
		a.logger.WithField("strategy", s.Name()).Info("retired finished strategy")
	}
	for name, start := range a.startTimes {
		if now.After(start.Add(a.cfg.Linger)) {
			delete(a.startTimes, name)
		}
	}
}

// refreshTTL recomputes each strategy's remaining lifetime in ticks from its
// market start time plus the linger window.
func (a *MarketAutomation) refreshTTL(now time.Time) {
	for _, s := range a.group.Strategies() {
		start, ok := a.startTimes[s.Name()]
		if !ok {
			continue
		}
		deadline := start.Add(a.cfg.Linger)
		ticks := int(deadline.Sub(now) / a.cfg.TickInterval)
		if ticks < 0 {
			ticks = 0
		}
		s.SetTicksToLive(ticks)
	}
}

func (a *MarketAutomation) spawn(ctx context.Context, now time.Time) error {
	markets, err := a.matches.GetUpcoming(ctx, now.Add(-a.cfg.Linger), now.Add(a.cfg.Lookahead))
	if err != nil {
		return err
	}

	for _, m := range markets {
		for _, sel := range m.Selections {
			bdaqKey := models.SelectionKey{MarketID: m.BdaqMarketID, SelectionID: sel.BdaqSelectionID}
			bfKey := models.SelectionKey{MarketID: m.BfMarketID, SelectionID: sel.BfSelectionID}

			if a.cfg.CrossEnabled {
				a.add(strategy.NewCrossExchange(bdaqKey, bfKey, a.cfg.Cross, a.logger), m)
			}
			if a.cfg.MakerEnabled {
				a.add(strategy.NewDualMaker(bdaqKey, bfKey, a.cfg.Maker, a.logger), m)
			}
		}
	}
	return nil
}

// add registers a strategy unless one with the same name is already active,
// so a rescan never resets a live state machine.
func (a *MarketAutomation) add(s strategy.Strategy, m *models.MatchedMarket) {
	if _, exists := a.startTimes[s.Name()]; exists {
		return
	}
	a.startTimes[s.Name()] = m.StartTime
	a.group.Add(s)
	a.logger.WithFields(logrus.Fields{
		"strategy": s.Name(),
		"market":   m.Name,
		"start":    m.StartTime,
	}).Info("spawned strategy")
}
