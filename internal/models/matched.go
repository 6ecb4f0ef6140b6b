package models

import "time"

// MatchedSelection pairs the two exchanges' ids for the same outcome.
type MatchedSelection struct {
	BdaqSelectionID int64  `db:"bdaq_selection_id" json:"bdaq_selection_id"`
	BfSelectionID   int64  `db:"bf_selection_id" json:"bf_selection_id"`
	Name            string `db:"name" json:"name"`
}

// MatchedMarket is the identity mapping between one market on each exchange,
// produced by the out-of-scope name-matching heuristics and persisted so the
// bot can spawn strategies for it.
type MatchedMarket struct {
	BdaqMarketID int64              `db:"bdaq_market_id" json:"bdaq_market_id"`
	BfMarketID   int64              `db:"bf_market_id" json:"bf_market_id"`
	Name         string             `db:"name" json:"name"`
	StartTime    time.Time          `db:"start_time" json:"start_time"`
	Selections   []MatchedSelection `json:"selections"`
}

// MarketID returns the market id on the given exchange.
func (m *MatchedMarket) MarketID(ex ExchangeID) int64 {
	if ex == ExchangeBDAQ {
		return m.BdaqMarketID
	}
	return m.BfMarketID
}

// AccountBalance is a point-in-time snapshot of exchange account funds.
type AccountBalance struct {
	ExchangeID ExchangeID `db:"exchange_id" json:"exchange_id"`
	Available  float64    `db:"available" json:"available"`
	Exposure   float64    `db:"exposure" json:"exposure"`
	FetchedAt  time.Time  `db:"fetched_at" json:"fetched_at"`
}
