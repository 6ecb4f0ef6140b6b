// Package models defines the domain entities shared across the bot:
// exchanges, selections with their price ladders, and orders.
package models

// ExchangeID identifies one of the two supported betting exchanges.
type ExchangeID int

const (
	// ExchangeBDAQ is BetDAQ. Order placement is asynchronous: no order
	// reference is returned at submission time, references are correlated
	// later through the changed-orders feed.
	ExchangeBDAQ ExchangeID = 1
	// ExchangeBF is Betfair. Order placement returns a reference synchronously.
	ExchangeBF ExchangeID = 2
)

// Legal odds range on both exchanges. The bounds double as absence
// sentinels: an empty back ladder reads as MinOdds, an empty lay ladder as
// MaxOdds, so profitability comparisons degrade safely when one side of the
// book is empty.
const (
	MinOdds = 1.0
	MaxOdds = 1000.0
)

func (e ExchangeID) String() string {
	switch e {
	case ExchangeBDAQ:
		return "BDAQ"
	case ExchangeBF:
		return "BF"
	default:
		return "UNKNOWN"
	}
}

// Exchanges lists the supported exchange ids in a stable order.
func Exchanges() []ExchangeID {
	return []ExchangeID{ExchangeBDAQ, ExchangeBF}
}

// Other returns the counterpart exchange id.
func (e ExchangeID) Other() ExchangeID {
	if e == ExchangeBDAQ {
		return ExchangeBF
	}
	return ExchangeBDAQ
}
