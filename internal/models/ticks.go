package models

import "math"

// tickBand is one segment of an exchange price ladder: prices in [Lo, Hi)
// move in increments of Inc, anchored at Lo.
type tickBand struct {
	Lo, Hi, Inc float64
}

// Betfair price ladder, per the API-NG documentation.
var betfairBands = []tickBand{
	{1.0, 2.0, 0.01},
	{2.0, 3.0, 0.02},
	{3.0, 4.0, 0.05},
	{4.0, 6.0, 0.1},
	{6.0, 10.0, 0.2},
	{10.0, 20.0, 0.5},
	{20.0, 30.0, 1.0},
	{30.0, 50.0, 2.0},
	{50.0, 100.0, 5.0},
	{100.0, 1000.0, 10.0},
}

// BetDAQ price ladder. Breakpoints differ from Betfair; note the 0.5
// increment band runs up to (not including) 21.0, so the first price below
// 21.0 is 20.5.
var bdaqBands = []tickBand{
	{1.0, 3.0, 0.01},
	{3.0, 4.0, 0.05},
	{4.0, 6.0, 0.1},
	{6.0, 10.5, 0.2},
	{10.5, 21.0, 0.5},
	{21.0, 51.0, 1.0},
	{51.0, 101.0, 2.0},
	{101.0, 201.0, 5.0},
	{201.0, 1000.0, 10.0},
}

func ladderFor(ex ExchangeID) []tickBand {
	if ex == ExchangeBDAQ {
		return bdaqBands
	}
	return betfairBands
}

const tickEps = 1e-9

// snapPrice rounds away the float noise accumulated by band arithmetic.
// All ladder prices are exact multiples of 0.01.
func snapPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

func bandIndex(bands []tickBand, p float64) int {
	for i, b := range bands {
		if p < b.Hi-tickEps {
			return i
		}
	}
	return len(bands) - 1
}

// TickAbove returns the next ladder price strictly above p for the given
// exchange, clamped to MaxOdds.
func TickAbove(ex ExchangeID, p float64) float64 {
	bands := ladderFor(ex)
	if p < bands[0].Lo {
		return bands[0].Lo
	}
	if p >= MaxOdds-tickEps {
		return MaxOdds
	}
	i := bandIndex(bands, p)
	b := bands[i]
	cand := snapPrice(p + b.Inc)
	if cand < b.Hi-tickEps {
		return cand
	}
	if i+1 < len(bands) {
		return bands[i+1].Lo
	}
	return MaxOdds
}

// TickBelow returns the next ladder price strictly below p for the given
// exchange, clamped to MinOdds.
func TickBelow(ex ExchangeID, p float64) float64 {
	bands := ladderFor(ex)
	if p <= MinOdds+tickEps {
		return MinOdds
	}
	i := bandIndex(bands, p)
	b := bands[i]
	// Snap onto the band's anchor grid: bands whose increment does not
	// divide their width evenly (BDAQ 201..1000 by 10) top out short of Hi.
	cand := snapPrice(b.Lo + math.Floor((p-b.Lo-tickEps)/b.Inc)*b.Inc)
	if cand >= b.Lo-tickEps {
		return cand
	}
	if i == 0 {
		return MinOdds
	}
	// p sits on a band floor: the price below is the top of the band
	// underneath, which may use a different increment.
	prev := bands[i-1]
	steps := math.Floor((p - prev.Lo - tickEps) / prev.Inc)
	return snapPrice(prev.Lo + steps*prev.Inc)
}
