package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickBelowBdaqBandBoundary(t *testing.T) {
	// 21.0 sits on the floor of the 1.0-increment band; the price below it
	// comes from the 0.5-increment band underneath.
	assert.Equal(t, 20.5, TickBelow(ExchangeBDAQ, 21.0))
}

func TestTickBelowBdaqKnownSteps(t *testing.T) {
	tests := []struct {
		price float64
		want  float64
	}{
		{3.0, 2.99},
		{10.5, 10.4},
		{21.0, 20.5},
		{51.0, 50.0},
		{101.0, 99.0},
		{201.0, 196.0},
		{211.0, 201.0},
		// The 201-anchored band tops out at 991, not 990.
		{1000.0, 991.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TickBelow(ExchangeBDAQ, tt.price), "below %.2f", tt.price)
	}
}

func TestTickAboveBetfairKnownSteps(t *testing.T) {
	tests := []struct {
		price float64
		want  float64
	}{
		{1.01, 1.02},
		{1.99, 2.0},
		{2.0, 2.02},
		{3.95, 4.0},
		{6.0, 6.2},
		{9.8, 10.0},
		{10.0, 10.5},
		{19.5, 20.0},
		{20.0, 21.0},
		{95.0, 100.0},
		{990.0, 1000.0},
		{1000.0, 1000.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TickAbove(ExchangeBF, tt.price), "above %.2f", tt.price)
	}
}

func TestTickBelowBetfairKnownSteps(t *testing.T) {
	tests := []struct {
		price float64
		want  float64
	}{
		{1.02, 1.01},
		{2.0, 1.99},
		{2.02, 2.0},
		{4.0, 3.95},
		{10.0, 9.8},
		{10.5, 10.0},
		{1000.0, 990.0},
		{1.0, 1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TickBelow(ExchangeBF, tt.price), "below %.2f", tt.price)
	}
}

// ladderPrices enumerates every price on an exchange ladder.
func ladderPrices(ex ExchangeID) []float64 {
	var prices []float64
	p := MinOdds
	for p < MaxOdds {
		prices = append(prices, p)
		next := TickAbove(ex, p)
		if next <= p {
			break
		}
		p = next
	}
	prices = append(prices, MaxOdds)
	return prices
}

func TestTickLadderMonotonicity(t *testing.T) {
	for _, ex := range Exchanges() {
		prices := ladderPrices(ex)
		require.Greater(t, len(prices), 100, "ladder for %s suspiciously short", ex)

		for i, p := range prices {
			if i > 0 {
				require.Greater(t, p, prices[i-1], "%s ladder not ascending at %.2f", ex, p)
			}
			if p > MinOdds {
				require.Less(t, TickBelow(ex, p), p, "%s TickBelow moved wrong way at %.2f", ex, p)
			}
			if p < MaxOdds {
				require.Greater(t, TickAbove(ex, p), p, "%s TickAbove moved wrong way at %.2f", ex, p)
			}
		}
	}
}

func TestTickRoundTrip(t *testing.T) {
	for _, ex := range Exchanges() {
		for _, p := range ladderPrices(ex) {
			if p <= MinOdds || p >= MaxOdds {
				continue
			}
			assert.Equal(t, p, TickBelow(ex, TickAbove(ex, p)), "%s round trip at %.2f", ex, p)
		}
	}
}
