package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSelection() *Selection {
	return NewSelection(ExchangeBF, 100, 7, "Trap 7",
		[]PricePoint{{Price: 5.0, Amount: 20}},
		[]PricePoint{{Price: 5.1, Amount: 20}}, 5)
}

func TestNewOrderCopiesSelectionBookkeeping(t *testing.T) {
	sel := testSelection()
	sel.ResetCount = 2
	sel.WithdrawalSeq = 3

	o := NewOrder(sel, SideBack, 5.0, 2.0)

	assert.Equal(t, ExchangeBF, o.ExchangeID)
	assert.Equal(t, int64(100), o.MarketID)
	assert.Equal(t, int64(7), o.SelectionID)
	assert.Equal(t, 2, o.ResetCount)
	assert.Equal(t, 3, o.WithdrawalSeq)
	assert.Equal(t, OrderNotPlaced, o.Status)
	assert.Empty(t, o.Ref)
	require.NoError(t, o.Validate())
}

func TestOrderValidate(t *testing.T) {
	sel := testSelection()

	o := NewOrder(sel, SideBack, 5.0, 0)
	assert.ErrorIs(t, o.Validate(), ErrInvalidStake)

	o = NewOrder(sel, SideLay, 1001.0, 2.0)
	assert.ErrorIs(t, o.Validate(), ErrInvalidPrice)

	o = NewOrder(sel, SideBack, 0.5, 2.0)
	assert.ErrorIs(t, o.Validate(), ErrInvalidPrice)
}

func TestApplyReportAssignsRefOnce(t *testing.T) {
	o := NewOrder(testSelection(), SideBack, 5.0, 2.0)

	require.NoError(t, o.ApplyReport(&Order{Ref: "BF-1", Status: OrderUnmatched, UnmatchedStake: 2.0}))
	assert.Equal(t, "BF-1", o.Ref)
	assert.Equal(t, OrderUnmatched, o.Status)

	err := o.ApplyReport(&Order{Ref: "BF-2", Status: OrderMatched})
	assert.ErrorIs(t, err, ErrRefMismatch)
	assert.Equal(t, "BF-1", o.Ref)
}

func TestApplyReportStatusMonotonic(t *testing.T) {
	o := NewOrder(testSelection(), SideLay, 5.1, 2.0)
	require.NoError(t, o.ApplyReport(&Order{Ref: "BF-9", Status: OrderUnmatched, UnmatchedStake: 2.0}))
	require.NoError(t, o.ApplyReport(&Order{Ref: "BF-9", Status: OrderMatched, MatchedStake: 2.0}))

	err := o.ApplyReport(&Order{Ref: "BF-9", Status: OrderUnmatched})
	assert.ErrorIs(t, err, ErrStatusRegression)
	assert.Equal(t, OrderMatched, o.Status)

	// Cancelled is equally terminal.
	c := NewOrder(testSelection(), SideLay, 5.1, 2.0)
	require.NoError(t, c.ApplyReport(&Order{Status: OrderCancelled}))
	assert.ErrorIs(t, c.ApplyReport(&Order{Status: OrderUnmatched}), ErrStatusRegression)
}

func TestApplyReportTerminalStatesDoNotFlip(t *testing.T) {
	o := NewOrder(testSelection(), SideBack, 5.0, 2.0)
	require.NoError(t, o.ApplyReport(&Order{Ref: "BF-3", Status: OrderMatched, MatchedStake: 2.0}))

	// A matched position cannot turn cancelled, nor the other way round.
	err := o.ApplyReport(&Order{Ref: "BF-3", Status: OrderCancelled})
	assert.ErrorIs(t, err, ErrStatusRegression)
	assert.Equal(t, OrderMatched, o.Status)
	assert.Equal(t, 2.0, o.MatchedStake)

	c := NewOrder(testSelection(), SideLay, 5.1, 2.0)
	require.NoError(t, c.ApplyReport(&Order{Status: OrderCancelled}))
	assert.ErrorIs(t, c.ApplyReport(&Order{Status: OrderMatched, MatchedStake: 2.0}), ErrStatusRegression)
	assert.Equal(t, OrderCancelled, c.Status)

	// Re-reporting the same terminal status is still accepted.
	require.NoError(t, o.ApplyReport(&Order{Ref: "BF-3", Status: OrderMatched, MatchedStake: 2.0}))
}

func TestRoundStake(t *testing.T) {
	assert.Equal(t, 2.35, RoundStake(2.345))
	assert.Equal(t, 2.34, RoundStake(2.344))
	assert.Equal(t, 0.5, RoundStake(0.5))
	assert.Equal(t, 10.0, RoundStake(9.999))
}
