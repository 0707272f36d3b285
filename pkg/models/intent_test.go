package models

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIntent() *Intent {
	return &Intent{
		ID:          1,
		Type:        IntentTypeDCA,
		InputAmount: big.NewInt(20_000_000),
		Deadline:    time.Now().Add(time.Hour),
		Status:      StatusPending,
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	intent := newTestIntent()

	require.NoError(t, intent.AdvanceStatus(StatusPartiallyFilled))
	assert.Error(t, intent.AdvanceStatus(StatusPending))
	assert.Equal(t, StatusPartiallyFilled, intent.Status)
}

func TestTerminalStatusIsFinal(t *testing.T) {
	intent := newTestIntent()

	require.NoError(t, intent.AdvanceStatus(StatusFilled))
	assert.Error(t, intent.AdvanceStatus(StatusPending))
	assert.Error(t, intent.AdvanceStatus(StatusCancelled))
	assert.Equal(t, StatusFilled, intent.Status)

	cancelled := newTestIntent()
	require.NoError(t, cancelled.AdvanceStatus(StatusCancelled))
	assert.Error(t, cancelled.AdvanceStatus(StatusExpired))
}

func TestRecordFillTransitions(t *testing.T) {
	intent := newTestIntent()
	period0 := 0
	period1 := 1

	err := intent.RecordFill(Fill{
		PeriodIndex:    &period0,
		AmountFilled:   big.NewInt(10_000_000),
		AmountReceived: big.NewInt(9_900_000),
		ExecutedAt:     time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyFilled, intent.Status)

	err = intent.RecordFill(Fill{
		PeriodIndex:    &period1,
		AmountFilled:   big.NewInt(10_000_000),
		AmountReceived: big.NewInt(9_850_000),
		ExecutedAt:     time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, intent.Status)
}

func TestRecordFillRejectsDuplicatePeriod(t *testing.T) {
	intent := newTestIntent()
	period0 := 0

	err := intent.RecordFill(Fill{
		PeriodIndex:  &period0,
		AmountFilled: big.NewInt(5_000_000),
	})
	require.NoError(t, err)

	err = intent.RecordFill(Fill{
		PeriodIndex:  &period0,
		AmountFilled: big.NewInt(5_000_000),
	})
	assert.Error(t, err)
	assert.Len(t, intent.Fills, 1)
}

func TestRecordFillRevertedPeriodCanBeRetried(t *testing.T) {
	intent := newTestIntent()
	period0 := 0

	intent.Fills = append(intent.Fills, Fill{
		PeriodIndex:  &period0,
		AmountFilled: big.NewInt(5_000_000),
		Reverted:     true,
	})

	assert.False(t, intent.PeriodFilled(period0))
	err := intent.RecordFill(Fill{
		PeriodIndex:  &period0,
		AmountFilled: big.NewInt(5_000_000),
	})
	assert.NoError(t, err)
}

func TestRecordFillNeverExceedsInputAmount(t *testing.T) {
	intent := newTestIntent()
	period0 := 0

	err := intent.RecordFill(Fill{
		PeriodIndex:  &period0,
		AmountFilled: big.NewInt(20_000_001),
	})
	assert.Error(t, err)
	assert.Empty(t, intent.Fills)
	assert.Equal(t, StatusPending, intent.Status)
}

func TestActionable(t *testing.T) {
	assert.True(t, StatusPending.Actionable())
	assert.True(t, StatusPartiallyFilled.Actionable())
	assert.False(t, StatusFilled.Actionable())
	assert.False(t, StatusCancelled.Actionable())
	assert.False(t, StatusExpired.Actionable())
}
