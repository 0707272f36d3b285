package schedule

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentswap-hq/solver/pkg/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func dcaIntent(t *testing.T, amountPerPeriod int64, totalPeriods int, interval time.Duration) *models.Intent {
	t.Helper()

	deadline := t0.Add(24 * time.Hour)
	windows, err := DCAWindows(DCAParams{
		AmountPerPeriod: big.NewInt(amountPerPeriod),
		TotalPeriods:    totalPeriods,
		Interval:        interval,
		CreatedAt:       t0,
		Deadline:        deadline,
	})
	require.NoError(t, err)

	return &models.Intent{
		ID:          1,
		Type:        models.IntentTypeDCA,
		InputAmount: new(big.Int).Mul(big.NewInt(amountPerPeriod), big.NewInt(int64(totalPeriods))),
		Deadline:    deadline,
		Schedule:    windows,
		Status:      models.StatusPending,
		CreatedAt:   t0,
	}
}

func TestDCAWindowAmountsSum(t *testing.T) {
	windows, err := DCAWindows(DCAParams{
		AmountPerPeriod: big.NewInt(10_000_000),
		TotalPeriods:    2,
		Interval:        10 * time.Second,
		CreatedAt:       t0,
		Deadline:        t0.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, windows, 2)

	sum := new(big.Int).Add(windows[0].AmountForPeriod, windows[1].AmountForPeriod)
	assert.Equal(t, "20000000", sum.String())
	assert.Equal(t, 0, windows[0].PeriodIndex)
	assert.Equal(t, 1, windows[1].PeriodIndex)
	assert.Equal(t, t0, windows[0].EarliestStart)
	assert.Equal(t, t0.Add(10*time.Second), windows[1].EarliestStart)
}

func TestTWAPExactDivisor(t *testing.T) {
	windows, err := TWAPWindows(TWAPParams{
		TotalAmount: big.NewInt(20_000_000),
		NumChunks:   2,
		Interval:    time.Minute,
		StartTime:   t0,
		Deadline:    t0.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, "10000000", windows[0].AmountForPeriod.String())
	assert.Equal(t, "10000000", windows[1].AmountForPeriod.String())
}

func TestTWAPRemainderOnLastChunk(t *testing.T) {
	windows, err := TWAPWindows(TWAPParams{
		TotalAmount: big.NewInt(20_000_001),
		NumChunks:   2,
		Interval:    time.Minute,
		StartTime:   t0,
		Deadline:    t0.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, "10000000", windows[0].AmountForPeriod.String())
	assert.Equal(t, "10000001", windows[1].AmountForPeriod.String())
}

func TestTWAPChunksAlwaysSumToTotal(t *testing.T) {
	totals := []int64{1, 7, 99, 1_000_003, 20_000_001}
	for _, total := range totals {
		windows, err := TWAPWindows(TWAPParams{
			TotalAmount: big.NewInt(total),
			NumChunks:   7,
			Interval:    time.Minute,
			StartTime:   t0,
			Deadline:    t0.Add(time.Hour),
		})
		require.NoError(t, err)

		sum := new(big.Int)
		for _, w := range windows {
			sum.Add(sum, w.AmountForPeriod)
		}
		assert.Equal(t, big.NewInt(total).String(), sum.String(), "total %d", total)
	}
}

func TestNextEligibleWindowOnlyFirstAtCreation(t *testing.T) {
	intent := dcaIntent(t, 10_000_000, 2, 10*time.Second)

	window := NextEligibleWindow(intent, t0)
	require.NotNil(t, window)
	assert.Equal(t, 0, window.PeriodIndex)
}

func TestNextEligibleWindowNeverSkipsUnfilledPeriod(t *testing.T) {
	intent := dcaIntent(t, 10_000_000, 2, 10*time.Second)

	// Period 1 has opened but period 0 is still unfilled: the decomposer
	// must keep returning period 0, preserving FIFO execution even after
	// solver downtime.
	window := NextEligibleWindow(intent, t0.Add(10*time.Second))
	require.NotNil(t, window)
	assert.Equal(t, 0, window.PeriodIndex)

	window = NextEligibleWindow(intent, t0.Add(10*time.Minute))
	require.NotNil(t, window)
	assert.Equal(t, 0, window.PeriodIndex)
}

func TestNextEligibleWindowAdvancesAfterFill(t *testing.T) {
	intent := dcaIntent(t, 10_000_000, 2, 10*time.Second)
	period0 := 0
	require.NoError(t, intent.RecordFill(models.Fill{
		PeriodIndex:    &period0,
		AmountFilled:   big.NewInt(10_000_000),
		AmountReceived: big.NewInt(9_990_000),
		ExecutedAt:     t0.Add(time.Second),
	}))

	// Period 1 not yet open
	assert.Nil(t, NextEligibleWindow(intent, t0.Add(5*time.Second)))

	window := NextEligibleWindow(intent, t0.Add(10*time.Second))
	require.NotNil(t, window)
	assert.Equal(t, 1, window.PeriodIndex)
}

func TestNextEligibleWindowSkipsRevertedFill(t *testing.T) {
	intent := dcaIntent(t, 10_000_000, 2, 10*time.Second)
	period0 := 0
	intent.Fills = append(intent.Fills, models.Fill{
		PeriodIndex:  &period0,
		AmountFilled: big.NewInt(10_000_000),
		Reverted:     true,
	})

	// A reverted fill does not consume the window.
	window := NextEligibleWindow(intent, t0.Add(time.Second))
	require.NotNil(t, window)
	assert.Equal(t, 0, window.PeriodIndex)
}

func TestNextEligibleWindowPastDeadline(t *testing.T) {
	intent := dcaIntent(t, 10_000_000, 2, 10*time.Second)
	assert.Nil(t, NextEligibleWindow(intent, intent.Deadline.Add(time.Second)))
}

func TestNextEligibleWindowAllFilled(t *testing.T) {
	intent := dcaIntent(t, 10_000_000, 2, 10*time.Second)
	for k := 0; k < 2; k++ {
		period := k
		require.NoError(t, intent.RecordFill(models.Fill{
			PeriodIndex:  &period,
			AmountFilled: big.NewInt(10_000_000),
		}))
	}
	assert.Nil(t, NextEligibleWindow(intent, t0.Add(time.Minute)))
}

func TestImplicitWindowForAtomicIntent(t *testing.T) {
	intent := &models.Intent{
		ID:          7,
		Type:        models.IntentTypeSwap,
		InputAmount: big.NewInt(5_000_000),
		Deadline:    t0.Add(time.Hour),
		CreatedAt:   t0,
	}

	window := ImplicitWindow(intent)
	assert.Equal(t, 0, window.PeriodIndex)
	assert.Equal(t, "5000000", window.AmountForPeriod.String())
	assert.Equal(t, intent.Deadline, window.LatestEnd)
}

func TestDCAWindowsValidation(t *testing.T) {
	_, err := DCAWindows(DCAParams{AmountPerPeriod: big.NewInt(1), TotalPeriods: 0})
	assert.Error(t, err)

	_, err = DCAWindows(DCAParams{AmountPerPeriod: big.NewInt(0), TotalPeriods: 2})
	assert.Error(t, err)

	_, err = TWAPWindows(TWAPParams{TotalAmount: big.NewInt(1), NumChunks: 0})
	assert.Error(t, err)
}
