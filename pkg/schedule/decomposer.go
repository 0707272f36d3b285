// Package schedule expands multi-period intents (DCA, TWAP) into ordered
// fill windows and selects the window a solver may act on at a given instant.
package schedule

import (
	"fmt"
	"math/big"
	"time"

	"github.com/intentswap-hq/solver/pkg/models"
)

// DCAParams describes a dollar-cost-average schedule: a fixed amount is
// spent every interval, starting at the intent's creation instant.
type DCAParams struct {
	AmountPerPeriod *big.Int
	TotalPeriods    int
	Interval        time.Duration
	CreatedAt       time.Time
	Deadline        time.Time
}

// TWAPParams describes a time-weighted-average-price schedule: a total
// amount is split into near-equal chunks spent every interval.
type TWAPParams struct {
	TotalAmount    *big.Int
	NumChunks      int
	Interval       time.Duration
	MaxSlippageBps int64
	StartTime      time.Time
	Deadline       time.Time
}

// DCAWindows expands a DCA schedule. Window k opens at t0 + k*interval and
// has no hard close other than the intent deadline; every window targets
// exactly AmountPerPeriod.
func DCAWindows(params DCAParams) ([]models.ScheduleWindow, error) {
	if params.TotalPeriods <= 0 {
		return nil, fmt.Errorf("total periods must be positive, got %d", params.TotalPeriods)
	}
	if params.AmountPerPeriod == nil || params.AmountPerPeriod.Sign() <= 0 {
		return nil, fmt.Errorf("amount per period must be positive")
	}

	windows := make([]models.ScheduleWindow, 0, params.TotalPeriods)
	for k := 0; k < params.TotalPeriods; k++ {
		windows = append(windows, models.ScheduleWindow{
			PeriodIndex:     k,
			EarliestStart:   params.CreatedAt.Add(time.Duration(k) * params.Interval),
			LatestEnd:       params.Deadline,
			AmountForPeriod: new(big.Int).Set(params.AmountPerPeriod),
		})
	}
	return windows, nil
}

// TWAPWindows expands a TWAP schedule. Chunk k opens at startTime +
// k*interval and targets totalAmount/numChunks with floor division; the
// last chunk absorbs the remainder so the chunk amounts always sum to
// TotalAmount exactly.
func TWAPWindows(params TWAPParams) ([]models.ScheduleWindow, error) {
	if params.NumChunks <= 0 {
		return nil, fmt.Errorf("chunk count must be positive, got %d", params.NumChunks)
	}
	if params.TotalAmount == nil || params.TotalAmount.Sign() <= 0 {
		return nil, fmt.Errorf("total amount must be positive")
	}

	numChunks := big.NewInt(int64(params.NumChunks))
	base := new(big.Int).Div(params.TotalAmount, numChunks)

	// last = total - base*(n-1)
	last := new(big.Int).Mul(base, big.NewInt(int64(params.NumChunks-1)))
	last.Sub(params.TotalAmount, last)

	windows := make([]models.ScheduleWindow, 0, params.NumChunks)
	for k := 0; k < params.NumChunks; k++ {
		amount := new(big.Int).Set(base)
		if k == params.NumChunks-1 {
			amount.Set(last)
		}
		windows = append(windows, models.ScheduleWindow{
			PeriodIndex:     k,
			EarliestStart:   params.StartTime.Add(time.Duration(k) * params.Interval),
			LatestEnd:       params.Deadline,
			AmountForPeriod: amount,
		})
	}
	return windows, nil
}

// NextEligibleWindow returns the single window a solver may act on at
// instant now, or nil if none is currently eligible.
//
// Selection is strictly FIFO: the candidate is always the lowest period
// index without a non-reverted fill. If that window has not yet opened, or
// the intent deadline has passed, nothing is eligible. The decomposer never
// skips ahead to a later window while an earlier one remains unfilled, even
// if the later window's open time has already passed.
func NextEligibleWindow(intent *models.Intent, now time.Time) *models.ScheduleWindow {
	if now.After(intent.Deadline) {
		return nil
	}

	for i := range intent.Schedule {
		window := &intent.Schedule[i]
		if intent.PeriodFilled(window.PeriodIndex) {
			continue
		}
		if window.EarliestStart.After(now) {
			return nil
		}
		return window
	}
	return nil
}

// ImplicitWindow wraps an atomic intent (swap, limit order) as a single
// window covering its full amount, so the solver loop can treat every
// intent uniformly.
func ImplicitWindow(intent *models.Intent) *models.ScheduleWindow {
	return &models.ScheduleWindow{
		PeriodIndex:     0,
		EarliestStart:   intent.CreatedAt,
		LatestEnd:       intent.Deadline,
		AmountForPeriod: new(big.Int).Set(intent.InputAmount),
	}
}
