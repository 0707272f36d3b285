package auction

import (
	"fmt"
	"math/big"
	"time"
)

// DutchCurve is a linearly decaying price anchored at (StartTime,
// StartPrice) and bottoming out at (EndTime, FloorPrice). Prices are in
// basis points of output per unit input, the same unit fixedpoint.Price
// produces.
type DutchCurve struct {
	StartTime  time.Time
	EndTime    time.Time
	StartPrice *big.Int
	FloorPrice *big.Int
}

// Validate checks the curve's internal consistency.
func (c DutchCurve) Validate() error {
	if c.StartPrice == nil || c.FloorPrice == nil {
		return fmt.Errorf("dutch curve: prices must be set")
	}
	if c.StartPrice.Cmp(c.FloorPrice) < 0 {
		return fmt.Errorf("dutch curve: start price %s below floor %s",
			c.StartPrice.String(), c.FloorPrice.String())
	}
	if !c.StartTime.Before(c.EndTime) {
		return fmt.Errorf("dutch curve: start time must precede end time")
	}
	return nil
}

// CurrentPrice returns the curve price at the given instant:
//
//	startPrice - (startPrice - floorPrice) * (now - startTime) / (endTime - startTime)
//
// clamped to StartPrice before the curve opens and to FloorPrice once
// now >= EndTime. The division truncates, so the price is monotonically
// non-increasing in now.
func (c DutchCurve) CurrentPrice(now time.Time) *big.Int {
	if !now.After(c.StartTime) {
		return new(big.Int).Set(c.StartPrice)
	}
	if !now.Before(c.EndTime) {
		return new(big.Int).Set(c.FloorPrice)
	}

	elapsed := big.NewInt(int64(now.Sub(c.StartTime)))
	duration := big.NewInt(int64(c.EndTime.Sub(c.StartTime)))

	decay := new(big.Int).Sub(c.StartPrice, c.FloorPrice)
	decay.Mul(decay, elapsed)
	decay.Div(decay, duration)

	return decay.Sub(c.StartPrice, decay)
}
