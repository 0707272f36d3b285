// Package strategy defines the pluggable evaluation contract a solver uses
// to decide whether a candidate execution is worth submitting. Concrete
// strategies are selected by name at startup, never discovered dynamically.
package strategy

import (
	"fmt"
	"math/big"
	"time"

	"github.com/intentswap-hq/solver/pkg/fixedpoint"
	"github.com/intentswap-hq/solver/pkg/models"
	"github.com/intentswap-hq/solver/pkg/pricing"
)

// Strategy is the contract every solver strategy satisfies. An error from
// EstimateProfit means "skip this candidate", never "stop the loop".
type Strategy interface {
	// EstimateProfit returns the signed expected profit of executing the
	// solution, positive meaning profitable in the baseline unit.
	EstimateProfit(intent *models.Intent, solution models.Solution) (*big.Int, error)

	// MeetsMinOutput reports whether the solution satisfies the intent's
	// minimum output floor. An absent floor is always satisfied.
	MeetsMinOutput(intent *models.Intent, solution models.Solution) bool

	// IsExpired reports whether the intent deadline has passed.
	IsExpired(intent *models.Intent, now time.Time) bool
}

// Names of the registered strategies.
const (
	NameBaseline = "baseline"
	NameSpread   = "spread"
)

// New returns the strategy registered under the given name.
func New(name string, quotes *pricing.QuoteCache) (Strategy, error) {
	switch name {
	case NameBaseline:
		return &BaselineStrategy{}, nil
	case NameSpread:
		return &SpreadStrategy{Quotes: quotes}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", name)
	}
}

// BaselineStrategy is the reference implementation: profit is simply the
// output amount minus the committed input amount, both treated as being in
// a common unit.
type BaselineStrategy struct{}

var _ Strategy = (*BaselineStrategy)(nil)

func (s *BaselineStrategy) EstimateProfit(intent *models.Intent, solution models.Solution) (*big.Int, error) {
	if solution.OutputAmount == nil {
		return nil, fmt.Errorf("solution has no output amount")
	}
	return new(big.Int).Sub(solution.OutputAmount, intent.InputAmount), nil
}

func (s *BaselineStrategy) MeetsMinOutput(intent *models.Intent, solution models.Solution) bool {
	return fixedpoint.MeetsMinOutput(solution.OutputAmount, intent.MinOutputAmount)
}

func (s *BaselineStrategy) IsExpired(intent *models.Intent, now time.Time) bool {
	return now.After(intent.Deadline)
}

// SpreadStrategy values both legs through cached reference prices so assets
// with different quote values compare correctly, and charges the estimated
// gas against the profit. Prices come from the quote cache in basis points
// of the quote asset per whole token.
type SpreadStrategy struct {
	Quotes *pricing.QuoteCache

	// GasCost is the estimated cost per unit of gas, denominated in the
	// quote asset. Nil means gas is not charged.
	GasCost *big.Int
}

var _ Strategy = (*SpreadStrategy)(nil)

func (s *SpreadStrategy) EstimateProfit(intent *models.Intent, solution models.Solution) (*big.Int, error) {
	if solution.OutputAmount == nil {
		return nil, fmt.Errorf("solution has no output amount")
	}

	inValue, err := s.value(intent.InputToken.Hex(), intent.InputAmount, intent.InputDecimals)
	if err != nil {
		return nil, err
	}
	outValue, err := s.value(intent.OutputToken.Hex(), solution.OutputAmount, intent.OutputDecimals)
	if err != nil {
		return nil, err
	}

	profit := new(big.Int).Sub(outValue, inValue)
	if s.GasCost != nil && solution.GasEstimate > 0 {
		gas := new(big.Int).Mul(s.GasCost, new(big.Int).SetUint64(solution.GasEstimate))
		profit.Sub(profit, gas)
	}
	return profit, nil
}

// value converts a raw token amount into the quote asset:
// amount * priceBps / 10^decimals, floored.
func (s *SpreadStrategy) value(tokenID string, amount *big.Int, decimals uint8) (*big.Int, error) {
	priceBps, ok := s.Quotes.Get(tokenID)
	if !ok {
		return nil, fmt.Errorf("no reference price for token %s", tokenID)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	value := new(big.Int).Mul(amount, priceBps)
	return value.Div(value, scale), nil
}

func (s *SpreadStrategy) MeetsMinOutput(intent *models.Intent, solution models.Solution) bool {
	return fixedpoint.MeetsMinOutput(solution.OutputAmount, intent.MinOutputAmount)
}

func (s *SpreadStrategy) IsExpired(intent *models.Intent, now time.Time) bool {
	return now.After(intent.Deadline)
}
