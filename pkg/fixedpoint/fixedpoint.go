// Package fixedpoint implements the exact integer arithmetic used for
// prices, slippage and amount formatting. All operations work on
// arbitrary-precision integers scaled by each asset's decimal count and
// use truncating (floor) division. The truncation policy matches the
// ledger's own settlement rule: rounding in either direction would change
// who bears the remainder and silently diverge from what settles on-chain.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// BpsDenominator is the basis point scale: 10000 bps = 100%.
const BpsDenominator = 10000

var (
	// ErrDivisionByZero is returned when a price is requested for a zero input amount.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrInvalidSlippage is returned when a slippage tolerance of 100% or more is applied.
	ErrInvalidSlippage = errors.New("invalid slippage: must be below 10000 bps")
)

var bpsDenom = big.NewInt(BpsDenominator)

// pow10 returns 10^n as a big.Int.
func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Price returns the exchange rate in basis points of amountOut per unit of
// amountIn, normalized for the two assets' decimal counts:
//
//	(amountOut * 10^decimalsIn * 10000) / (amountIn * 10^decimalsOut)
//
// Division truncates toward negative infinity.
func Price(amountIn, amountOut *big.Int, decimalsIn, decimalsOut uint8) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() == 0 {
		return nil, ErrDivisionByZero
	}

	numerator := new(big.Int).Mul(amountOut, pow10(decimalsIn))
	numerator.Mul(numerator, bpsDenom)

	denominator := new(big.Int).Mul(amountIn, pow10(decimalsOut))

	return new(big.Int).Div(numerator, denominator), nil
}

// PriceImpactBps returns the impact of an execution versus its expectation
// in basis points: ((expected - actual) * 10000) / expected, floored.
//
// A zero expected output yields 0 rather than an error. Callers must treat
// a zero expectation as a precondition failure upstream; the zero here is a
// defensive default, not a genuine no-impact claim.
func PriceImpactBps(expectedOutput, actualOutput *big.Int) *big.Int {
	if expectedOutput == nil || expectedOutput.Sign() == 0 {
		return big.NewInt(0)
	}

	diff := new(big.Int).Sub(expectedOutput, actualOutput)
	diff.Mul(diff, bpsDenom)
	return diff.Div(diff, expectedOutput)
}

// MeetsMinOutput reports whether an actual output satisfies the intent's
// minimum output floor. An absent floor (nil) is always satisfied.
func MeetsMinOutput(actualOutput, minOutput *big.Int) bool {
	if minOutput == nil {
		return true
	}
	return actualOutput.Cmp(minOutput) >= 0
}

// ApplySlippage reduces an amount by a slippage tolerance expressed in
// basis points: amount * (10000 - slippageBps) / 10000, floored.
func ApplySlippage(amount *big.Int, slippageBps int64) (*big.Int, error) {
	if slippageBps < 0 || slippageBps >= BpsDenominator {
		return nil, fmt.Errorf("%w: got %d bps", ErrInvalidSlippage, slippageBps)
	}

	result := new(big.Int).Mul(amount, big.NewInt(BpsDenominator-slippageBps))
	return result.Div(result, bpsDenom), nil
}

// FormatAmount renders a raw integer amount as a decimal string. The
// fractional part is zero-padded to the asset's full decimal count and then
// truncated, never rounded, to displayDecimals digits.
func FormatAmount(amount *big.Int, decimals, displayDecimals uint8) string {
	negative := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)

	whole, frac := new(big.Int).DivMod(abs, pow10(decimals), new(big.Int))

	sign := ""
	if negative {
		sign = "-"
	}

	if displayDecimals == 0 {
		return sign + whole.String()
	}

	fracStr := frac.String()
	if pad := int(decimals) - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	if len(fracStr) > int(displayDecimals) {
		fracStr = fracStr[:displayDecimals]
	}

	return sign + whole.String() + "." + fracStr
}

// ParseAmount is the inverse of FormatAmount: it converts a decimal string
// into a raw integer amount at the given decimal scale. Fractional input is
// zero-padded on the right to the full decimal count, and truncated without
// rounding if longer.
func ParseAmount(text string, decimals uint8) (*big.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(text, "-") {
		negative = true
		text = text[1:]
	}

	wholeStr, fracStr, _ := strings.Cut(text, ".")
	if wholeStr == "" {
		wholeStr = "0"
	}

	whole, ok := new(big.Int).SetString(wholeStr, 10)
	if !ok || whole.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %q", text)
	}

	// Pad or truncate the fractional digits to the asset's scale.
	if len(fracStr) > int(decimals) {
		fracStr = fracStr[:decimals]
	}
	for len(fracStr) < int(decimals) {
		fracStr += "0"
	}

	result := new(big.Int).Mul(whole, pow10(decimals))
	if fracStr != "" {
		frac, ok := new(big.Int).SetString(fracStr, 10)
		if !ok {
			return nil, fmt.Errorf("invalid fractional part: %q", text)
		}
		result.Add(result, frac)
	}

	if negative {
		result.Neg(result)
	}
	return result, nil
}
