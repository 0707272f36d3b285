package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Fill is a settled (partial or total) execution against an intent.
type Fill struct {
	PeriodIndex    *int           `json:"period_index,omitempty"` // nil for atomic swap/limit order
	AmountFilled   *big.Int       `json:"amount_filled"`
	AmountReceived *big.Int       `json:"amount_received"`
	Solver         common.Address `json:"solver"`
	ExecutedAt     time.Time      `json:"executed_at"`
	Reverted       bool           `json:"reverted"`
}

// Solution is a solver-proposed candidate execution. It is a pure
// computation input, never persisted.
type Solution struct {
	OutputAmount *big.Int
	Route        []common.Address
	GasEstimate  uint64
}
