package models

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// IntentType identifies how an intent is executed.
type IntentType string

const (
	IntentTypeSwap       IntentType = "SWAP"
	IntentTypeLimitOrder IntentType = "LIMIT_ORDER"
	IntentTypeTWAP       IntentType = "TWAP"
	IntentTypeDCA        IntentType = "DCA"
)

// Scheduled reports whether the intent is split into multiple fill windows.
func (t IntentType) Scheduled() bool {
	return t == IntentTypeTWAP || t == IntentTypeDCA
}

// AuctionType identifies the price discovery mechanism for an intent.
type AuctionType string

const (
	AuctionTypeSealedBid AuctionType = "SEALED_BID"
	AuctionTypeDutch     AuctionType = "DUTCH"
)

// IntentStatus is the lifecycle state of an intent on the ledger.
type IntentStatus string

const (
	StatusPending         IntentStatus = "PENDING"
	StatusPartiallyFilled IntentStatus = "PARTIALLY_FILLED"
	StatusFilled          IntentStatus = "FILLED"
	StatusCancelled       IntentStatus = "CANCELLED"
	StatusExpired         IntentStatus = "EXPIRED"
)

// statusRank orders statuses for the monotonicity check. Terminal states
// share the top rank; an intent never moves between them.
var statusRank = map[IntentStatus]int{
	StatusPending:         0,
	StatusPartiallyFilled: 1,
	StatusFilled:          2,
	StatusCancelled:       2,
	StatusExpired:         2,
}

// Terminal reports whether the status admits no further transitions.
func (s IntentStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusExpired
}

// Actionable reports whether a solver may still act on an intent in this status.
func (s IntentStatus) Actionable() bool {
	return s == StatusPending || s == StatusPartiallyFilled
}

// ScheduleWindow is one fill window of a TWAP or DCA intent.
type ScheduleWindow struct {
	PeriodIndex     int       `json:"period_index"`
	EarliestStart   time.Time `json:"earliest_start"`
	LatestEnd       time.Time `json:"latest_end"`
	AmountForPeriod *big.Int  `json:"amount_for_period"`
}

// Intent is the ledger's record of a user's declarative trade request.
// All fields except Status and Fills are immutable after creation.
type Intent struct {
	ID              uint64           `json:"id"`
	Type            IntentType       `json:"type"`
	InputToken      common.Address   `json:"input_token"`
	OutputToken     common.Address   `json:"output_token"`
	InputDecimals   uint8            `json:"input_decimals"`
	OutputDecimals  uint8            `json:"output_decimals"`
	InputAmount     *big.Int         `json:"input_amount"`
	MinOutputAmount *big.Int         `json:"min_output_amount,omitempty"` // nil means no floor
	Deadline        time.Time        `json:"deadline"`
	AuctionType     AuctionType      `json:"auction_type"`
	Schedule        []ScheduleWindow `json:"schedule,omitempty"` // TWAP/DCA only
	Status          IntentStatus     `json:"status"`
	Fills           []Fill           `json:"fills"`
	CreatedAt       time.Time        `json:"created_at"`
}

// AdvanceStatus applies a status transition, enforcing monotonicity:
// a status never regresses and terminal states are final.
func (i *Intent) AdvanceStatus(next IntentStatus) error {
	if i.Status.Terminal() && next != i.Status {
		return fmt.Errorf("intent %d: status %s is terminal, cannot move to %s", i.ID, i.Status, next)
	}
	if statusRank[next] < statusRank[i.Status] {
		return fmt.Errorf("intent %d: status cannot regress from %s to %s", i.ID, i.Status, next)
	}
	i.Status = next
	return nil
}

// TotalFilled sums the input amounts of all non-reverted fills.
func (i *Intent) TotalFilled() *big.Int {
	total := new(big.Int)
	for _, f := range i.Fills {
		if f.Reverted {
			continue
		}
		total.Add(total, f.AmountFilled)
	}
	return total
}

// PeriodFilled reports whether a non-reverted fill exists for the period.
func (i *Intent) PeriodFilled(periodIndex int) bool {
	for _, f := range i.Fills {
		if f.Reverted || f.PeriodIndex == nil {
			continue
		}
		if *f.PeriodIndex == periodIndex {
			return true
		}
	}
	return false
}

// RecordFill appends a fill and advances the status, verifying that the
// cumulative filled amount never exceeds the committed input amount.
func (i *Intent) RecordFill(fill Fill) error {
	if !i.Status.Actionable() {
		return fmt.Errorf("intent %d: cannot fill in status %s", i.ID, i.Status)
	}
	if fill.PeriodIndex != nil && i.PeriodFilled(*fill.PeriodIndex) {
		return fmt.Errorf("intent %d: period %d already filled", i.ID, *fill.PeriodIndex)
	}

	total := i.TotalFilled()
	total.Add(total, fill.AmountFilled)
	if total.Cmp(i.InputAmount) > 0 {
		return fmt.Errorf("intent %d: fill of %s would exceed input amount %s",
			i.ID, fill.AmountFilled.String(), i.InputAmount.String())
	}

	i.Fills = append(i.Fills, fill)
	if total.Cmp(i.InputAmount) == 0 {
		return i.AdvanceStatus(StatusFilled)
	}
	return i.AdvanceStatus(StatusPartiallyFilled)
}
