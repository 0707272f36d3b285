// Package auction determines which price-discovery mechanism governs an
// intent and whether a candidate solution is currently valid under it.
//
// The resolver's verdict is advisory: it answers "is my candidate valid at
// this instant", never "am I guaranteed to win". The ledger is the sole
// arbiter between concurrently racing solvers via its own atomicity.
package auction

import (
	"fmt"
	"time"

	"github.com/intentswap-hq/solver/pkg/fixedpoint"
	"github.com/intentswap-hq/solver/pkg/models"
)

// State is the resolver's view of an auction's lifecycle.
type State int

const (
	// StateNotStarted means the auction has not opened yet.
	StateNotStarted State = iota
	// StateOpen means solvers may currently act.
	StateOpen
	// StateSettling means bidding has ended and a winner is being determined.
	StateSettling
	// StateClosed means the auction concluded with a settlement.
	StateClosed
	// StateExpired means the intent deadline elapsed before resolution.
	// Reported instead of StateClosed so callers can tell timeout from
	// successful settlement.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateOpen:
		return "OPEN"
	case StateSettling:
		return "SETTLING"
	case StateClosed:
		return "CLOSED"
	case StateExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Resolver tracks the auction mechanism of a single intent.
type Resolver struct {
	intent *models.Intent
	curve  *DutchCurve
	window *SealedBidWindow
	closed bool
}

// NewDutchResolver creates a resolver for a Dutch-auction intent.
func NewDutchResolver(intent *models.Intent, curve DutchCurve) (*Resolver, error) {
	if intent.AuctionType != models.AuctionTypeDutch {
		return nil, fmt.Errorf("intent %d: auction type is %s, not DUTCH", intent.ID, intent.AuctionType)
	}
	if err := curve.Validate(); err != nil {
		return nil, fmt.Errorf("intent %d: %w", intent.ID, err)
	}
	return &Resolver{intent: intent, curve: &curve}, nil
}

// NewSealedBidResolver creates a resolver for a sealed-bid intent.
func NewSealedBidResolver(intent *models.Intent, window SealedBidWindow) (*Resolver, error) {
	if intent.AuctionType != models.AuctionTypeSealedBid {
		return nil, fmt.Errorf("intent %d: auction type is %s, not SEALED_BID", intent.ID, intent.AuctionType)
	}
	if !window.CommitDeadline.Before(window.RevealDeadline) {
		return nil, fmt.Errorf("intent %d: commit deadline must precede reveal deadline", intent.ID)
	}
	return &Resolver{intent: intent, window: &window}, nil
}

// MarkClosed records that a winner's fill settled on the ledger.
func (r *Resolver) MarkClosed() {
	r.closed = true
}

// Status reports the auction state at the given instant. A deadline elapsed
// before settlement is always reported as StateExpired, never StateClosed.
func (r *Resolver) Status(now time.Time) State {
	if r.closed {
		return StateClosed
	}
	if !now.Before(r.intent.Deadline) {
		return StateExpired
	}

	if r.curve != nil {
		// Dutch: open from the curve start until settlement or deadline.
		// Once the curve bottoms out the price simply holds at the floor.
		if now.Before(r.curve.StartTime) {
			return StateNotStarted
		}
		return StateOpen
	}

	switch {
	case now.Before(r.window.StartTime):
		return StateNotStarted
	case now.Before(r.window.CommitDeadline):
		return StateOpen
	case now.Before(r.window.RevealDeadline):
		return StateSettling
	default:
		// Reveal window elapsed with no winner submitted: the intent falls
		// back to expiry handling (or the next eligible window for
		// scheduled intents) at the caller.
		return StateExpired
	}
}

// ValidateCandidate reports whether a candidate solution for the given
// window amount is currently submittable under the intent's auction rules.
func (r *Resolver) ValidateCandidate(solution models.Solution, window *models.ScheduleWindow, now time.Time) (bool, error) {
	if !fixedpoint.MeetsMinOutput(solution.OutputAmount, r.intent.MinOutputAmount) {
		return false, nil
	}

	switch r.Status(now) {
	case StateOpen:
	case StateSettling:
		// Sealed-bid reveal window: committed bids may still settle.
		if r.window == nil {
			return false, nil
		}
	default:
		return false, nil
	}

	if r.curve != nil {
		candidatePrice, err := fixedpoint.Price(
			window.AmountForPeriod,
			solution.OutputAmount,
			r.intent.InputDecimals,
			r.intent.OutputDecimals,
		)
		if err != nil {
			return false, err
		}
		return candidatePrice.Cmp(r.curve.CurrentPrice(now)) >= 0, nil
	}

	// Sealed-bid: price ordering is enforced at reveal, not at commit time.
	return true, nil
}
