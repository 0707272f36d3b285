package ledger

import "errors"

// Rejection reasons reported by the settlement contract. The ledger is the
// single source of truth for fill completion; these let the solver loop
// tell "someone else won" from genuine failures.
var (
	// ErrAlreadyFilled means the window was settled by another solver.
	ErrAlreadyFilled = errors.New("intent window already filled")

	// ErrExpired means the ledger rejected the fill as past the deadline.
	ErrExpired = errors.New("intent expired")

	// ErrSlippageExceeded means the realizable output fell below the
	// fill's declared minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrInsufficientBid means the bid did not clear the auction price.
	ErrInsufficientBid = errors.New("insufficient bid")
)
