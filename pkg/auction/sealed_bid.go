package auction

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SealedBidWindow holds the commit/reveal timing of a sealed-bid auction.
// Both deadlines are authoritative only to the extent the ledger rejects
// late submissions; the local computation is advisory.
type SealedBidWindow struct {
	StartTime      time.Time
	CommitDeadline time.Time
	RevealDeadline time.Time
}

// Bid is a solver's commitment in a sealed-bid auction, revealed after the
// commit deadline.
type Bid struct {
	Solver       common.Address
	OutputAmount *big.Int
	CommittedAt  time.Time
	RevealedAt   time.Time
	Revealed     bool
}

// ResolveSealedBid picks the winning bid: the highest revealed output among
// bids committed before the commit deadline, ties broken by earliest commit
// timestamp. Returns nil when no qualifying bid was revealed.
func (w SealedBidWindow) ResolveSealedBid(bids []Bid) *Bid {
	var winner *Bid
	for i := range bids {
		bid := &bids[i]
		if !bid.Revealed || bid.OutputAmount == nil {
			continue
		}
		if !bid.CommittedAt.Before(w.CommitDeadline) {
			continue
		}
		if winner == nil {
			winner = bid
			continue
		}
		switch bid.OutputAmount.Cmp(winner.OutputAmount) {
		case 1:
			winner = bid
		case 0:
			if bid.CommittedAt.Before(winner.CommittedAt) {
				winner = bid
			}
		}
	}
	return winner
}
