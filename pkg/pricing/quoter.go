package pricing

import (
	"context"
	"math/big"

	"github.com/intentswap-hq/solver/pkg/models"
)

// Quoter produces a candidate execution for a slice of an intent. The
// routing backend is an external collaborator; the solver loop only
// consumes the resulting Solution.
type Quoter interface {
	Quote(ctx context.Context, intent *models.Intent, inputAmount *big.Int) (models.Solution, error)
}
