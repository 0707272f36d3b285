package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/intentswap-hq/solver/pkg/logger"
	"github.com/intentswap-hq/solver/pkg/models"
)

// routeResponse is the quote payload returned by the routing API.
type routeResponse struct {
	OutputAmount string   `json:"output_amount"`
	Route        []string `json:"route"`
	GasEstimate  uint64   `json:"gas_estimate"`
}

// RouterQuoter fetches candidate executions from an external routing API.
type RouterQuoter struct {
	httpClient *http.Client
	endpoint   string
	logger     logger.Logger
}

var _ Quoter = (*RouterQuoter)(nil)

// NewRouterQuoter creates a quoter backed by the routing API at endpoint.
func NewRouterQuoter(endpoint string, log logger.Logger) *RouterQuoter {
	return &RouterQuoter{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		endpoint: endpoint,
		logger:   log,
	}
}

// Quote asks the routing API for the best execution of inputAmount of the
// intent's input token into its output token.
func (q *RouterQuoter) Quote(ctx context.Context, intent *models.Intent, inputAmount *big.Int) (models.Solution, error) {
	params := url.Values{}
	params.Set("token_in", intent.InputToken.Hex())
	params.Set("token_out", intent.OutputToken.Hex())
	params.Set("amount_in", inputAmount.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.endpoint+"/v1/quote?"+params.Encode(), nil)
	if err != nil {
		return models.Solution{}, fmt.Errorf("failed to build quote request: %v", err)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return models.Solution{}, fmt.Errorf("failed to fetch quote: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			q.logger.Error("Failed to close quote response body: %v", closeErr)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Solution{}, fmt.Errorf("failed to read quote response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return models.Solution{}, fmt.Errorf("unexpected status code from router: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var route routeResponse
	if err := json.Unmarshal(bodyBytes, &route); err != nil {
		return models.Solution{}, fmt.Errorf("failed to decode quote: %v, body: %s", err, string(bodyBytes))
	}

	output, ok := new(big.Int).SetString(route.OutputAmount, 10)
	if !ok || output.Sign() < 0 {
		return models.Solution{}, fmt.Errorf("invalid output amount in quote: %q", route.OutputAmount)
	}

	solution := models.Solution{
		OutputAmount: output,
		GasEstimate:  route.GasEstimate,
	}
	for _, hop := range route.Route {
		solution.Route = append(solution.Route, common.HexToAddress(hop))
	}
	return solution, nil
}
