// Package ledger adapts the on-chain settlement contract for the solver:
// intent snapshots, Dutch auction parameters, and signed fill submission.
// The ledger is treated as an opaque, authoritative state machine; nothing
// here second-guesses what it reports.
package ledger

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/intentswap-hq/solver/pkg/auction"
	"github.com/intentswap-hq/solver/pkg/models"
)

// FillRequest describes a fill submission for one intent window.
type FillRequest struct {
	IntentID    uint64
	PeriodIndex *int // nil for atomic intents
	Amount      *big.Int
	MinOutput   *big.Int
}

// Client connects to the settlement ledger over JSON-RPC.
type Client struct {
	rpcURL        string
	bookAddress   common.Address
	eth           *ethclient.Client
	contract      *bind.BoundContract
	bookABI       abi.ABI
	auth          *bind.TransactOpts
	nonces        *NonceManager
	gasMultiplier float64
	maxGasPrice   *big.Int
}

// Dial connects to the ledger RPC and binds the settlement contract. An
// empty private key yields a read-only client.
func Dial(rpcURL string, bookAddress string, privateKeyHex string, gasMultiplier float64, maxGasPrice *big.Int) (*Client, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger RPC: %v", err)
	}

	bookABI, err := getIntentBookABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse intent book ABI: %v", err)
	}

	addr := common.HexToAddress(bookAddress)
	contract := bind.NewBoundContract(addr, bookABI, eth, eth, eth)

	c := &Client{
		rpcURL:        rpcURL,
		bookAddress:   addr,
		eth:           eth,
		contract:      contract,
		bookABI:       bookABI,
		nonces:        NewNonceManager(),
		gasMultiplier: gasMultiplier,
		maxGasPrice:   maxGasPrice,
	}

	if privateKeyHex != "" {
		auth, err := createAuthenticator(eth, privateKeyHex)
		if err != nil {
			return nil, err
		}
		c.auth = auth
	}

	return c, nil
}

// createAuthenticator builds a transaction signer from a hex private key.
func createAuthenticator(eth *ethclient.Client, privateKeyHex string) (*bind.TransactOpts, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}

	chainID, err := eth.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %v", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %v", err)
	}

	return auth, nil
}

// SignerAddress returns the solver identity used for submissions.
func (c *Client) SignerAddress() common.Address {
	if c.auth == nil {
		return common.Address{}
	}
	return c.auth.From
}

// Connected reports whether the RPC client is live.
func (c *Client) Connected() bool {
	return c.eth != nil
}

// Nonces exposes the nonce manager for the recovery job.
func (c *Client) Nonces() *NonceManager {
	return c.nonces
}

// BlockNumber returns the latest block number seen by the RPC node.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.eth.BlockNumber(timeoutCtx)
}

// RPCURL returns the endpoint the client was dialed against.
func (c *Client) RPCURL() string {
	return c.rpcURL
}

// BookAddress returns the settlement contract address.
func (c *Client) BookAddress() common.Address {
	return c.bookAddress
}

// rawIntent mirrors the contract's intent tuple layout.
type rawIntent struct {
	Id              *big.Int
	IntentType      uint8
	InputToken      common.Address
	OutputToken     common.Address
	InputDecimals   uint8
	OutputDecimals  uint8
	InputAmount     *big.Int
	MinOutputAmount *big.Int
	HasMinOutput    bool
	Deadline        *big.Int
	AuctionType     uint8
	Status          uint8
	CreatedAt       *big.Int
}

// rawWindow mirrors the contract's schedule window tuple layout.
type rawWindow struct {
	PeriodIndex     *big.Int
	EarliestStart   *big.Int
	LatestEnd       *big.Int
	AmountForPeriod *big.Int
}

// rawFill mirrors the contract's fill tuple layout.
type rawFill struct {
	PeriodIndex    *big.Int
	HasPeriod      bool
	AmountFilled   *big.Int
	AmountReceived *big.Int
	Solver         common.Address
	ExecutedAt     *big.Int
	Reverted       bool
}

var intentTypeCodes = [...]models.IntentType{
	models.IntentTypeSwap,
	models.IntentTypeLimitOrder,
	models.IntentTypeTWAP,
	models.IntentTypeDCA,
}

var auctionTypeCodes = [...]models.AuctionType{
	models.AuctionTypeSealedBid,
	models.AuctionTypeDutch,
}

var statusCodes = [...]models.IntentStatus{
	models.StatusPending,
	models.StatusPartiallyFilled,
	models.StatusFilled,
	models.StatusCancelled,
	models.StatusExpired,
}

// GetTotalIntents returns the ledger's monotonically assigned intent count.
func (c *Client) GetTotalIntents(ctx context.Context) (uint64, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "getTotalIntents"); err != nil {
		return 0, fmt.Errorf("getTotalIntents call failed: %v", err)
	}
	if len(out) == 0 || out[0] == nil {
		return 0, fmt.Errorf("empty result from getTotalIntents")
	}

	total := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return total.Uint64(), nil
}

// GetIntent reads the full current state of an intent, including its
// schedule and fills. This is the fresh snapshot the solver loop re-reads
// immediately before every decision.
func (c *Client) GetIntent(ctx context.Context, id uint64) (*models.Intent, error) {
	opts := &bind.CallOpts{Context: ctx}
	intentID := new(big.Int).SetUint64(id)

	var out []interface{}
	if err := c.contract.Call(opts, &out, "getIntent", intentID); err != nil {
		return nil, fmt.Errorf("getIntent(%d) call failed: %v", id, err)
	}
	if len(out) == 0 || out[0] == nil {
		return nil, fmt.Errorf("empty result from getIntent(%d)", id)
	}
	raw := *abi.ConvertType(out[0], new(rawIntent)).(*rawIntent)

	intent, err := decodeIntent(raw)
	if err != nil {
		return nil, fmt.Errorf("intent %d: %v", id, err)
	}

	if intent.Type.Scheduled() {
		var scheduleOut []interface{}
		if err := c.contract.Call(opts, &scheduleOut, "getSchedule", intentID); err != nil {
			return nil, fmt.Errorf("getSchedule(%d) call failed: %v", id, err)
		}
		if len(scheduleOut) > 0 && scheduleOut[0] != nil {
			rawWindows := *abi.ConvertType(scheduleOut[0], new([]rawWindow)).(*[]rawWindow)
			for _, w := range rawWindows {
				intent.Schedule = append(intent.Schedule, models.ScheduleWindow{
					PeriodIndex:     int(w.PeriodIndex.Int64()),
					EarliestStart:   time.Unix(w.EarliestStart.Int64(), 0).UTC(),
					LatestEnd:       time.Unix(w.LatestEnd.Int64(), 0).UTC(),
					AmountForPeriod: w.AmountForPeriod,
				})
			}
		}
	}

	var fillsOut []interface{}
	if err := c.contract.Call(opts, &fillsOut, "getFills", intentID); err != nil {
		return nil, fmt.Errorf("getFills(%d) call failed: %v", id, err)
	}
	if len(fillsOut) > 0 && fillsOut[0] != nil {
		rawFills := *abi.ConvertType(fillsOut[0], new([]rawFill)).(*[]rawFill)
		for _, f := range rawFills {
			fill := models.Fill{
				AmountFilled:   f.AmountFilled,
				AmountReceived: f.AmountReceived,
				Solver:         f.Solver,
				ExecutedAt:     time.Unix(f.ExecutedAt.Int64(), 0).UTC(),
				Reverted:       f.Reverted,
			}
			if f.HasPeriod {
				period := int(f.PeriodIndex.Int64())
				fill.PeriodIndex = &period
			}
			intent.Fills = append(intent.Fills, fill)
		}
	}

	return intent, nil
}

// decodeIntent maps the contract tuple into the model type.
func decodeIntent(raw rawIntent) (*models.Intent, error) {
	if int(raw.IntentType) >= len(intentTypeCodes) {
		return nil, fmt.Errorf("unknown intent type code %d", raw.IntentType)
	}
	if int(raw.AuctionType) >= len(auctionTypeCodes) {
		return nil, fmt.Errorf("unknown auction type code %d", raw.AuctionType)
	}
	if int(raw.Status) >= len(statusCodes) {
		return nil, fmt.Errorf("unknown status code %d", raw.Status)
	}

	intent := &models.Intent{
		ID:             raw.Id.Uint64(),
		Type:           intentTypeCodes[raw.IntentType],
		InputToken:     raw.InputToken,
		OutputToken:    raw.OutputToken,
		InputDecimals:  raw.InputDecimals,
		OutputDecimals: raw.OutputDecimals,
		InputAmount:    raw.InputAmount,
		Deadline:       time.Unix(raw.Deadline.Int64(), 0).UTC(),
		AuctionType:    auctionTypeCodes[raw.AuctionType],
		Status:         statusCodes[raw.Status],
		CreatedAt:      time.Unix(raw.CreatedAt.Int64(), 0).UTC(),
	}
	if raw.HasMinOutput {
		intent.MinOutputAmount = raw.MinOutputAmount
	}
	return intent, nil
}

// GetDutchAuction reads the price curve parameters for a Dutch intent.
func (c *Client) GetDutchAuction(ctx context.Context, id uint64) (auction.DutchCurve, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(opts, &out, "getDutchAuction", new(big.Int).SetUint64(id)); err != nil {
		return auction.DutchCurve{}, fmt.Errorf("getDutchAuction(%d) call failed: %v", id, err)
	}
	if len(out) < 4 {
		return auction.DutchCurve{}, fmt.Errorf("short result from getDutchAuction(%d)", id)
	}

	startTime := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	endTime := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	startPrice := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)
	floorPrice := *abi.ConvertType(out[3], new(*big.Int)).(**big.Int)

	return auction.DutchCurve{
		StartTime:  time.Unix(startTime.Int64(), 0).UTC(),
		EndTime:    time.Unix(endTime.Int64(), 0).UTC(),
		StartPrice: startPrice,
		FloorPrice: floorPrice,
	}, nil
}

// UpdateGasPrice refreshes the signer's gas price from the network,
// applying the configured multiplier and ceiling.
func (c *Client) UpdateGasPrice(ctx context.Context) (*big.Int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gasPrice, err := c.eth.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	// Apply gas multiplier (e.g. 1.1 = 10% buffer)
	multiplied := new(big.Float).Mul(
		new(big.Float).SetInt(gasPrice),
		big.NewFloat(c.gasMultiplier),
	)
	finalGasPrice := new(big.Int)
	multiplied.Int(finalGasPrice)

	if c.maxGasPrice != nil && finalGasPrice.Cmp(c.maxGasPrice) > 0 {
		finalGasPrice.Set(c.maxGasPrice)
	}

	if c.auth != nil {
		c.auth.GasPrice = finalGasPrice
	}

	return finalGasPrice, nil
}

// SubmitFill sends a signed fill transaction and waits for it to be mined.
// Nonce allocation goes through the nonce manager, which exclusively owns
// the signer's sequence for this process.
func (c *Client) SubmitFill(ctx context.Context, req FillRequest) (common.Hash, error) {
	if c.auth == nil {
		return common.Hash{}, fmt.Errorf("client is read-only: no signing key configured")
	}

	nonce, err := c.nonces.GetNonce(ctx, c.eth, c.auth.From)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce for fill: %v", err)
	}

	txOpts := *c.auth
	txOpts.Context = ctx
	txOpts.Nonce = new(big.Int).SetUint64(nonce)

	periodIndex := big.NewInt(0)
	hasPeriod := false
	if req.PeriodIndex != nil {
		periodIndex = big.NewInt(int64(*req.PeriodIndex))
		hasPeriod = true
	}

	minOutput := req.MinOutput
	if minOutput == nil {
		minOutput = big.NewInt(0)
	}

	tx, err := c.contract.Transact(&txOpts, "submitFill",
		new(big.Int).SetUint64(req.IntentID), periodIndex, hasPeriod, req.Amount, minOutput)
	if err != nil {
		c.nonces.ReuseNonce(nonce)
		return common.Hash{}, fmt.Errorf("failed to submit fill for intent %d: %v", req.IntentID, err)
	}

	c.nonces.TrackTransaction(tx.Hash(), nonce)
	log.Printf("Fill transaction sent for intent %d: %s (nonce: %d)", req.IntentID, tx.Hash().Hex(), nonce)

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		c.nonces.MarkTransactionFailed(nonce)
		return common.Hash{}, fmt.Errorf("failed to wait for fill transaction: %v", err)
	}

	if receipt.Status == 0 {
		c.nonces.MarkTransactionFailed(nonce)
		return common.Hash{}, fmt.Errorf("fill transaction reverted for intent %d: %s", req.IntentID, tx.Hash().Hex())
	}

	c.nonces.MarkTransactionConfirmed(nonce)
	log.Printf("Fill confirmed for intent %d: %s (gas used: %d)", req.IntentID, tx.Hash().Hex(), receipt.GasUsed)
	return tx.Hash(), nil
}

// SyncNonces re-synchronizes the local nonce sequence with the chain.
func (c *Client) SyncNonces(ctx context.Context) error {
	if c.auth == nil {
		return nil
	}
	return c.nonces.SyncWithChain(ctx, c.eth, c.auth.From)
}
