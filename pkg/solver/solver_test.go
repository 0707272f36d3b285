package solver

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intentswap-hq/solver/pkg/auction"
	"github.com/intentswap-hq/solver/pkg/config"
	"github.com/intentswap-hq/solver/pkg/ledger"
	"github.com/intentswap-hq/solver/pkg/logger"
	"github.com/intentswap-hq/solver/pkg/models"
	"github.com/intentswap-hq/solver/pkg/pricing"
	"github.com/intentswap-hq/solver/pkg/strategy"
	"github.com/intentswap-hq/solver/pkg/txcache"
)

// mockLedger is an in-memory ledger whose SubmitFill enforces the same
// at-most-one-fill-per-window rule as the settlement contract.
type mockLedger struct {
	mu       sync.Mutex
	intents  map[uint64]*models.Intent
	curves   map[uint64]auction.DutchCurve
	fills    []ledger.FillRequest
	getCalls int
	onGet    func(call int, intent *models.Intent)
	nonces   *ledger.NonceManager
}

func newMockLedger(intents ...*models.Intent) *mockLedger {
	m := &mockLedger{
		intents: make(map[uint64]*models.Intent),
		curves:  make(map[uint64]auction.DutchCurve),
		nonces:  ledger.NewNonceManager(),
	}
	for _, intent := range intents {
		m.intents[intent.ID] = intent
	}
	return m
}

func cloneIntent(in *models.Intent) *models.Intent {
	out := *in
	out.Fills = append([]models.Fill(nil), in.Fills...)
	out.Schedule = append([]models.ScheduleWindow(nil), in.Schedule...)
	return &out
}

func (m *mockLedger) GetTotalIntents(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.intents)), nil
}

func (m *mockLedger) GetIntent(_ context.Context, id uint64) (*models.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[id]
	if !ok {
		return nil, fmt.Errorf("intent %d not found", id)
	}
	m.getCalls++
	if m.onGet != nil {
		m.onGet(m.getCalls, intent)
	}
	return cloneIntent(intent), nil
}

func (m *mockLedger) GetDutchAuction(_ context.Context, id uint64) (auction.DutchCurve, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	curve, ok := m.curves[id]
	if !ok {
		return auction.DutchCurve{}, fmt.Errorf("no auction for intent %d", id)
	}
	return curve, nil
}

func (m *mockLedger) SubmitFill(_ context.Context, req ledger.FillRequest) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[req.IntentID]
	if !ok {
		return common.Hash{}, fmt.Errorf("intent %d not found", req.IntentID)
	}

	fill := models.Fill{
		PeriodIndex:    req.PeriodIndex,
		AmountFilled:   req.Amount,
		AmountReceived: req.MinOutput,
		ExecutedAt:     time.Now().UTC(),
	}
	if err := intent.RecordFill(fill); err != nil {
		return common.Hash{}, ledger.ErrAlreadyFilled
	}

	m.fills = append(m.fills, req)
	return common.HexToHash(fmt.Sprintf("0x%02x", len(m.fills))), nil
}

func (m *mockLedger) UpdateGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (m *mockLedger) SyncNonces(_ context.Context) error { return nil }

func (m *mockLedger) Nonces() *ledger.NonceManager { return m.nonces }

type mockQuoter struct {
	output *big.Int
	gas    uint64
	err    error
}

func (q *mockQuoter) Quote(_ context.Context, _ *models.Intent, _ *big.Int) (models.Solution, error) {
	if q.err != nil {
		return models.Solution{}, q.err
	}
	return models.Solution{OutputAmount: new(big.Int).Set(q.output), GasEstimate: q.gas}, nil
}

func newTestService(book Ledger, quoter pricing.Quoter, at time.Time) *Service {
	txs, err := txcache.New(16)
	if err != nil {
		panic(err)
	}
	return &Service{
		config: &config.Config{
			PollingInterval: time.Second,
			WorkerCount:     1,
			SlippageBps:     50,
			MaxRetries:      3,
		},
		logger:      &logger.EmptyLogger{},
		book:        book,
		quoter:      quoter,
		strategy:    &strategy.BaselineStrategy{},
		txs:         txs,
		pendingJobs: make(chan job, 16),
		retryJobs:   make(chan models.RetryJob, 16),
		workers:     1,
		inflight:    make(map[uint64]struct{}),
		terminal:    make(map[uint64]struct{}),
		now:         func() time.Time { return at },
	}
}

func swapIntent(id uint64, now time.Time) *models.Intent {
	return &models.Intent{
		ID:             id,
		Type:           models.IntentTypeSwap,
		InputDecimals:  6,
		OutputDecimals: 6,
		InputAmount:    big.NewInt(1_000_000),
		Deadline:       now.Add(time.Hour),
		AuctionType:    models.AuctionTypeSealedBid,
		Status:         models.StatusPending,
		CreatedAt:      now.Add(-time.Minute),
	}
}

func twapIntent(id uint64, now time.Time) *models.Intent {
	intent := swapIntent(id, now)
	intent.Type = models.IntentTypeTWAP
	intent.Schedule = []models.ScheduleWindow{
		{PeriodIndex: 0, EarliestStart: now.Add(-10 * time.Minute), LatestEnd: intent.Deadline, AmountForPeriod: big.NewInt(500_000)},
		{PeriodIndex: 1, EarliestStart: now.Add(-5 * time.Minute), LatestEnd: intent.Deadline, AmountForPeriod: big.NewInt(500_000)},
	}
	return intent
}

func TestProcessIntentSubmitsFill(t *testing.T) {
	now := time.Now().UTC()
	book := newMockLedger(swapIntent(1, now))
	s := newTestService(book, &mockQuoter{output: big.NewInt(1_010_000)}, now)

	intent, err := s.processIntent(context.Background(), job{intentID: 1})
	require.NoError(t, err)
	require.NotNil(t, intent)

	require.Len(t, book.fills, 1)
	req := book.fills[0]
	assert.Equal(t, uint64(1), req.IntentID)
	assert.Nil(t, req.PeriodIndex, "atomic intents carry no period index")
	assert.Equal(t, "1000000", req.Amount.String())

	// 50 bps of slippage off the quoted output, floored.
	assert.Equal(t, "1004950", req.MinOutput.String())

	_, cached := s.txs.Get(1)
	assert.True(t, cached, "submitted tx hash should be cached")
}

func TestProcessIntentSkipsUnprofitable(t *testing.T) {
	now := time.Now().UTC()
	book := newMockLedger(swapIntent(1, now))
	s := newTestService(book, &mockQuoter{output: big.NewInt(900_000)}, now)

	_, err := s.processIntent(context.Background(), job{intentID: 1})
	require.NoError(t, err)
	assert.Empty(t, book.fills)
}

func TestProcessIntentHonorsMinOutputFloor(t *testing.T) {
	now := time.Now().UTC()
	intent := swapIntent(1, now)
	intent.MinOutputAmount = big.NewInt(1_050_000)
	book := newMockLedger(intent)
	s := newTestService(book, &mockQuoter{output: big.NewInt(1_010_000)}, now)

	_, err := s.processIntent(context.Background(), job{intentID: 1})
	require.NoError(t, err)
	assert.Empty(t, book.fills, "quote below the intent's output floor must not be submitted")
}

func TestProcessIntentExpiredDeadline(t *testing.T) {
	now := time.Now().UTC()
	intent := swapIntent(1, now)
	intent.Deadline = now.Add(-time.Second)
	book := newMockLedger(intent)
	s := newTestService(book, &mockQuoter{output: big.NewInt(1_010_000)}, now)

	_, err := s.processIntent(context.Background(), job{intentID: 1})
	require.NoError(t, err)
	assert.Empty(t, book.fills)
}

func TestDutchCandidateGatedByCurve(t *testing.T) {
	now := time.Now().UTC()

	intent := swapIntent(1, now)
	intent.AuctionType = models.AuctionTypeDutch
	book := newMockLedger(intent)

	// A quote of 1,010,000 out for 1,000,000 in prices at 10100 bps.
	quoter := &mockQuoter{output: big.NewInt(1_010_000)}
	s := newTestService(book, quoter, now)

	// Curve still asking 12000 bps: candidate does not clear.
	book.curves[1] = auction.DutchCurve{
		StartTime:  now,
		EndTime:    now.Add(time.Hour),
		StartPrice: big.NewInt(12_000),
		FloorPrice: big.NewInt(9_000),
	}
	_, err := s.processIntent(context.Background(), job{intentID: 1})
	require.NoError(t, err)
	assert.Empty(t, book.fills)

	// Curve opening at 10000 bps: candidate clears immediately.
	book.curves[1] = auction.DutchCurve{
		StartTime:  now,
		EndTime:    now.Add(time.Hour),
		StartPrice: big.NewInt(10_000),
		FloorPrice: big.NewInt(9_000),
	}
	_, err = s.processIntent(context.Background(), job{intentID: 1})
	require.NoError(t, err)
	assert.Len(t, book.fills, 1)
}

func TestScheduledIntentFillsLowestOpenWindow(t *testing.T) {
	now := time.Now().UTC()
	book := newMockLedger(twapIntent(1, now))
	s := newTestService(book, &mockQuoter{output: big.NewInt(1_010_000)}, now)

	_, err := s.processIntent(context.Background(), job{intentID: 1})
	require.NoError(t, err)

	require.Len(t, book.fills, 1)
	require.NotNil(t, book.fills[0].PeriodIndex)
	assert.Equal(t, 0, *book.fills[0].PeriodIndex, "period 0 must be taken before period 1")
	assert.Equal(t, "500000", book.fills[0].Amount.String())
}

func TestStaleWindowSkippedOnFreshSnapshot(t *testing.T) {
	now := time.Now().UTC()
	intent := twapIntent(1, now)
	book := newMockLedger(intent)

	// Another solver settles period 0 between the evaluation snapshot and
	// the pre-submit re-read.
	book.onGet = func(call int, it *models.Intent) {
		if call == 2 {
			period := 0
			it.Fills = append(it.Fills, models.Fill{
				PeriodIndex:  &period,
				AmountFilled: big.NewInt(500_000),
			})
			it.Status = models.StatusPartiallyFilled
		}
	}

	s := newTestService(book, &mockQuoter{output: big.NewInt(1_010_000)}, now)

	_, err := s.processIntent(context.Background(), job{intentID: 1})
	require.NoError(t, err)
	assert.Empty(t, book.fills, "settled window must not be re-submitted")
}

func TestConcurrentSubmittersAtMostOneFill(t *testing.T) {
	now := time.Now().UTC()
	book := newMockLedger(swapIntent(1, now))
	s := newTestService(book, &mockQuoter{output: big.NewInt(1_010_000)}, now)

	const racers = 4
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.processIntent(context.Background(), job{intentID: 1})
		}(i)
	}
	wg.Wait()

	assert.Len(t, book.fills, 1, "exactly one racer may win the window")
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ledger.ErrAlreadyFilled)
		}
	}
}

func TestScheduleRetryBoundedByDeadline(t *testing.T) {
	now := time.Now().UTC()
	book := newMockLedger()
	s := newTestService(book, &mockQuoter{output: big.NewInt(1)}, now)

	near := swapIntent(1, now)
	near.Deadline = now.Add(5 * time.Second)
	s.scheduleRetry(near, 0, "network_error")
	assert.Empty(t, s.retryJobs, "retry past the deadline must be dropped")

	far := swapIntent(2, now)
	s.scheduleRetry(far, 0, "network_error")
	require.Len(t, s.retryJobs, 1)

	retryJob := <-s.retryJobs
	s.wg.Done()
	assert.Equal(t, 1, retryJob.RetryCount)
	assert.Equal(t, "network_error", retryJob.ErrorType)
	assert.Equal(t, now.Add(10*time.Second), retryJob.NextAttempt)
}

func TestScheduleRetryStopsAtMaxRetries(t *testing.T) {
	now := time.Now().UTC()
	s := newTestService(newMockLedger(), &mockQuoter{output: big.NewInt(1)}, now)

	s.scheduleRetry(swapIntent(1, now), s.config.MaxRetries, "network_error")
	assert.Empty(t, s.retryJobs)
}

func TestRetryBackoffGrowsAndCaps(t *testing.T) {
	assert.Equal(t, 10*time.Second, retryBackoff(0))
	assert.Equal(t, 20*time.Second, retryBackoff(1))
	assert.Equal(t, 40*time.Second, retryBackoff(2))
	assert.Equal(t, 2*time.Minute, retryBackoff(10), "backoff is capped at two minutes")
}

func TestClassifySubmissionError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		shouldRetry bool
		errorType   string
	}{
		{"ledger already filled", fmt.Errorf("submit: %w", ledger.ErrAlreadyFilled), false, "already_filled"},
		{"ledger expired", fmt.Errorf("submit: %w", ledger.ErrExpired), false, "expired"},
		{"ledger slippage", fmt.Errorf("submit: %w", ledger.ErrSlippageExceeded), true, "slippage"},
		{"ledger insufficient bid", fmt.Errorf("submit: %w", ledger.ErrInsufficientBid), true, "insufficient_bid"},
		{"network", errors.New("dial tcp: connection refused"), true, "network_error"},
		{"nonce", errors.New("nonce too low"), true, "nonce_error"},
		{"gas", errors.New("gas price too low"), true, "gas_error"},
		{"revert", errors.New("execution reverted: bad fill"), false, "contract_error"},
		{"balance", errors.New("insufficient funds"), false, "insufficient_funds"},
		{"unknown", errors.New("something odd"), true, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shouldRetry, errorType := classifySubmissionError(tt.err)
			assert.Equal(t, tt.shouldRetry, shouldRetry)
			assert.Equal(t, tt.errorType, errorType)
		})
	}
}

func TestPollQueuesActionableIntents(t *testing.T) {
	now := time.Now().UTC()

	open := swapIntent(1, now)
	done := swapIntent(2, now)
	done.Status = models.StatusFilled
	book := newMockLedger(open, done)

	s := newTestService(book, &mockQuoter{output: big.NewInt(1_010_000)}, now)

	s.poll(context.Background())
	require.Len(t, s.pendingJobs, 1)
	queued := <-s.pendingJobs
	s.wg.Done()
	s.release(queued.intentID)
	assert.Equal(t, uint64(1), queued.intentID)
	assert.True(t, s.isTerminal(2), "filled intent should not be refetched")
}

func TestPollDoesNotQueueInflightIntent(t *testing.T) {
	now := time.Now().UTC()
	book := newMockLedger(swapIntent(1, now))
	s := newTestService(book, &mockQuoter{output: big.NewInt(1_010_000)}, now)

	s.poll(context.Background())
	require.Len(t, s.pendingJobs, 1)

	// Second poll while the job is still held: nothing new is queued.
	s.poll(context.Background())
	assert.Len(t, s.pendingJobs, 1)
}
