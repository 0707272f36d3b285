// Package solver runs the settlement loop: poll the ledger for actionable
// intents, quote and evaluate candidate executions, gate them through the
// auction rules, and submit fills. The ledger stays the single arbiter of
// who wins a window; the loop only decides what is worth attempting.
package solver

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/intentswap-hq/solver/pkg/auction"
	"github.com/intentswap-hq/solver/pkg/bookkeeping"
	"github.com/intentswap-hq/solver/pkg/circuitbreaker"
	"github.com/intentswap-hq/solver/pkg/config"
	"github.com/intentswap-hq/solver/pkg/health"
	"github.com/intentswap-hq/solver/pkg/ledger"
	"github.com/intentswap-hq/solver/pkg/logger"
	"github.com/intentswap-hq/solver/pkg/metrics"
	"github.com/intentswap-hq/solver/pkg/models"
	"github.com/intentswap-hq/solver/pkg/pricing"
	"github.com/intentswap-hq/solver/pkg/strategy"
	"github.com/intentswap-hq/solver/pkg/txcache"
)

// Ledger is the solver's view of the settlement ledger.
type Ledger interface {
	GetTotalIntents(ctx context.Context) (uint64, error)
	GetIntent(ctx context.Context, id uint64) (*models.Intent, error)
	GetDutchAuction(ctx context.Context, id uint64) (auction.DutchCurve, error)
	SubmitFill(ctx context.Context, req ledger.FillRequest) (common.Hash, error)
	UpdateGasPrice(ctx context.Context) (*big.Int, error)
	SyncNonces(ctx context.Context) error
	Nonces() *ledger.NonceManager
}

// job is one unit of work for the worker pool.
type job struct {
	intentID   uint64
	retryCount int
	errorType  string
}

// Service drives the polling, evaluation, and submission pipeline.
type Service struct {
	config   *config.Config
	logger   logger.Logger
	book     Ledger
	quoter   pricing.Quoter
	strategy strategy.Strategy
	breaker  *circuitbreaker.CircuitBreaker
	store    *bookkeeping.Store
	txs      *txcache.Cache
	health   *health.Server

	pendingJobs chan job
	retryJobs   chan models.RetryJob
	wg          sync.WaitGroup
	workers     int

	// inflight prevents the same intent from being queued twice while a
	// worker still holds it.
	inflightMu sync.Mutex
	inflight   map[uint64]struct{}

	// terminal remembers intent IDs the ledger reported as final, so polls
	// stop refetching them.
	terminalMu sync.Mutex
	terminal   map[uint64]struct{}

	now func() time.Time
}

// NewService creates a solver service from configuration, dialing the
// ledger and opening the local stores.
func NewService(cfg *config.Config) (*Service, error) {
	log := logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level)

	client, err := ledger.Dial(cfg.RPCURL, cfg.LedgerAddress, cfg.PrivateKey, cfg.GasMultiplier, cfg.MaxGasPrice)
	if err != nil {
		return nil, err
	}
	client.Nonces().SetTransactionTimeout(10 * time.Minute)

	quotes := pricing.NewQuoteCache(30*time.Second, pricing.SystemClock{})
	strat, err := strategy.New(cfg.Strategy, quotes)
	if err != nil {
		return nil, err
	}

	store, err := bookkeeping.Open(cfg.BookkeepingDB)
	if err != nil {
		return nil, err
	}

	txs, err := txcache.New(cfg.TxCacheSize)
	if err != nil {
		return nil, err
	}

	breaker := circuitbreaker.NewCircuitBreaker(
		cfg.CircuitBreaker.Enabled,
		cfg.CircuitBreaker.Threshold,
		cfg.CircuitBreaker.WindowDuration,
		cfg.CircuitBreaker.ResetTimeout,
	)

	return &Service{
		config:      cfg,
		logger:      log,
		book:        client,
		quoter:      pricing.NewRouterQuoter(cfg.RouterURL, log),
		strategy:    strat,
		breaker:     breaker,
		store:       store,
		txs:         txs,
		health:      health.NewServer(cfg.MetricsPort, client, breaker),
		pendingJobs: make(chan job, 100),
		retryJobs:   make(chan models.RetryJob, 100),
		workers:     cfg.WorkerCount,
		inflight:    make(map[uint64]struct{}),
		terminal:    make(map[uint64]struct{}),
		now:         time.Now,
	}, nil
}

// Start runs the service until the context is cancelled, then drains the
// worker pool before returning.
func (s *Service) Start(ctx context.Context) {
	if s.health != nil {
		go s.health.Start()
	}

	s.logger.Info("Starting %d worker goroutines", s.workers)
	for i := 0; i < s.workers; i++ {
		go s.worker(ctx, i)
	}

	go s.retryHandler(ctx)
	go s.gasRefresh(ctx)
	go s.nonceRecovery(ctx)

	s.logger.Info("Starting solver loop with polling interval %v", s.config.PollingInterval)
	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Context cancelled, shutting down service")
			close(s.pendingJobs)
			s.wg.Wait()
			close(s.retryJobs)
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll scans the ledger for actionable intents and queues them.
func (s *Service) poll(ctx context.Context) {
	total, err := s.book.GetTotalIntents(ctx)
	if err != nil {
		s.logger.Error("Error fetching intent count: %v", err)
		return
	}

	now := s.now()
	actionable := 0

	// Intent IDs are assigned sequentially from 1.
	for id := uint64(1); id <= total; id++ {
		if s.isTerminal(id) {
			continue
		}

		intent, err := s.book.GetIntent(ctx, id)
		if err != nil {
			s.logger.Error("Error fetching intent %d: %v", id, err)
			continue
		}

		if intent.Status.Terminal() {
			s.markTerminal(id)
			continue
		}
		if now.After(intent.Deadline) {
			continue
		}
		if !intent.Status.Actionable() {
			continue
		}

		actionable++
		s.enqueue(job{intentID: id})
	}

	metrics.ActionableIntents.Set(float64(actionable))
	s.logger.Debug("Poll complete: %d actionable intents out of %d total", actionable, total)
}

// enqueue hands a job to the worker pool unless the intent is already held
// by a worker or queued.
func (s *Service) enqueue(j job) bool {
	s.inflightMu.Lock()
	if _, busy := s.inflight[j.intentID]; busy {
		s.inflightMu.Unlock()
		return false
	}
	s.inflight[j.intentID] = struct{}{}
	s.inflightMu.Unlock()

	s.wg.Add(1)
	s.pendingJobs <- j
	return true
}

// dispatch re-queues a retry job whose waitgroup slot is already held.
// Returns false if the intent is busy; the caller releases the slot.
func (s *Service) dispatch(j job) bool {
	s.inflightMu.Lock()
	if _, busy := s.inflight[j.intentID]; busy {
		s.inflightMu.Unlock()
		return false
	}
	s.inflight[j.intentID] = struct{}{}
	s.inflightMu.Unlock()

	s.pendingJobs <- j
	return true
}

func (s *Service) release(id uint64) {
	s.inflightMu.Lock()
	delete(s.inflight, id)
	s.inflightMu.Unlock()
}

func (s *Service) isTerminal(id uint64) bool {
	s.terminalMu.Lock()
	defer s.terminalMu.Unlock()
	_, ok := s.terminal[id]
	return ok
}

func (s *Service) markTerminal(id uint64) {
	s.terminalMu.Lock()
	s.terminal[id] = struct{}{}
	s.terminalMu.Unlock()
}

// gasRefresh periodically refreshes the signer's gas price.
func (s *Service) gasRefresh(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Gas refresh shutting down")
			return
		case <-ticker.C:
			price, err := s.book.UpdateGasPrice(ctx)
			if err != nil {
				s.logger.Error("Error updating gas price: %v", err)
				continue
			}
			gwei, _ := new(big.Float).Quo(
				new(big.Float).SetInt(price),
				big.NewFloat(1e9),
			).Float64()
			metrics.GasPrice.Set(gwei)
		}
	}
}

// nonceRecovery periodically reclaims nonces held by stuck transactions.
func (s *Service) nonceRecovery(ctx context.Context) {
	s.logger.Info("Nonce recovery job started")
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Nonce recovery job shutting down")
			return
		case <-ticker.C:
			if err := s.book.SyncNonces(ctx); err != nil {
				s.logger.Error("Failed to sync nonces during recovery: %v", err)
				continue
			}

			timedOut := s.book.Nonces().FindTimeoutTransactions()
			if len(timedOut) == 0 {
				continue
			}

			s.logger.Notice("Recovering %d timed out transaction nonces", len(timedOut))
			for _, nonce := range timedOut {
				s.book.Nonces().ReuseNonce(nonce)
				metrics.NoncesRecovered.Inc()
			}

			if err := s.book.SyncNonces(ctx); err != nil {
				s.logger.Error("Failed to re-sync nonces after recovery: %v", err)
			}
		}
	}
}

// validateAuction gates a candidate through the intent's price discovery
// mechanism at instant now.
func (s *Service) validateAuction(ctx context.Context, intent *models.Intent, solution models.Solution, window *models.ScheduleWindow, now time.Time) (bool, error) {
	switch intent.AuctionType {
	case models.AuctionTypeDutch:
		curve, err := s.book.GetDutchAuction(ctx, intent.ID)
		if err != nil {
			return false, err
		}
		resolver, err := auction.NewDutchResolver(intent, curve)
		if err != nil {
			s.logger.ErrorWithIntent(intent.Type, "Intent %d has a malformed auction curve: %v", intent.ID, err)
			return false, nil
		}
		return resolver.ValidateCandidate(solution, window, now)
	case models.AuctionTypeSealedBid:
		// Bid ordering is enforced by the ledger at reveal time; locally
		// only the output floor gates submission.
		resolver, err := auction.NewSealedBidResolver(intent, auction.SealedBidWindow{
			StartTime:      intent.CreatedAt,
			CommitDeadline: intent.Deadline,
			RevealDeadline: intent.Deadline.Add(time.Nanosecond),
		})
		if err != nil {
			return false, nil
		}
		return resolver.ValidateCandidate(solution, window, now)
	default:
		return false, fmt.Errorf("intent %d: unknown auction type %s", intent.ID, intent.AuctionType)
	}
}
