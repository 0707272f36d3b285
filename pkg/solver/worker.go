package solver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/intentswap-hq/solver/pkg/bookkeeping"
	"github.com/intentswap-hq/solver/pkg/fixedpoint"
	"github.com/intentswap-hq/solver/pkg/ledger"
	"github.com/intentswap-hq/solver/pkg/metrics"
	"github.com/intentswap-hq/solver/pkg/models"
	"github.com/intentswap-hq/solver/pkg/schedule"
)

// worker consumes jobs until the pending channel is closed. Cancellation is
// observed inside handle so queued jobs still release their waitgroup slots
// during shutdown.
func (s *Service) worker(ctx context.Context, id int) {
	s.logger.Debug("Starting worker %d", id)
	for j := range s.pendingJobs {
		s.handle(ctx, id, j)
	}
	s.logger.Debug("Worker %d shutting down: channel closed", id)
}

// handle processes one job end to end, including error classification and
// retry scheduling.
func (s *Service) handle(ctx context.Context, workerID int, j job) {
	defer s.wg.Done()
	defer s.release(j.intentID)

	if ctx.Err() != nil {
		return
	}

	if s.breaker != nil && s.breaker.IsEnabled() && s.breaker.IsOpen() {
		failureCount, lastFailure, _, _ := s.breaker.GetState()
		s.logger.Notice("Worker %d: circuit breaker open (last failure: %v, count: %d), skipping intent %d",
			workerID, lastFailure, failureCount, j.intentID)
		return
	}

	start := time.Now()
	intent, err := s.processIntent(ctx, j)
	if intent != nil {
		metrics.IntentProcessingTime.WithLabelValues(string(intent.Type)).Observe(time.Since(start).Seconds())
	}
	if err == nil {
		return
	}

	typeLabel := "unknown"
	if intent != nil {
		typeLabel = string(intent.Type)
	}

	shouldRetry, errorType := classifySubmissionError(err)
	metrics.SubmissionErrors.WithLabelValues(typeLabel, errorType).Inc()
	s.logger.Error("Worker %d error on intent %d: %v (classified: %s, retry: %v)",
		workerID, j.intentID, err, errorType, shouldRetry)

	// Another solver settling the window first is a race outcome, not a
	// failure of this solver.
	if errorType == "already_filled" {
		metrics.FillsSubmitted.WithLabelValues(typeLabel, "lost_race").Inc()
		return
	}

	if errorType == "expired" {
		metrics.ExpiredIntents.WithLabelValues(typeLabel).Inc()
		return
	}

	tripped := false
	if s.breaker != nil {
		tripped = s.breaker.RecordFailure()
		if tripped {
			failureCount, _, failureWindow, _ := s.breaker.GetState()
			s.logger.Notice("Circuit breaker tripped: %d failures in %v window", failureCount, failureWindow)
		}
	}
	metrics.FillsSubmitted.WithLabelValues(typeLabel, "failed").Inc()

	if !shouldRetry {
		s.logger.Error("Not retrying intent %d due to permanent error type: %s", j.intentID, errorType)
		return
	}
	if tripped {
		s.logger.Notice("Skipping retry for intent %d due to tripped circuit breaker", j.intentID)
		return
	}
	if intent == nil {
		// Snapshot fetch failed; the next poll will pick the intent up again.
		return
	}

	s.scheduleRetry(intent, j.retryCount, errorType)
}

// processIntent evaluates a fresh intent snapshot and submits a fill if a
// profitable, auction-valid candidate exists. A nil error with no submission
// means the intent was legitimately skipped at this instant.
func (s *Service) processIntent(ctx context.Context, j job) (*models.Intent, error) {
	intent, err := s.book.GetIntent(ctx, j.intentID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	if intent.Status.Terminal() {
		s.markTerminal(j.intentID)
		return intent, nil
	}
	if !intent.Status.Actionable() {
		return intent, nil
	}
	if now.After(intent.Deadline) {
		metrics.ExpiredIntents.WithLabelValues(string(intent.Type)).Inc()
		s.logger.InfoWithIntent(intent.Type, "Intent %d deadline elapsed, dropping", intent.ID)
		return intent, nil
	}

	var window *models.ScheduleWindow
	if intent.Type.Scheduled() {
		window = schedule.NextEligibleWindow(intent, now)
	} else {
		window = schedule.ImplicitWindow(intent)
	}
	if window == nil {
		s.logger.DebugWithIntent(intent.Type, "Intent %d has no eligible window at %v", intent.ID, now)
		return intent, nil
	}

	solution, err := s.quoter.Quote(ctx, intent, window.AmountForPeriod)
	if err != nil {
		metrics.EvaluationErrors.WithLabelValues(string(intent.Type)).Inc()
		return intent, err
	}

	profit, err := s.strategy.EstimateProfit(intent, solution)
	if err != nil {
		metrics.EvaluationErrors.WithLabelValues(string(intent.Type)).Inc()
		s.logger.ErrorWithIntent(intent.Type, "Intent %d evaluation failed: %v", intent.ID, err)
		return intent, nil
	}
	if profit.Sign() <= 0 {
		metrics.UnprofitableSkips.WithLabelValues(string(intent.Type)).Inc()
		s.logger.DebugWithIntent(intent.Type, "Intent %d not profitable (estimated: %s), skipping", intent.ID, profit.String())
		return intent, nil
	}

	valid, err := s.validateAuction(ctx, intent, solution, window, now)
	if err != nil {
		return intent, err
	}
	if !valid {
		metrics.AuctionRejections.WithLabelValues(string(intent.Type)).Inc()
		s.logger.DebugWithIntent(intent.Type, "Intent %d candidate rejected by auction rules", intent.ID)
		return intent, nil
	}

	minOutput, err := fixedpoint.ApplySlippage(solution.OutputAmount, s.config.SlippageBps)
	if err != nil {
		metrics.EvaluationErrors.WithLabelValues(string(intent.Type)).Inc()
		return intent, nil
	}
	if intent.MinOutputAmount != nil && minOutput.Cmp(intent.MinOutputAmount) < 0 {
		minOutput.Set(intent.MinOutputAmount)
	}

	// Re-read the ledger immediately before submitting: another solver may
	// have settled the window since the snapshot was taken.
	fresh, err := s.book.GetIntent(ctx, j.intentID)
	if err != nil {
		return intent, err
	}
	if !fresh.Status.Actionable() {
		if fresh.Status.Terminal() {
			s.markTerminal(j.intentID)
		}
		metrics.StaleWindowSkips.WithLabelValues(string(intent.Type)).Inc()
		return intent, nil
	}
	if intent.Type.Scheduled() {
		current := schedule.NextEligibleWindow(fresh, s.now())
		if current == nil || current.PeriodIndex != window.PeriodIndex {
			metrics.StaleWindowSkips.WithLabelValues(string(intent.Type)).Inc()
			s.logger.InfoWithIntent(intent.Type, "Intent %d window %d settled elsewhere, skipping", intent.ID, window.PeriodIndex)
			return intent, nil
		}
	}

	req := ledger.FillRequest{
		IntentID:  intent.ID,
		Amount:    window.AmountForPeriod,
		MinOutput: minOutput,
	}
	if intent.Type.Scheduled() {
		periodIndex := window.PeriodIndex
		req.PeriodIndex = &periodIndex
	}

	txHash, err := s.book.SubmitFill(ctx, req)
	if err != nil {
		return intent, err
	}

	s.txs.Put(intent.ID, txHash)
	if s.store != nil {
		kind := bookkeeping.KindTaker
		if intent.AuctionType == models.AuctionTypeSealedBid {
			kind = bookkeeping.KindBid
		}
		record := bookkeeping.FillRecord{
			IntentID:    intent.ID,
			Kind:        kind,
			PeriodIndex: req.PeriodIndex,
			TxHash:      txHash.Hex(),
			Amount:      req.Amount.String(),
			OutputSeen:  solution.OutputAmount.String(),
			Status:      bookkeeping.StatusConfirmed,
			SubmittedAt: s.now(),
		}
		if err := s.store.Record(record); err != nil {
			s.logger.Error("Failed to record fill for intent %d: %v", intent.ID, err)
		}
	}

	metrics.FillsSubmitted.WithLabelValues(string(intent.Type), "success").Inc()
	s.logger.NoticeWithIntent(intent.Type, "Fill confirmed for intent %d window %d: %s (profit estimate: %s)",
		intent.ID, window.PeriodIndex, txHash.Hex(), profit.String())
	return intent, nil
}

// classifySubmissionError determines whether an error is worth retrying.
// Returns (shouldRetry, errorType).
func classifySubmissionError(err error) (bool, string) {
	// Ledger rejection reasons have first priority.
	switch {
	case errors.Is(err, ledger.ErrAlreadyFilled):
		return false, "already_filled"
	case errors.Is(err, ledger.ErrExpired):
		return false, "expired"
	case errors.Is(err, ledger.ErrSlippageExceeded):
		return true, "slippage"
	case errors.Is(err, ledger.ErrInsufficientBid):
		return true, "insufficient_bid"
	}

	errStr := err.Error()

	if strings.Contains(errStr, "already filled") ||
		strings.Contains(errStr, "already settled") {
		return false, "already_filled"
	}

	if strings.Contains(errStr, "intent expired") ||
		strings.Contains(errStr, "past deadline") {
		return false, "expired"
	}

	if strings.Contains(errStr, "slippage exceeded") {
		return true, "slippage"
	}

	// Network/RPC errors - retry is appropriate
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "no response") ||
		strings.Contains(errStr, "EOF") {
		return true, "network_error"
	}

	// Gas-related errors - retry may help if gas prices change
	if strings.Contains(errStr, "gas required exceeds allowance") ||
		strings.Contains(errStr, "insufficient funds for gas") ||
		strings.Contains(errStr, "gas price too low") {
		return true, "gas_error"
	}

	// Nonce-related errors - retry may help after nonce is corrected
	if strings.Contains(errStr, "nonce too low") ||
		strings.Contains(errStr, "nonce too high") ||
		strings.Contains(errStr, "replacement transaction underpriced") {
		return true, "nonce_error"
	}

	// Balance-related errors - permanent failures
	if strings.Contains(errStr, "insufficient balance") ||
		strings.Contains(errStr, "insufficient funds") {
		return false, "insufficient_funds"
	}

	// Contract errors - likely permanent failures
	if strings.Contains(errStr, "execution reverted") {
		return false, "contract_error"
	}

	// Any other error - retry by default
	return true, "unknown_error"
}
