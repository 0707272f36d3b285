package solver

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/intentswap-hq/solver/pkg/metrics"
	"github.com/intentswap-hq/solver/pkg/models"
)

const maxRetryQueueSize = 1000

// retryBackoff calculates the exponential backoff for a retry attempt,
// capped at two minutes.
func retryBackoff(retryCount int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(retryCount))) * 10 * time.Second

	maxBackoff := 2 * time.Minute
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// scheduleRetry queues another attempt for an intent whose submission
// failed. Retries never extend past the intent's deadline: an attempt that
// would land after it is dropped instead.
func (s *Service) scheduleRetry(intent *models.Intent, retryCount int, errorType string) {
	if retryCount >= s.config.MaxRetries {
		s.logger.InfoWithIntent(intent.Type, "Max retries reached for intent %d, giving up (error: %s)", intent.ID, errorType)
		metrics.MaxRetriesReached.WithLabelValues(string(intent.Type), errorType).Inc()
		return
	}

	backoff := retryBackoff(retryCount)
	nextAttempt := s.now().Add(backoff)
	if nextAttempt.After(intent.Deadline) {
		s.logger.InfoWithIntent(intent.Type, "Retry for intent %d would land past the deadline, dropping", intent.ID)
		metrics.RetriesSkipped.WithLabelValues(string(intent.Type), "deadline").Inc()
		return
	}

	retryJob := models.RetryJob{
		Intent:      *intent,
		RetryCount:  retryCount + 1,
		NextAttempt: nextAttempt,
		ErrorType:   errorType,
	}

	s.wg.Add(1)
	select {
	case s.retryJobs <- retryJob:
		metrics.RetryCount.WithLabelValues(string(intent.Type)).Inc()
		s.logger.InfoWithIntent(intent.Type, "Scheduling retry for intent %d in %v (error: %s)", intent.ID, backoff, errorType)
	default:
		s.wg.Done()
		s.logger.Error("Retry channel full, dropping retry job for intent %d", intent.ID)
		metrics.DroppedRetries.WithLabelValues(string(intent.Type)).Inc()
	}
}

// retryHandler manages the retry queue: jobs wait out their backoff, are
// re-verified against a fresh ledger snapshot, then go back to the workers.
func (s *Service) retryHandler(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	var retryQueue []models.RetryJob

	for {
		select {
		case <-ctx.Done():
			// Release waitgroup slots for everything still queued so
			// shutdown can complete.
			for range retryQueue {
				s.wg.Done()
			}
			for range s.retryJobs {
				s.wg.Done()
			}
			return
		case retryJob := <-s.retryJobs:
			if len(retryQueue) >= maxRetryQueueSize {
				s.logger.Error("Retry queue at capacity (%d jobs), dropping retry for intent %d", maxRetryQueueSize, retryJob.Intent.ID)
				s.wg.Done()
				metrics.DroppedRetries.WithLabelValues(string(retryJob.Intent.Type)).Inc()
				continue
			}
			retryQueue = append(retryQueue, retryJob)
			sort.Slice(retryQueue, func(i, j int) bool {
				return retryQueue[i].NextAttempt.Before(retryQueue[j].NextAttempt)
			})
		case <-ticker.C:
			now := s.now()
			var remainingJobs []models.RetryJob
			processed := 0
			maxProcessPerTick := 10

			metrics.RetryQueueSize.Set(float64(len(retryQueue)))
			if len(retryQueue) > 0 {
				nextRetryIn := retryQueue[0].NextAttempt.Sub(now).Seconds()
				if nextRetryIn < 0 {
					nextRetryIn = 0
				}
				metrics.NextRetryIn.Set(nextRetryIn)
			}

			for _, retryJob := range retryQueue {
				if !retryJob.NextAttempt.Before(now) {
					remainingJobs = append(remainingJobs, retryJob)
					continue
				}
				if processed >= maxProcessPerTick {
					remainingJobs = append(remainingJobs, retryJob)
					continue
				}

				intentType := retryJob.Intent.Type

				// Re-verify against a fresh snapshot before re-queueing.
				fresh, err := s.book.GetIntent(ctx, retryJob.Intent.ID)
				if err == nil {
					if !fresh.Status.Actionable() || now.After(fresh.Deadline) {
						s.logger.InfoWithIntent(intentType, "Intent %d no longer actionable, removing from retry queue", retryJob.Intent.ID)
						s.wg.Done()
						metrics.RetriesSkipped.WithLabelValues(string(intentType), "not_actionable").Inc()
						continue
					}
				}

				s.logger.InfoWithIntent(intentType, "Retrying intent %d (attempt #%d, error type: %s)",
					retryJob.Intent.ID, retryJob.RetryCount, retryJob.ErrorType)
				if s.dispatch(job{
					intentID:   retryJob.Intent.ID,
					retryCount: retryJob.RetryCount,
					errorType:  retryJob.ErrorType,
				}) {
					processed++
					metrics.RetriesExecuted.WithLabelValues(string(intentType), retryJob.ErrorType).Inc()
				} else {
					// Intent is back in flight through the poll loop.
					s.wg.Done()
					metrics.RetriesSkipped.WithLabelValues(string(intentType), "in_flight").Inc()
				}
			}

			retryQueue = remainingJobs

			if processed >= maxProcessPerTick && len(retryQueue) > 0 {
				ticker.Reset(1 * time.Second)
			} else if len(retryQueue) > 0 {
				waitTime := retryQueue[0].NextAttempt.Sub(now)
				if waitTime < 0 {
					waitTime = 1 * time.Second
				} else if waitTime > 10*time.Second {
					waitTime = 10 * time.Second
				}
				ticker.Reset(waitTime)
			} else {
				ticker.Reset(10 * time.Second)
			}
		}
	}
}
