package models

import (
	"time"
)

// RetryJob represents a scheduled retry for an intent whose submission failed
type RetryJob struct {
	Intent      Intent
	RetryCount  int
	NextAttempt time.Time
	ErrorType   string // Type of error that caused the retry
}
