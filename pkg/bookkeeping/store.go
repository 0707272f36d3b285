// Package bookkeeping persists a local audit trail of every fill the solver
// submits. The store is advisory only; the ledger remains the source of
// truth for settlement state.
package bookkeeping

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// FillRecord is one transaction as seen from this solver process.
type FillRecord struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	IntentID    uint64 `gorm:"index:idx_fill_intent"`
	Kind        string `gorm:"size:8;index:idx_fill_intent"`
	PeriodIndex *int
	TxHash      string `gorm:"uniqueIndex;size:66"`
	Amount      string `gorm:"size:80"`
	OutputSeen  string `gorm:"size:80"`
	Status      string `gorm:"size:16"`
	SubmittedAt time.Time
}

// Record kinds: maker is the intent creation transaction, taker a direct
// fill, bid a sealed-bid submission.
const (
	KindMaker = "maker"
	KindTaker = "taker"
	KindBid   = "bid"
)

// Fill submission outcomes as recorded in the audit trail.
const (
	StatusConfirmed = "confirmed"
	StatusReverted  = "reverted"
	StatusDropped   = "dropped"
)

// Store wraps the sqlite-backed audit database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the audit database at the given path and runs
// migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bookkeeping database: %v", err)
	}

	if err := db.AutoMigrate(&FillRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate bookkeeping schema: %v", err)
	}

	return &Store{db: db}, nil
}

// Record inserts a fill record. Re-recording the same transaction hash is
// a no-op, so retried bookkeeping writes stay idempotent.
func (s *Store) Record(record FillRecord) error {
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tx_hash"}},
		DoNothing: true,
	}).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to record fill for intent %d: %v", record.IntentID, result.Error)
	}
	return nil
}

// ListByIntent returns all recorded fills for an intent, oldest first.
func (s *Store) ListByIntent(intentID uint64) ([]FillRecord, error) {
	var records []FillRecord
	result := s.db.Where("intent_id = ?", intentID).Order("submitted_at asc, id asc").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list fills for intent %d: %v", intentID, result.Error)
	}
	return records, nil
}

// CountByStatus returns how many recorded fills ended in the given status.
func (s *Store) CountByStatus(status string) (int64, error) {
	var count int64
	result := s.db.Model(&FillRecord{}).Where("status = ?", status).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count fills by status: %v", result.Error)
	}
	return count, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
