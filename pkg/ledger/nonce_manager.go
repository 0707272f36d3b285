package ledger

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// TransactionStatus represents the status of a tracked transaction.
type TransactionStatus int

const (
	// TxPending indicates transaction is pending
	TxPending TransactionStatus = iota
	// TxConfirmed indicates transaction is confirmed
	TxConfirmed
	// TxFailed indicates transaction has failed
	TxFailed
	// TxTimedOut indicates transaction has timed out
	TxTimedOut
)

// TransactionRecord tracks details about a submitted transaction.
type TransactionRecord struct {
	Hash      common.Hash
	Nonce     uint64
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    TransactionStatus
}

// NonceManager owns the solver account's nonce sequence for this process.
// No concurrent submission path may allocate nonces outside of it.
type NonceManager struct {
	mu           sync.Mutex
	currentNonce uint64
	pendingTxs   map[uint64]*TransactionRecord
	lastSync     time.Time
	txTimeout    time.Duration
}

// NewNonceManager creates a new nonce manager.
func NewNonceManager() *NonceManager {
	return &NonceManager{
		pendingTxs: make(map[uint64]*TransactionRecord),
		txTimeout:  5 * time.Minute,
	}
}

// SetTransactionTimeout sets the timeout after which a pending transaction
// is considered stuck.
func (nm *NonceManager) SetTransactionTimeout(timeout time.Duration) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.txTimeout = timeout
}

// GetNonce reserves and returns the next available nonce, re-syncing with
// the chain when the local view is cold or stale.
func (nm *NonceManager) GetNonce(ctx context.Context, client *ethclient.Client, address common.Address) (uint64, error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if nm.lastSync.IsZero() || time.Since(nm.lastSync) > 5*time.Minute {
		nonce, err := client.PendingNonceAt(ctx, address)
		if err != nil {
			return 0, fmt.Errorf("failed to get pending nonce: %v", err)
		}
		if nonce > nm.currentNonce {
			log.Printf("Updating nonce: %d -> %d", nm.currentNonce, nonce)
			nm.currentNonce = nonce
		}
		nm.lastSync = time.Now()
	}

	nonce := nm.currentNonce
	nm.currentNonce++
	return nonce, nil
}

// TrackTransaction records a newly submitted transaction.
func (nm *NonceManager) TrackTransaction(txHash common.Hash, nonce uint64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	now := time.Now()
	nm.pendingTxs[nonce] = &TransactionRecord{
		Hash:      txHash,
		Nonce:     nonce,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    TxPending,
	}
}

// MarkTransactionConfirmed marks a transaction as confirmed and releases it.
func (nm *NonceManager) MarkTransactionConfirmed(nonce uint64) bool {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	tx, exists := nm.pendingTxs[nonce]
	if !exists {
		log.Printf("Warning: no pending transaction found for nonce %d", nonce)
		return false
	}

	tx.Status = TxConfirmed
	tx.UpdatedAt = time.Now()
	delete(nm.pendingTxs, nonce)
	return true
}

// MarkTransactionFailed marks a transaction as failed. If it held the
// lowest pending nonce, that nonce becomes reusable.
func (nm *NonceManager) MarkTransactionFailed(nonce uint64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	tx, exists := nm.pendingTxs[nonce]
	if !exists {
		log.Printf("Warning: no pending transaction found for nonce %d", nonce)
		return
	}

	tx.Status = TxFailed
	tx.UpdatedAt = time.Now()

	if nonce == nm.lowestPendingLocked() {
		nm.currentNonce = nonce
		log.Printf("Reusing nonce %d after transaction failure", nonce)
	}
	delete(nm.pendingTxs, nonce)
}

// FindTimeoutTransactions returns the nonces of transactions stuck past
// the configured timeout, marking them timed out.
func (nm *NonceManager) FindTimeoutTransactions() []uint64 {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	now := time.Now()
	var timedOut []uint64
	for nonce, tx := range nm.pendingTxs {
		if tx.Status == TxPending && now.Sub(tx.CreatedAt) > nm.txTimeout {
			tx.Status = TxTimedOut
			tx.UpdatedAt = now
			log.Printf("Transaction timed out at nonce %d: %s", nonce, tx.Hash.Hex())
			timedOut = append(timedOut, nonce)
		}
	}
	return timedOut
}

// ReuseNonce releases a nonce for reuse, allowed only when it is the lowest
// pending (or untracked) nonce.
func (nm *NonceManager) ReuseNonce(nonce uint64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, tracked := nm.pendingTxs[nonce]; !tracked {
		// Allocation that never produced a transaction: roll straight back.
		if nm.currentNonce == nonce+1 {
			nm.currentNonce = nonce
		}
		return
	}

	if nonce == nm.lowestPendingLocked() && nm.currentNonce > nonce {
		nm.currentNonce = nonce
		log.Printf("Nonce %d set for reuse", nonce)
	}
	delete(nm.pendingTxs, nonce)
}

// SyncWithChain synchronizes the local nonce sequence with the chain.
func (nm *NonceManager) SyncWithChain(ctx context.Context, client *ethclient.Client, address common.Address) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nonce, err := client.PendingNonceAt(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get pending nonce: %v", err)
	}

	if nonce > nm.currentNonce {
		log.Printf("Updating nonce: %d -> %d", nm.currentNonce, nonce)
		nm.currentNonce = nonce
	}
	nm.lastSync = time.Now()
	return nil
}

// PendingCount returns the number of tracked pending transactions.
func (nm *NonceManager) PendingCount() int {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	return len(nm.pendingTxs)
}

// lowestPendingLocked finds the lowest tracked nonce. Caller holds the lock.
func (nm *NonceManager) lowestPendingLocked() uint64 {
	var lowest uint64
	found := false
	for nonce := range nm.pendingTxs {
		if !found || nonce < lowest {
			lowest = nonce
			found = true
		}
	}
	return lowest
}
