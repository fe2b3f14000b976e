// Package memory provides an in-memory storage adapter with the same
// transactional contract as the PostgreSQL adapter. It backs unit and
// integration tests that exercise full service flows without a database.
package memory

import (
	"sync"

	"credit-exchange/internal/core/domain"

	"github.com/google/uuid"
)

type balanceKey struct {
	account uuid.UUID
	asset   string
}

// Store holds all persisted state under one mutex. A transaction takes
// the mutex for its whole lifetime, so transactions serialize exactly
// like row locks would, just coarser.
type Store struct {
	mu sync.Mutex

	claims   map[uuid.UUID]domain.Claim
	entries  []domain.LedgerEntry
	nextSeq  int64
	balances map[balanceKey]domain.Balance
	orders   map[uuid.UUID]domain.Order
	trades   []domain.Trade
	rates    []domain.Rate
	audits   []domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		claims:   make(map[uuid.UUID]domain.Claim),
		balances: make(map[balanceKey]domain.Balance),
		orders:   make(map[uuid.UUID]domain.Order),
	}
}

// snapshot captures the full state for rollback.
type snapshot struct {
	claims   map[uuid.UUID]domain.Claim
	entries  []domain.LedgerEntry
	nextSeq  int64
	balances map[balanceKey]domain.Balance
	orders   map[uuid.UUID]domain.Order
	trades   []domain.Trade
	rates    []domain.Rate
	audits   []domain.AuditLog
}

func (s *Store) snapshot() *snapshot {
	snap := &snapshot{
		claims:   make(map[uuid.UUID]domain.Claim, len(s.claims)),
		entries:  make([]domain.LedgerEntry, len(s.entries)),
		nextSeq:  s.nextSeq,
		balances: make(map[balanceKey]domain.Balance, len(s.balances)),
		orders:   make(map[uuid.UUID]domain.Order, len(s.orders)),
		trades:   make([]domain.Trade, len(s.trades)),
		rates:    make([]domain.Rate, len(s.rates)),
		audits:   make([]domain.AuditLog, len(s.audits)),
	}
	for k, v := range s.claims {
		snap.claims[k] = v
	}
	copy(snap.entries, s.entries)
	for k, v := range s.balances {
		snap.balances[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	copy(snap.trades, s.trades)
	copy(snap.rates, s.rates)
	copy(snap.audits, s.audits)
	return snap
}

func (s *Store) restore(snap *snapshot) {
	s.claims = snap.claims
	s.entries = snap.entries
	s.nextSeq = snap.nextSeq
	s.balances = snap.balances
	s.orders = snap.orders
	s.trades = snap.trades
	s.rates = snap.rates
	s.audits = snap.audits
}
