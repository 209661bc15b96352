package services

import (
	"sort"
	"sync"

	"github.com/google/logger"
)

// QuestService manages one independent ledger per tenant.
type QuestService struct {
	mu              sync.RWMutex
	tenants         map[string]*Ledger // Key: tenantID
	initialTreasury int64
	ledgerOpts      []Option
}

// NewQuestService creates a QuestService whose ledgers start with
// initialTreasury in their treasury.
func NewQuestService(initialTreasury int64, opts ...Option) *QuestService {
	return &QuestService{
		tenants:         make(map[string]*Ledger),
		initialTreasury: initialTreasury,
		ledgerOpts:      opts,
	}
}

// Ledger returns the ledger for a tenant, creating one if it doesn't exist.
func (s *QuestService) Ledger(tenantID string) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, exists := s.tenants[tenantID]
	if !exists {
		opts := append([]Option{WithTreasury(s.initialTreasury)}, s.ledgerOpts...)
		ledger = NewLedger(opts...)
		s.tenants[tenantID] = ledger
		logger.Infof("Created ledger for tenant: %s (treasury %d)", tenantID, s.initialTreasury)
	}
	return ledger
}

// Tenants returns the ids of all known tenants, sorted.
func (s *QuestService) Tenants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// each calls fn for every tenant ledger without holding the registry lock.
func (s *QuestService) each(fn func(tenantID string, l *Ledger)) {
	s.mu.RLock()
	ledgers := make(map[string]*Ledger, len(s.tenants))
	for id, l := range s.tenants {
		ledgers[id] = l
	}
	s.mu.RUnlock()

	for id, l := range ledgers {
		fn(id, l)
	}
}
