package summary

import (
	"sort"
	"sync"
	"time"

	"offerlens/internal/model"
)

// Store keeps the latest run's per-customer summaries for the API.
type Store struct {
	mu         sync.RWMutex
	byCustomer map[string]model.CustomerSummary
	updatedAt  time.Time
	limit      int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 20000
	}
	return &Store{
		byCustomer: make(map[string]model.CustomerSummary),
		limit:      limit,
	}
}

// Replace swaps in a run's summaries. Past the limit only the customers with
// the highest net return are kept.
func (s *Store) Replace(list []model.CustomerSummary) {
	kept := list
	if len(list) > s.limit {
		kept = append([]model.CustomerSummary(nil), list...)
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].NetReturn > kept[j].NetReturn
		})
		kept = kept[:s.limit]
	}
	m := make(map[string]model.CustomerSummary, len(kept))
	for _, cs := range kept {
		m[cs.CustomerID] = cs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCustomer = m
	s.updatedAt = time.Now().UTC()
}

func (s *Store) Get(customerID string) (model.CustomerSummary, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.byCustomer[customerID]
	return cs, s.updatedAt, ok
}

// List returns summaries ordered by customer id.
func (s *Store) List(limit int) []model.CustomerSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CustomerSummary, 0, len(s.byCustomer))
	for _, cs := range s.byCustomer {
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (s *Store) Totals() model.CustomerSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var t model.CustomerSummary
	for _, cs := range s.byCustomer {
		t.Events += cs.Events
		t.Transactions += cs.Transactions
		t.Completed += cs.Completed
		t.CompletedAndViewed += cs.CompletedAndViewed
		t.ReceivedAndCompleted += cs.ReceivedAndCompleted
		t.InfluencedTransactions += cs.InfluencedTransactions
		t.TransactionReturn += cs.TransactionReturn
		t.RewardCost += cs.RewardCost
		t.NetReturn += cs.NetReturn
	}
	return t
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byCustomer)
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byCustomer = make(map[string]model.CustomerSummary)
	s.updatedAt = time.Time{}
}
