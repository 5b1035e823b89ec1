package issues

import (
	"sync"

	"offerlens/internal/model"
)

// Store is a bounded buffer of data-quality errors from the last run.
type Store struct {
	mu    sync.RWMutex
	buf   []model.CustomerError
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 1000
	}
	return &Store{limit: limit}
}

func (s *Store) Add(issue model.CustomerError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(issue)
}

func (s *Store) add(issue model.CustomerError) {
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, issue)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = issue
}

func (s *Store) Replace(list []model.CustomerError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	for _, issue := range list {
		s.add(issue)
	}
}

func (s *Store) List(limit int) []model.CustomerError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]model.CustomerError, 0, limit)
	start := len(s.buf) - limit
	for i := start; i < len(s.buf); i++ {
		out = append(out, s.buf[i])
	}
	return out
}

func (s *Store) ForCustomer(customerID string) []model.CustomerError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.CustomerError
	for _, issue := range s.buf {
		if issue.CustomerID == customerID {
			out = append(out, issue)
		}
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
}
