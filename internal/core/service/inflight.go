package service

import "sync"

// inflightSet tracks which order ids have a mutation in flight. One token
// per order id, not a global lock.
type inflightSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func (s *inflightSet) acquire(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.ids[orderID]; taken {
		return false
	}
	s.ids[orderID] = struct{}{}
	return true
}

func (s *inflightSet) release(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, orderID)
}
