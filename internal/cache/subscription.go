package cache

// Subscription is a consumer's interest in one cache key. The entry stays
// alive, and keeps refreshing, while at least one Subscription is open.
type Subscription struct {
	cache *Cache
	key   Key
	id    uint64

	// guarded by cache.mu
	updates chan Entry
	last    Entry
	closed  bool
}

// Key returns the subscribed key.
func (s *Subscription) Key() Key {
	return s.key
}

// Entry returns the current state of the entry.
func (s *Subscription) Entry() Entry {
	return s.cache.entryState(s)
}

// Updates delivers the entry state after every change. Only the latest state
// is buffered; a slow reader skips intermediate states. The channel is closed
// when the subscription or the cache is closed.
func (s *Subscription) Updates() <-chan Entry {
	return s.updates
}

// Refresh forces a fetch now unless one is already in flight.
func (s *Subscription) Refresh() {
	s.cache.refresh(s)
}

// Close releases the subscription. Closing the last subscription for a key
// cancels its scheduled refresh and evicts the entry. Close is idempotent.
func (s *Subscription) Close() {
	s.cache.unsubscribe(s)
}

func (s *Subscription) publishLocked(state Entry) {
	s.last = state
	select {
	case <-s.updates:
	default:
	}
	s.updates <- state
}

func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	if e, ok := s.cache.entries[s.key]; ok {
		s.last = e.state
	}
	s.closed = true
	close(s.updates)
}
