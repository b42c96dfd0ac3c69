package cache

import "sync"

// Record is the value stored per ticker. Each section holds records of a
// single shape (quote or stat); the cache itself does not care which.
type Record interface {
	Ticker() string
}

// Section is one named cache region: a lock-guarded mapping from uppercase
// ticker symbol to the latest known record. Records are only ever inserted
// or overwritten by a merge, never deleted, so a ticker that stops
// resolving keeps serving its last good value.
type Section struct {
	mu   sync.RWMutex
	data map[string]Record
}

func NewSection() *Section {
	return &Section{data: make(map[string]Record)}
}

// Snapshot returns a copy of the section's current contents. The lock is
// held only for the duration of the copy and the returned map belongs to
// the caller; mutating it does not touch the section.
func (s *Section) Snapshot() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Record, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Merge inserts or overwrites the given records under the section lock.
// Keys absent from updates are left untouched, so a partial fetch never
// destroys existing data. A concurrent Snapshot observes either none or
// all of one merge. Merging an empty map is a cheap no-op.
func (s *Section) Merge(updates map[string]Record) {
	if len(updates) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range updates {
		s.data[k] = v
	}
}

// Len reports the number of records currently held.
func (s *Section) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
