// Package session holds the patient currently selected for shared work, so a
// late-joining client can catch up without a REST round-trip. Best-effort
// convenience state: the authoritative record lives in the clinic database.
package session

import (
	"encoding/json"
	"sync"
	"time"
)

// Store is the process-wide slot for the current selection. Every select
// overwrites it whole; it is never cleared, only replaced.
type Store struct {
	mu      sync.RWMutex
	current json.RawMessage
}

func NewStore() *Store {
	return &Store{}
}

// Select overwrites the slot with the client's payload, stamping a timestamp
// if the client left it out. Last writer wins; there is no merge.
func (s *Store) Select(payload json.RawMessage, at time.Time) {
	stamped := stampTimestamp(payload, at)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = stamped
}

// Current returns the stored selection, or false if nothing was ever
// selected.
func (s *Store) Current() (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

func stampTimestamp(payload json.RawMessage, at time.Time) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		// Not an object; store it verbatim rather than lose it.
		return append(json.RawMessage(nil), payload...)
	}
	if _, ok := fields["timestamp"]; ok {
		return append(json.RawMessage(nil), payload...)
	}
	ts, err := json.Marshal(at.Format(time.RFC3339))
	if err != nil {
		return append(json.RawMessage(nil), payload...)
	}
	fields["timestamp"] = ts
	stamped, err := json.Marshal(fields)
	if err != nil {
		return append(json.RawMessage(nil), payload...)
	}
	return stamped
}
