package config

import "sync"

// Store guards the live configuration. The polling loop takes one snapshot
// per round; control-surface writes land between rounds.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore returns a store seeded with cfg.
func NewStore(cfg Config) *Store {
	cfg.Normalize()
	return &Store{cfg: cfg.Clone()}
}

// Snapshot returns a deep copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Replace swaps in a new configuration wholesale.
func (s *Store) Replace(cfg Config) {
	cfg.Normalize()
	s.mu.Lock()
	s.cfg = cfg.Clone()
	s.mu.Unlock()
}

// Apply merges a partial JSON document onto the current configuration and
// returns the resulting snapshot. The stored config is untouched on error.
func (s *Store) Apply(data []byte) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg.Clone()
	if err := next.Merge(data); err != nil {
		return Config{}, err
	}
	s.cfg = next
	return next.Clone(), nil
}
