package store

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// LocalState is the small key/value file holding the last local harvest
// timestamp and the harvest lock stamp. It is non-authoritative and safe
// to lose: the global cooldown has an on-chain/ledger fallback.
type LocalState struct {
	path string
	mu   sync.Mutex
}

type localStateFile struct {
	LastHarvestUnixMS  int64 `json:"last_harvest_unix_ms"`
	LockAcquiredUnixMS int64 `json:"lock_acquired_unix_ms"`
}

// NewLocalState creates a state handle for the given file path.
// The file is created lazily on first write.
func NewLocalState(path string) *LocalState {
	return &LocalState{path: path}
}

// LastHarvest returns the last local harvest time, zero if unknown.
func (s *LocalState) LastHarvest() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return msToTime(s.read().LastHarvestUnixMS)
}

// SetLastHarvest records a successful harvest submission time.
func (s *LocalState) SetLastHarvest(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.read()
	f.LastHarvestUnixMS = t.UnixMilli()
	return s.write(f)
}

// LockAcquiredAt returns when the harvest lock was stamped, zero if free.
func (s *LocalState) LockAcquiredAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return msToTime(s.read().LockAcquiredUnixMS)
}

// SetLockAcquired stamps the harvest lock.
func (s *LocalState) SetLockAcquired(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.read()
	f.LockAcquiredUnixMS = t.UnixMilli()
	return s.write(f)
}

// ClearLock releases the harvest lock stamp.
func (s *LocalState) ClearLock() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.read()
	f.LockAcquiredUnixMS = 0
	return s.write(f)
}

// read tolerates a missing or corrupt file: zero values mean "no state",
// which only shortens cooldown protection, never blocks it.
func (s *LocalState) read() localStateFile {
	var f localStateFile
	data, err := os.ReadFile(s.path)
	if err != nil {
		return f
	}
	_ = json.Unmarshal(data, &f)
	return f
}

func (s *LocalState) write(f localStateFile) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
