package harvest

import (
	"time"

	"github.com/sequencetheory/vaultclub/internal/store"
)

// advisoryLock is the time-bounded harvest lock. The stamp lives in the
// local state file so independent triggers (timer tick, user click,
// process restart) see each other; the TTL guarantees a crashed attempt
// can never lock harvesting out permanently.
type advisoryLock struct {
	state *store.LocalState
	ttl   time.Duration
	now   func() time.Time
}

// tryAcquire stamps the lock if it is free or expired.
func (l *advisoryLock) tryAcquire() bool {
	acquiredAt := l.state.LockAcquiredAt()
	if !acquiredAt.IsZero() && l.now().Sub(acquiredAt) < l.ttl {
		return false
	}
	return l.state.SetLockAcquired(l.now()) == nil
}

// release clears the stamp. Safe to call when not held.
func (l *advisoryLock) release() {
	_ = l.state.ClearLock()
}

// held reports whether an unexpired stamp exists.
func (l *advisoryLock) held() bool {
	acquiredAt := l.state.LockAcquiredAt()
	return !acquiredAt.IsZero() && l.now().Sub(acquiredAt) < l.ttl
}
