package roster

import "sync"

// teamLocks serializes multi-step engine operations per team. The record
// store only serializes individual writes; without this, two concurrent
// operations on the same team could interleave between steps.
type teamLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newTeamLocks() *teamLocks {
	return &teamLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the advisory lock for a team and returns its unlock func.
func (l *teamLocks) lock(teamID string) func() {
	l.mu.Lock()
	m, ok := l.locks[teamID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[teamID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
