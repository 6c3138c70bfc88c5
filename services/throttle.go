package services

import (
	"math"
	"sync"
	"time"
)

const ThrottleCooldownCapSeconds = 30

// ReloadThrottle backs off users whose reloads keep failing: after n
// consecutive failures they wait min(30, 2^n) seconds. Success resets it.
type ReloadThrottle struct {
	mu    sync.Mutex
	state map[int64]throttleState
	now   func() time.Time
}

type throttleState struct {
	fails int
	until time.Time
}

func NewReloadThrottle() *ReloadThrottle {
	return &ReloadThrottle{state: make(map[int64]throttleState), now: time.Now}
}

// WaitSeconds returns how many seconds the user must wait before trying again (0 if no cooldown).
func (t *ReloadThrottle) WaitSeconds(userID int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.state[userID]
	if !ok {
		return 0
	}
	now := t.now()
	if now.Before(st.until) {
		return int(st.until.Sub(now).Seconds()) + 1 // round up
	}
	return 0
}

// RecordFailed increments the failure count and starts the cooldown.
func (t *ReloadThrottle) RecordFailed(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state[userID]
	st.fails++
	st.until = t.now().Add(time.Duration(CooldownSecondsForFailCount(st.fails)) * time.Second)
	t.state[userID] = st
}

// RecordSuccess forgets the user's failures.
func (t *ReloadThrottle) RecordSuccess(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.state, userID)
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}
