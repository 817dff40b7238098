package utils

import (
	"sync"
	"time"
)

// TimerSet holds at most one scheduled callback per key. Scheduling a key
// replaces any callback already pending for it.
type TimerSet struct {
	clock Clock

	mu     sync.Mutex
	gen    uint64
	timers map[string]keyedTimer
}

type keyedTimer struct {
	timer Timer
	gen   uint64
}

func NewTimerSet(clock Clock) *TimerSet {
	return &TimerSet{
		clock:  clock,
		timers: make(map[string]keyedTimer),
	}
}

// Schedule runs f after d unless the key is cancelled or rescheduled first.
func (s *TimerSet) Schedule(key string, d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.timers[key]; ok {
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	t := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		cur, ok := s.timers[key]
		if !ok || cur.gen != gen {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		f()
	})
	s.timers[key] = keyedTimer{timer: t, gen: gen}
}

// Cancel stops the pending callback for key. It reports whether one was pending.
func (s *TimerSet) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.timers, key)
	return true
}

func (s *TimerSet) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// Stop cancels every pending callback.
func (s *TimerSet) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, key)
	}
}
