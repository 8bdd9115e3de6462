// Package clock supplies the time source that stamps runtime events.
package clock

import (
	"sync"
	"time"
)

// UTC reads the wall clock in UTC.
type UTC struct{}

func (UTC) Now() time.Time {
	return time.Now().UTC()
}

// Sequence hands out stamps from a fixed start. Each read returns the
// current stamp and moves the sequence forward by step, so no two reads
// share a time when step is positive.
type Sequence struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewSequence creates a sequence whose first stamp is start.
func NewSequence(start time.Time, step time.Duration) *Sequence {
	return &Sequence{next: start, step: step}
}

func (s *Sequence) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.next
	s.next = s.next.Add(s.step)
	return t
}

// Peek returns the stamp the next read hands out.
func (s *Sequence) Peek() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Skip moves the sequence forward by d without handing out a stamp.
func (s *Sequence) Skip(d time.Duration) {
	s.mu.Lock()
	s.next = s.next.Add(d)
	s.mu.Unlock()
}
