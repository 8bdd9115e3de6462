package clock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/artpar/deepgraph/adapters/clock"
)

func TestUTC(t *testing.T) {
	before := time.Now()
	got := clock.UTC{}.Now()
	if got.Before(before) || got.After(time.Now()) {
		t.Errorf("Now() = %v out of range", got)
	}
	if got.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", got.Location())
	}
}

func TestSequence(t *testing.T) {
	start := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := clock.NewSequence(start, time.Second)

	if !s.Peek().Equal(start) {
		t.Errorf("Peek() = %v, want %v", s.Peek(), start)
	}
	if got := s.Now(); !got.Equal(start) {
		t.Errorf("first Now() = %v, want %v", got, start)
	}
	if got := s.Now(); !got.Equal(start.Add(time.Second)) {
		t.Errorf("second Now() = %v, want start+1s", got)
	}

	s.Skip(time.Minute)
	if want := start.Add(2*time.Second + time.Minute); !s.Now().Equal(want) {
		t.Errorf("after Skip Now() != %v", want)
	}
}

func TestSequence_ZeroStep(t *testing.T) {
	start := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := clock.NewSequence(start, 0)
	for i := 0; i < 3; i++ {
		if got := s.Now(); !got.Equal(start) {
			t.Fatalf("read %d = %v, want %v", i, got, start)
		}
	}
}

func TestSequence_Concurrent(t *testing.T) {
	s := clock.NewSequence(time.Time{}, time.Second)

	var (
		mu   sync.Mutex
		seen = make(map[time.Time]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stamp := s.Now()
			mu.Lock()
			seen[stamp] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Errorf("distinct stamps = %d, want 50", len(seen))
	}
	if got := s.Peek().Sub(time.Time{}); got != 50*time.Second {
		t.Errorf("next stamp offset = %v, want 50s", got)
	}
}
