package clock_test

import (
	"sync"
	"testing"
	"time"

	"worksim/internal/clock"
)

func TestAdvanceToEndOfDay(t *testing.T) {
	c := clock.New()
	if c.Active() {
		t.Fatalf("new clock should be inactive")
	}
	if c.Advance() {
		t.Fatalf("advance on inactive clock should fail")
	}
	c.Start()
	for h := 1; h <= clock.MaxHours; h++ {
		if !c.Advance() {
			t.Fatalf("advance to hour %d failed", h)
		}
		if c.Hour() != h {
			t.Fatalf("expected hour %d, got %d", h, c.Hour())
		}
	}
	if !c.IsDayComplete() {
		t.Fatalf("day should be complete at hour %d", clock.MaxHours)
	}
	if c.Advance() {
		t.Fatalf("advance past the last hour should fail")
	}
	if c.Active() {
		t.Fatalf("clock should deactivate after the last hour")
	}
	if c.Hour() != clock.MaxHours {
		t.Fatalf("hour moved past max: %d", c.Hour())
	}
}

func TestStopCompletesDay(t *testing.T) {
	c := clock.New()
	c.Start()
	c.Advance()
	c.Stop()
	if !c.IsDayComplete() {
		t.Fatalf("stopped clock should report a complete day")
	}
	if c.RemainingHours() != clock.MaxHours-1 {
		t.Fatalf("unexpected remaining hours %d", c.RemainingHours())
	}
}

func TestChangedBroadcastsToAllReaders(t *testing.T) {
	c := clock.New()
	c.Start()
	var reader clock.Reader = c

	const readers = 5
	var wg sync.WaitGroup
	seen := make(chan int, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				ch := reader.Changed()
				if h := reader.Hour(); h > 0 {
					seen <- h
					return
				}
				select {
				case <-ch:
				case <-time.After(2 * time.Second):
					seen <- -1
					return
				}
			}
		}()
	}
	c.Advance()
	wg.Wait()
	close(seen)
	for h := range seen {
		if h != 1 {
			t.Fatalf("reader observed %d, want 1", h)
		}
	}
}
