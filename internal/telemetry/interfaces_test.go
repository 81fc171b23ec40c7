package telemetry

import (
	"bytes"
	"log"
	"sync"
	"testing"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards to logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := log.New(&buf, "", 0)
		logger := WrapLogger(base)
		logger.Printf("hello %s", "world")
		if got := buf.String(); got != "hello world\n" {
			t.Fatalf("unexpected log output: %q", got)
		}
	})
}

func TestCounters(t *testing.T) {
	counters := NewCounters()

	counters.Add(MetricTurnsResolved, 2)
	counters.Store(MetricTurnsResolved, 5)
	counters.Add(MetricTurnsResolved, 3)
	counters.Sub(MetricBattlesActive, 1)

	snapshot := counters.Snapshot()
	if got := snapshot[MetricTurnsResolved]; got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
	if got := snapshot[MetricBattlesActive]; got != 0 {
		t.Fatalf("expected sub to stop at zero, got %d", got)
	}

	var nilCounters *Counters
	nilCounters.Add("ignored", 1)
	nilCounters.Store("ignored", 1)
	if nilCounters.Snapshot() != nil {
		t.Fatal("expected nil snapshot from nil counters")
	}
}

func TestCountersConcurrentAdd(t *testing.T) {
	counters := NewCounters()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				counters.Add(MetricBattlesStarted, 1)
			}
		}()
	}
	wg.Wait()
	if got := counters.Snapshot()[MetricBattlesStarted]; got != 800 {
		t.Fatalf("expected 800, got %d", got)
	}
	if keys := counters.Keys(); len(keys) != 1 || keys[0] != MetricBattlesStarted {
		t.Fatalf("unexpected keys %v", keys)
	}
}
