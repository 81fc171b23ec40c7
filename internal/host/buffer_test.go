package host

import (
	"testing"

	"skirmish/internal/battle"
	"skirmish/internal/telemetry"
)

func batch(move string) submission {
	return submission{choices: []battle.Choice{{Kind: battle.ChoiceMove, Move: move}}, reply: make(chan Reply, 1)}
}

func TestChoiceBufferWraparound(t *testing.T) {
	buffer := NewChoiceBuffer(3, nil)
	subs := []submission{batch("a"), batch("b"), batch("c")}
	for _, sub := range subs {
		if !buffer.Push(sub) {
			t.Fatalf("expected push to succeed for %+v", sub.choices)
		}
	}
	if buffer.Push(batch("overflow")) {
		t.Fatalf("expected push to fail when buffer full")
	}
	first, ok := buffer.Pop()
	if !ok || first.choices[0].Move != "a" {
		t.Fatalf("expected a first, got %+v", first.choices)
	}
	if !buffer.Push(batch("d")) {
		t.Fatalf("expected push to succeed after pop")
	}
	drained := buffer.Drain()
	want := []string{"b", "c", "d"}
	if len(drained) != len(want) {
		t.Fatalf("expected %d batches, got %d", len(want), len(drained))
	}
	for i, sub := range drained {
		if sub.choices[0].Move != want[i] {
			t.Fatalf("expected drain order %v, got %v", want[i], sub.choices[0].Move)
		}
	}
	if _, ok := buffer.Pop(); ok {
		t.Fatalf("expected empty buffer after drain")
	}
}

func TestChoiceBufferMetricsAndSignal(t *testing.T) {
	counters := telemetry.NewCounters()
	buffer := NewChoiceBuffer(1, counters)
	if !buffer.Push(batch("one")) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(batch("two")) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	select {
	case <-buffer.Ready():
	default:
		t.Fatalf("expected a ready signal after push")
	}
	snap := counters.Snapshot()
	if snap[choiceBufferOverflowMetricKey] != 1 {
		t.Fatalf("expected one overflow, got %d", snap[choiceBufferOverflowMetricKey])
	}
	if snap[choiceBufferOccupancyMetricKey] != 1 {
		t.Fatalf("expected occupancy 1, got %d", snap[choiceBufferOccupancyMetricKey])
	}
	buffer.Drain()
	if counters.Snapshot()[choiceBufferOccupancyMetricKey] != 0 {
		t.Fatalf("expected occupancy reset after drain")
	}
}
