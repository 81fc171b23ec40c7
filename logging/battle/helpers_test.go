package battle

import (
	"context"
	"errors"
	"testing"

	"skirmish/logging"
	"skirmish/logging/sinks"
)

func TestHelpersPublishTypedEvents(t *testing.T) {
	mem := sinks.NewMemorySink()
	ctx := context.Background()

	Created(ctx, mem, "b1", CreatedPayload{Format: "singles", Seed: "s"}, nil)
	ChoiceRejected(ctx, mem, "b1", 2, logging.Side("p1"), RejectedPayload{Slot: 0, Code: "target-fainted"}, nil)
	DecisionTimeout(ctx, mem, "b1", 3, logging.Side("p2"), TimeoutPayload{Slots: []int{0}, Policy: "first-legal"}, nil)
	InternalError(ctx, mem, "b1", 3, errors.New("boom"), nil)
	InternalError(ctx, mem, "b1", 3, nil, nil)

	events := mem.Events()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].Type != EventChoiceRejected || events[1].Turn != 2 {
		t.Fatalf("expected rejected event on turn 2, got %+v", events[1])
	}
	if events[2].Severity != logging.SeverityWarn {
		t.Fatalf("expected timeout to warn, got %s", events[2].Severity)
	}
	payload, ok := events[3].Payload.(ErrorPayload)
	if !ok || payload.Error != "boom" {
		t.Fatalf("expected error payload, got %#v", events[3].Payload)
	}
}

func TestHelpersTolerateNilPublisher(t *testing.T) {
	Ended(context.Background(), nil, "b1", 1, EndedPayload{Result: "win"}, nil)
}
