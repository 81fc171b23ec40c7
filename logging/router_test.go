package logging_test

import (
	"context"
	"testing"
	"time"

	"skirmish/logging"
	"skirmish/logging/sinks"
)

func TestRouterDeliversAboveMinimumSeverity(t *testing.T) {
	mem := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo
	cfg.Fields = map[string]any{"service": "skirmish"}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	router, err := logging.NewRouter(logging.ClockFunc(func() time.Time { return fixed }), cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: "debug.only", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "battle.created", Severity: logging.SeverityInfo, BattleID: "b1"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.Type != "battle.created" {
		t.Fatalf("expected battle.created, got %s", got.Type)
	}
	if !got.Time.Equal(fixed) {
		t.Fatalf("expected clock time %v, got %v", fixed, got.Time)
	}
	if got.Extra["service"] != "skirmish" {
		t.Fatalf("expected router fields merged, got %v", got.Extra)
	}
	if stats := router.Stats(); stats.EventsTotal != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", stats.EventsTotal)
	}
}

func TestWithFieldsKeepsExistingKeys(t *testing.T) {
	mem := sinks.NewMemorySink()
	pub := logging.WithFields(mem, map[string]any{"battle": "outer", "seat": "p1"})
	pub.Publish(context.Background(), logging.Event{Type: "x", Extra: map[string]any{"battle": "inner"}})

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Extra["battle"] != "inner" {
		t.Fatalf("expected event key to win, got %v", events[0].Extra["battle"])
	}
	if events[0].Extra["seat"] != "p1" {
		t.Fatalf("expected seat field, got %v", events[0].Extra)
	}
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	mem := sinks.NewMemorySink()
	router, _ := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	if len(mem.Events()) != 0 {
		t.Fatalf("expected no events after close, got %d", len(mem.Events()))
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]logging.Severity{
		"debug":   logging.SeverityDebug,
		"warning": logging.SeverityWarn,
		"error":   logging.SeverityError,
		"":        logging.SeverityInfo,
	}
	for name, want := range cases {
		if got := logging.ParseSeverity(name); got != want {
			t.Fatalf("expected %s for %q, got %s", want, name, got)
		}
	}
}
