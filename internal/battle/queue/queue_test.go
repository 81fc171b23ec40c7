package queue

import (
	"testing"

	"skirmish/internal/battle/state"
	"skirmish/internal/rng"
)

func combatant(id string) *state.Combatant {
	return &state.Combatant{ID: id, Slot: 0}
}

func moveAction(actor *state.Combatant, priority, speed int) Action {
	return Action{Kind: KindMove, Actor: actor, Move: "tackle", Order: DefaultOrder().Class(KindMove), Priority: priority, Speed: speed}
}

func ids(actions []Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Actor.ID
	}
	return out
}

func TestFasterActsFirst(t *testing.T) {
	slow, fast := combatant("slow"), combatant("fast")
	actions := []Action{moveAction(slow, 0, 90), moveAction(fast, 0, 100)}
	Sort(actions, rng.NewFromValue(1))
	if got := ids(actions); got[0] != "fast" || got[1] != "slow" {
		t.Fatalf("expected fast before slow, got %v", got)
	}
}

func TestPriorityBeatsSpeed(t *testing.T) {
	quick, fast := combatant("quick"), combatant("fast")
	actions := []Action{moveAction(fast, 0, 300), moveAction(quick, 1, 10)}
	Sort(actions, rng.NewFromValue(1))
	if got := ids(actions); got[0] != "quick" {
		t.Fatalf("expected priority move first, got %v", got)
	}
}

func TestSwitchBeforeItemBeforeMove(t *testing.T) {
	order := DefaultOrder()
	mover, user, switcher := combatant("mover"), combatant("user"), combatant("switcher")
	actions := []Action{
		{Kind: KindMove, Actor: mover, Order: order.Class(KindMove), Priority: 5, Speed: 500},
		{Kind: KindItem, Actor: user, Order: order.Class(KindItem), Speed: 1},
		{Kind: KindSwitch, Actor: switcher, Order: order.Class(KindSwitch), Speed: 1},
	}
	Sort(actions, rng.NewFromValue(1))
	got := ids(actions)
	if got[0] != "switcher" || got[1] != "user" || got[2] != "mover" {
		t.Fatalf("expected switch, item, move, got %v", got)
	}
}

func TestSpeedTiesUseRNG(t *testing.T) {
	a, b := combatant("a"), combatant("b")
	seen := map[string]bool{}
	for seed := int64(0); seed < 64; seed++ {
		actions := []Action{moveAction(a, 0, 100), moveAction(b, 0, 100)}
		Sort(actions, rng.NewFromValue(seed))
		seen[actions[0].Actor.ID] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("expected both tie orders across seeds, saw %v", seen)
	}
}

func TestSortReplaysForSeed(t *testing.T) {
	var first []string
	for run := 0; run < 2; run++ {
		actions := []Action{
			moveAction(combatant("a"), 0, 100),
			moveAction(combatant("b"), 0, 100),
			moveAction(combatant("c"), 0, 100),
			moveAction(combatant("d"), 0, 50),
		}
		Sort(actions, rng.NewFromValue(42))
		got := ids(actions)
		if got[3] != "d" {
			t.Fatalf("expected slowest last, got %v", got)
		}
		if run == 0 {
			first = got
			continue
		}
		for i := range got {
			if got[i] != first[i] {
				t.Fatalf("expected identical order for one seed, got %v and %v", first, got)
			}
		}
	}
}

func TestNextSkipsStaleActions(t *testing.T) {
	alive, gone := combatant("alive"), combatant("gone")
	q := New([]Action{moveAction(gone, 0, 200), moveAction(alive, 0, 100)}, rng.NewFromValue(1))
	gone.Fainted = true
	q.Stale = func(a Action) bool { return a.Actor.Fainted }
	var skipped []string
	q.OnSkip = func(a Action) { skipped = append(skipped, a.Actor.ID) }

	next, ok := q.Next()
	if !ok || next.Actor != alive {
		t.Fatalf("expected alive to act, got %v ok=%v", next, ok)
	}
	if len(skipped) != 1 || skipped[0] != "gone" {
		t.Fatalf("expected gone to be skipped, got %v", skipped)
	}
	if _, ok := q.Next(); ok {
		t.Fatal("expected queue to be exhausted")
	}
}

func TestCancelRemovesActorActions(t *testing.T) {
	a, b := combatant("a"), combatant("b")
	q := New([]Action{moveAction(a, 0, 100), moveAction(b, 0, 90)}, rng.NewFromValue(1))
	if removed := q.Cancel(a); removed != 1 {
		t.Fatalf("expected one removal, got %d", removed)
	}
	if q.Len() != 1 || q.Peek()[0].Actor != b {
		t.Fatalf("expected only b to remain, got %v", q.Peek())
	}
}

func TestOrderTableValidate(t *testing.T) {
	if err := DefaultOrder().Validate(); err != nil {
		t.Fatalf("default order invalid: %v", err)
	}
	bad := OrderTable{KindSwitch: 300, KindItem: 150, KindMove: 200}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected switch after move to be rejected")
	}
}

func TestResortFollowsNewSpeeds(t *testing.T) {
	first, second, third := combatant("first"), combatant("second"), combatant("third")
	q := New([]Action{moveAction(first, 0, 300), moveAction(second, 0, 200), moveAction(third, 0, 100)}, rng.NewFromValue(1))
	if next, _ := q.Next(); next.Actor != first {
		t.Fatalf("expected first to act first, got %s", next.Actor.ID)
	}
	speeds := map[*state.Combatant]int{second: 50, third: 400}
	q.Resort(rng.NewFromValue(1), func(a *Action) { a.Speed = speeds[a.Actor] })
	if got := ids(q.Peek()); got[0] != "third" || got[1] != "second" {
		t.Fatalf("expected third ahead of second after resort, got %v", got)
	}
	var empty *Queue
	empty.Resort(rng.NewFromValue(1), nil)
}
