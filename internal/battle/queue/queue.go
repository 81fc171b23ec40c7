package queue

import (
	"skirmish/internal/battle/state"
	"skirmish/internal/rng"
)

// Sort orders actions by class, priority and speed. Ties are broken with r so
// the order never depends on submission order but replays for a seed.
func Sort(actions []Action, r *rng.PRNG) {
	for sorted := 0; sorted < len(actions)-1; {
		best := []int{sorted}
		for i := sorted + 1; i < len(actions); i++ {
			switch c := compare(actions[i], actions[best[0]]); {
			case c < 0:
				best = best[:0]
				best = append(best, i)
			case c == 0:
				best = append(best, i)
			}
		}
		start := sorted
		for _, idx := range best {
			if idx != sorted {
				actions[sorted], actions[idx] = actions[idx], actions[sorted]
			}
			sorted++
		}
		if len(best) > 1 {
			rng.Shuffle(r, actions, start, sorted)
		}
	}
}

// Queue hands out one turn's actions in order.
type Queue struct {
	actions []Action
	// Stale reports whether a queued action can no longer run.
	Stale func(Action) bool
	// OnSkip is told about every action dropped as stale.
	OnSkip func(Action)
}

// New sorts actions and returns a queue over them.
func New(actions []Action, r *rng.PRNG) *Queue {
	copied := append([]Action(nil), actions...)
	Sort(copied, r)
	return &Queue{actions: copied}
}

// Len reports the number of queued actions.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.actions)
}

// Peek returns the queued actions in order without consuming them.
func (q *Queue) Peek() []Action {
	if q == nil {
		return nil
	}
	return append([]Action(nil), q.actions...)
}

// Next pops the next runnable action. Stale actions are dropped on the way.
func (q *Queue) Next() (Action, bool) {
	if q == nil {
		return Action{}, false
	}
	for len(q.actions) > 0 {
		next := q.actions[0]
		q.actions = q.actions[1:]
		if q.Stale != nil && q.Stale(next) {
			if q.OnSkip != nil {
				q.OnSkip(next)
			}
			continue
		}
		return next, true
	}
	return Action{}, false
}

// Cancel drops every queued action taken by actor and returns how many were
// removed.
func (q *Queue) Cancel(actor *state.Combatant) int {
	if q == nil {
		return 0
	}
	kept := q.actions[:0]
	removed := 0
	for _, a := range q.actions {
		if actor != nil && a.Actor == actor {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	q.actions = kept
	return removed
}

// Resort recomputes the order of the remaining actions, as when speeds
// changed mid-turn.
func (q *Queue) Resort(r *rng.PRNG, rekey func(*Action)) {
	if q == nil {
		return
	}
	if rekey != nil {
		for i := range q.actions {
			rekey(&q.actions[i])
		}
	}
	Sort(q.actions, r)
}
