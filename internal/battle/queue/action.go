// Package queue orders one turn's actions and hands them out in execution
// order.
package queue

import (
	"fmt"

	"skirmish/internal/battle/state"
)

// Kind tags the action variants.
type Kind string

const (
	KindSwitch Kind = "switch"
	KindItem   Kind = "item"
	KindMove   Kind = "move"
	KindPass   Kind = "pass"
)

// OrderTable maps action kinds to order classes. Lower classes act first.
type OrderTable map[Kind]int

// DefaultOrder returns switch before item before move.
func DefaultOrder() OrderTable {
	return OrderTable{KindSwitch: 103, KindItem: 150, KindMove: 200, KindPass: 300}
}

// Class returns the order class for k. Kinds missing from the table act
// after every listed kind.
func (t OrderTable) Class(k Kind) int {
	if class, ok := t[k]; ok {
		return class
	}
	if class, ok := DefaultOrder()[k]; ok {
		return class
	}
	return 1 << 20
}

// Validate requires switch < item < move.
func (t OrderTable) Validate() error {
	sw, item, move := t.Class(KindSwitch), t.Class(KindItem), t.Class(KindMove)
	if !(sw < item && item < move) {
		return fmt.Errorf("queue: order classes must rank switch < item < move, got %d/%d/%d", sw, item, move)
	}
	return nil
}

// Action is one queued choice with its derived ordering keys. The keys are
// only meaningful for the turn they were computed in.
type Action struct {
	Kind  Kind
	Actor *state.Combatant
	Side  state.SideID
	Slot  int

	// Move and Target are set for KindMove. Target is a target location:
	// positive for a foe position (slot+1), negative for an ally, zero when
	// the move picks its own targets.
	Move   string
	Target int

	SwitchTo *state.Combatant

	Item       string
	ItemTarget *state.Combatant

	Order    int
	Priority int
	Speed    int
}

func (a Action) String() string {
	actor := "-"
	if a.Actor != nil {
		actor = a.Actor.ID
	}
	switch a.Kind {
	case KindMove:
		return fmt.Sprintf("%s move %s -> %d", actor, a.Move, a.Target)
	case KindSwitch:
		to := "-"
		if a.SwitchTo != nil {
			to = a.SwitchTo.ID
		}
		return fmt.Sprintf("%s switch %s", actor, to)
	case KindItem:
		return fmt.Sprintf("%s item %s", actor, a.Item)
	default:
		return fmt.Sprintf("%s %s", actor, a.Kind)
	}
}

// compare returns a negative number when a acts before b, zero on a tie.
func compare(a, b Action) int {
	if a.Order != b.Order {
		return a.Order - b.Order
	}
	if a.Priority != b.Priority {
		return b.Priority - a.Priority
	}
	return b.Speed - a.Speed
}
