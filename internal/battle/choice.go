package battle

import (
	"context"
	"fmt"
	"slices"

	"skirmish/catalog"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
	"skirmish/logging"
	battlelog "skirmish/logging/battle"
)

// ChoiceKind tags the choice variants.
type ChoiceKind string

const (
	ChoiceMove   ChoiceKind = "move"
	ChoiceSwitch ChoiceKind = "switch"
	ChoiceItem   ChoiceKind = "item"
	ChoicePass   ChoiceKind = "pass"
	ChoiceTeam   ChoiceKind = "team"
)

// Choice is one player decision for one active position.
type Choice struct {
	Kind ChoiceKind `json:"kind"`
	Slot int        `json:"slot"`
	Move string     `json:"move,omitempty"`
	// Target is a target location for moves (foe position + 1, or the
	// negated ally position + 1; zero picks automatically) and a roster
	// index for items.
	Target int `json:"target,omitempty"`
	// Switch is the roster index to bring in.
	Switch int    `json:"switch,omitempty"`
	Item   string `json:"item,omitempty"`
	// Order is the team preview lead order as roster indices.
	Order []int `json:"order,omitempty"`
}

// StruggleID is the move used when nothing else is usable.
const StruggleID = "struggle"

// expected lists the slots that owe a choice in the current phase.
func (b *Battle) expected(side state.SideID) []int {
	s := b.sides[side]
	switch b.phase {
	case PhaseTeamPreview:
		return []int{0}
	case PhaseDecision:
		var slots []int
		for slot, c := range s.Active {
			if c.Active() {
				slots = append(slots, slot)
			}
		}
		return slots
	case PhaseFaintReplacement:
		return b.replacementSlots(side)
	}
	return nil
}

// replacementSlots lists empty or fainted positions on a side that still has
// reserves.
func (b *Battle) replacementSlots(side state.SideID) []int {
	s := b.sides[side]
	if len(s.Reserves()) == 0 {
		return nil
	}
	var slots []int
	for slot, c := range s.Active {
		if c == nil || c.Fainted {
			slots = append(slots, slot)
		}
	}
	return slots
}

// Waiting reports whether side still owes at least one choice.
func (b *Battle) Waiting(side state.SideID) bool {
	if b.Ended() || !side.Valid() {
		return false
	}
	return len(b.missing(side)) > 0
}

func (b *Battle) missing(side state.SideID) []int {
	var out []int
	for _, slot := range b.expected(side) {
		if _, ok := b.pending[side][slot]; !ok {
			out = append(out, slot)
		}
	}
	return out
}

// Ready reports whether every expected choice has been submitted.
func (b *Battle) Ready() bool {
	return !b.Ended() && !b.Waiting(state.SideOne) && !b.Waiting(state.SideTwo)
}

// Submit validates and records a choice. A rejected choice returns a
// *ValidationError and leaves the battle untouched.
func (b *Battle) Submit(side state.SideID, choice Choice) error {
	if b.Ended() {
		return ErrEnded
	}
	if !side.Valid() {
		return reject(side, choice.Slot, CodeNotExpected, "unknown side")
	}
	if verr := b.validate(side, choice); verr != nil {
		battlelog.ChoiceRejected(context.Background(), b.publisher, b.id, b.field.Turn, logging.Side(side.String()),
			battlelog.RejectedPayload{Slot: choice.Slot, Code: string(verr.Code), Reason: verr.Reason}, nil)
		return verr
	}
	choice.Move = catalog.ToID(choice.Move)
	choice.Item = catalog.ToID(choice.Item)
	b.pending[side][choice.Slot] = choice
	return nil
}

func (b *Battle) validate(side state.SideID, choice Choice) *ValidationError {
	slot := choice.Slot
	if !slices.Contains(b.expected(side), slot) {
		return reject(side, slot, CodeNotExpected, "no choice expected for slot %d in %s", slot, b.phase)
	}
	if _, dup := b.pending[side][slot]; dup {
		return reject(side, slot, CodeDuplicate, "slot %d already has a choice", slot)
	}
	switch b.phase {
	case PhaseTeamPreview:
		if choice.Kind != ChoiceTeam {
			return reject(side, slot, CodeNotExpected, "team preview expects a team choice")
		}
		return b.validateTeam(side, choice)
	case PhaseFaintReplacement:
		switch choice.Kind {
		case ChoiceSwitch:
			return b.validateSwitch(side, choice)
		case ChoicePass:
			if len(b.sides[side].Reserves()) >= len(b.replacementSlots(side)) {
				return reject(side, slot, CodeNotExpected, "a replacement is available")
			}
			return nil
		default:
			return reject(side, slot, CodeNotExpected, "replacement expects a switch")
		}
	}

	c := b.sides[side].At(slot)
	if !c.Active() {
		return reject(side, slot, CodeFainted, "no able combatant in slot %d", slot)
	}
	switch choice.Kind {
	case ChoiceMove:
		return b.validateMove(side, c, choice)
	case ChoiceSwitch:
		return b.validateSwitch(side, choice)
	case ChoiceItem:
		return b.validateItem(side, choice)
	case ChoicePass:
		return nil
	default:
		return reject(side, slot, CodeNotExpected, "unexpected %q choice", choice.Kind)
	}
}

func (b *Battle) validateTeam(side state.SideID, choice Choice) *ValidationError {
	roster := b.sides[side].Roster
	if len(choice.Order) == 0 || len(choice.Order) > len(roster) {
		return reject(side, choice.Slot, CodeBadTeamOrder, "order must list 1 to %d roster indices", len(roster))
	}
	seen := make(map[int]bool, len(choice.Order))
	for _, idx := range choice.Order {
		if idx < 0 || idx >= len(roster) {
			return reject(side, choice.Slot, CodeBadTeamOrder, "roster index %d out of range", idx)
		}
		if seen[idx] {
			return reject(side, choice.Slot, CodeBadTeamOrder, "roster index %d listed twice", idx)
		}
		seen[idx] = true
	}
	return nil
}

// usableMoves returns the moves c may pick right now.
func usableMoves(c *state.Combatant) []*state.MoveSlot {
	var out []*state.MoveSlot
	locked := c.ChoiceLock
	if lock := c.Move(locked); lock == nil || lock.PP <= 0 {
		locked = ""
	}
	for i := range c.Moves {
		m := &c.Moves[i]
		if m.PP <= 0 || m.Disabled {
			continue
		}
		if locked != "" && m.ID != locked {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (b *Battle) validateMove(side state.SideID, c *state.Combatant, choice Choice) *ValidationError {
	id := catalog.ToID(choice.Move)
	usable := usableMoves(c)
	if id == StruggleID {
		if len(usable) > 0 {
			return reject(side, choice.Slot, CodeMoveUnavailable, "struggle is only legal with no usable move")
		}
		return nil
	}
	slot := c.Move(id)
	if slot == nil {
		return reject(side, choice.Slot, CodeUnknownMove, "%s does not know %q", c.Name, id)
	}
	if !slices.Contains(usable, slot) {
		return reject(side, choice.Slot, CodeMoveUnavailable, "%q cannot be used now", id)
	}
	move, err := b.dex.Move(id)
	if err != nil {
		return reject(side, choice.Slot, CodeUnknownMove, "%v", err)
	}
	if !move.Target.NeedsChoice() || choice.Target == 0 {
		return nil
	}
	return b.validateTarget(c, move, choice)
}

func (b *Battle) validateTarget(user *state.Combatant, move catalog.Move, choice Choice) *ValidationError {
	loc := choice.Target
	var target *state.Combatant
	switch {
	case loc > 0:
		target = b.sides[user.Side.Foe()].At(loc - 1)
		if target == nil && (loc-1) >= b.rules.ActivePerSide {
			return reject(user.Side, choice.Slot, CodeIllegalTarget, "no foe position %d", loc)
		}
	case loc < 0:
		if move.Target == catalog.TargetAdjacentFoe {
			return reject(user.Side, choice.Slot, CodeIllegalTarget, "%q only targets foes", move.ID)
		}
		target = b.sides[user.Side].At(-loc - 1)
		if target == user {
			return reject(user.Side, choice.Slot, CodeIllegalTarget, "a move cannot target its user")
		}
	}
	if target == nil {
		return reject(user.Side, choice.Slot, CodeIllegalTarget, "target location %d is empty", loc)
	}
	if target.Fainted || target.HP == 0 {
		return reject(user.Side, choice.Slot, CodeTargetFainted, "%s has fainted", target.Name)
	}
	return nil
}

func (b *Battle) validateSwitch(side state.SideID, choice Choice) *ValidationError {
	roster := b.sides[side].Roster
	if choice.Switch < 0 || choice.Switch >= len(roster) {
		return reject(side, choice.Slot, CodeSwitchUnavailable, "roster index %d out of range", choice.Switch)
	}
	in := roster[choice.Switch]
	if !in.Available() {
		return reject(side, choice.Slot, CodeSwitchUnavailable, "%s cannot switch in", in.Name)
	}
	for _, other := range b.pending[side] {
		if other.Kind == ChoiceSwitch && other.Switch == choice.Switch {
			return reject(side, choice.Slot, CodeSwitchUnavailable, "%s is already switching in", in.Name)
		}
	}
	return nil
}

func (b *Battle) validateItem(side state.SideID, choice Choice) *ValidationError {
	id := catalog.ToID(choice.Item)
	s := b.sides[side]
	left := s.Bag[id]
	for _, other := range b.pending[side] {
		if other.Kind == ChoiceItem && other.Item == id {
			left--
		}
	}
	if left <= 0 {
		return reject(side, choice.Slot, CodeItemUnavailable, "no %q left in the bag", id)
	}
	if choice.Target < 0 || choice.Target >= len(s.Roster) {
		return reject(side, choice.Slot, CodeIllegalTarget, "roster index %d out of range", choice.Target)
	}
	if s.Roster[choice.Target].Fainted {
		return reject(side, choice.Slot, CodeTargetFainted, "%s has fainted", s.Roster[choice.Target].Name)
	}
	return nil
}

// FillDefaults submits the default choice for every slot of side that has
// none, and returns the slots it filled.
func (b *Battle) FillDefaults(side state.SideID) []int {
	if b.Ended() || !side.Valid() {
		return nil
	}
	var filled []int
	for _, slot := range b.missing(side) {
		choice := b.defaultChoice(side, slot)
		if err := b.Submit(side, choice); err != nil {
			// Pass is always accepted where nothing else is legal.
			choice = Choice{Kind: ChoicePass, Slot: slot}
			b.pending[side][slot] = choice
		}
		filled = append(filled, slot)
		b.emit(journal.Event{Kind: journal.KindDefault, Side: side.String(), Slot: slot, Value: string(choice.Kind)})
	}
	return filled
}

func (b *Battle) defaultChoice(side state.SideID, slot int) Choice {
	s := b.sides[side]
	switch b.phase {
	case PhaseTeamPreview:
		order := make([]int, len(s.Roster))
		for i := range order {
			order[i] = i
		}
		return Choice{Kind: ChoiceTeam, Slot: slot, Order: order}
	case PhaseFaintReplacement:
		for _, c := range s.Reserves() {
			if b.validateSwitch(side, Choice{Kind: ChoiceSwitch, Slot: slot, Switch: c.RosterIndex}) == nil {
				return Choice{Kind: ChoiceSwitch, Slot: slot, Switch: c.RosterIndex}
			}
		}
		return Choice{Kind: ChoicePass, Slot: slot}
	}
	if b.rules.DefaultPolicy == PolicyPass {
		return Choice{Kind: ChoicePass, Slot: slot}
	}
	c := s.At(slot)
	if usable := usableMoves(c); len(usable) > 0 {
		return Choice{Kind: ChoiceMove, Slot: slot, Move: usable[0].ID}
	}
	return Choice{Kind: ChoiceMove, Slot: slot, Move: StruggleID}
}

// Forfeit concedes the battle for side; the other side wins.
func (b *Battle) Forfeit(side state.SideID) error {
	if b.Ended() {
		return ErrEnded
	}
	if !side.Valid() {
		return fmt.Errorf("battle: forfeit by invalid side %d", side)
	}
	b.sides[side].Forfeited = true
	b.emit(journal.Event{Kind: journal.KindForfeit, Side: side.String()})
	b.finish(ResultWin, side.Foe(), ReasonForfeit)
	return nil
}
