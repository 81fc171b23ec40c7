package battle

import (
	"context"
	"fmt"

	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/queue"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
	battlelog "skirmish/logging/battle"
)

// Start finishes team preview: missing team choices default to roster order,
// leads are placed and their switch-in effects run fastest first.
func (b *Battle) Start() error {
	if b.Ended() {
		return ErrEnded
	}
	if b.phase != PhaseTeamPreview {
		return fmt.Errorf("battle: start in phase %s", b.phase)
	}
	for side := range b.sides {
		b.FillDefaults(state.SideID(side))
	}
	return b.guard(b.start())
}

func (b *Battle) start() error {
	b.emit(journal.Event{Kind: journal.KindStart, Value: b.rules.Name})
	for i, side := range b.sides {
		choice := b.pending[i][0]
		for slot, idx := range leads(choice.Order, len(side.Roster), b.rules.ActivePerSide) {
			c := side.Roster[idx]
			side.Place(slot, c)
			b.entered[c] = b.nextOrder()
			b.emitSwitch(journal.KindSwitch, c)
		}
	}
	b.clearPending()
	if err := b.refreshSpeeds(); err != nil {
		return err
	}
	for _, c := range b.bySpeed(b.active()) {
		if _, err := b.events.Run(dispatch.Event{ID: dispatch.SwitchIn, Target: c}); err != nil {
			return err
		}
	}
	if err := b.processFaints(); err != nil {
		return err
	}
	if b.checkWin() {
		return nil
	}
	b.phase = PhaseDecision
	return nil
}

// leads expands a team order into the roster indices that start active.
func leads(order []int, rosterSize, active int) []int {
	out := make([]int, 0, active)
	used := make(map[int]bool, active)
	for _, idx := range order {
		if len(out) == active {
			return out
		}
		out = append(out, idx)
		used[idx] = true
	}
	for idx := 0; idx < rosterSize && len(out) < active; idx++ {
		if !used[idx] {
			out = append(out, idx)
		}
	}
	return out
}

func (b *Battle) clearPending() {
	for i := range b.pending {
		b.pending[i] = make(map[int]Choice)
	}
}

// Advance runs the phase the submitted choices unblock: team preview, a full
// turn (execution and residual) or faint replacement.
func (b *Battle) Advance() error {
	if b.Ended() {
		return ErrEnded
	}
	if !b.Ready() {
		return ErrNotReady
	}
	switch b.phase {
	case PhaseTeamPreview:
		return b.guard(b.start())
	case PhaseDecision:
		return b.guard(b.turn())
	case PhaseFaintReplacement:
		return b.guard(b.replace())
	}
	return fmt.Errorf("battle: advance in phase %s", b.phase)
}

// guard converts an error from the resolution path into a halted battle.
func (b *Battle) guard(err error) error {
	if err == nil {
		return nil
	}
	err = internal(err)
	b.halt(err)
	return err
}

func (b *Battle) turn() error {
	b.phase = PhaseExecuting
	b.inTurn = true
	b.turnStart = b.journal.Len()
	b.turnActions = 0
	if err := b.refreshSpeeds(); err != nil {
		return err
	}
	actions, err := b.buildActions()
	if err != nil {
		return err
	}
	b.clearPending()
	b.turnActions = len(actions)
	b.queue = queue.New(actions, b.rng)
	b.queue.Stale = b.stale
	b.queue.OnSkip = func(a queue.Action) {
		b.emit(journal.Event{Kind: journal.KindCant, Target: a.Actor.ID, Effect: "stale", Value: string(a.Kind)})
	}
	for {
		action, ok := b.queue.Next()
		if !ok {
			break
		}
		if err := b.runAction(action); err != nil {
			return fmt.Errorf("%s: %w", action, err)
		}
		if err := b.processFaints(); err != nil {
			return err
		}
		if b.checkWin() {
			return nil
		}
		if err := b.resortQueue(); err != nil {
			return err
		}
	}
	b.queue = nil

	if err := b.residual(); err != nil {
		return err
	}
	if b.Ended() {
		return nil
	}
	b.endTurn()
	return nil
}

// resortQueue reorders the rest of the turn when an action changed the
// speed of a combatant still waiting to act.
func (b *Battle) resortQueue() error {
	if b.queue.Len() == 0 {
		return nil
	}
	if err := b.refreshSpeeds(); err != nil {
		return err
	}
	changed := false
	for _, a := range b.queue.Peek() {
		if a.Actor.Active() && b.Speed(a.Actor) != a.Speed {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	b.queue.Resort(b.rng, func(a *queue.Action) {
		if a.Actor.Active() {
			a.Speed = b.Speed(a.Actor)
		}
	})
	return nil
}

func (b *Battle) buildActions() ([]queue.Action, error) {
	var actions []queue.Action
	for i, side := range b.sides {
		for slot := range side.Active {
			choice, ok := b.pending[i][slot]
			if !ok {
				continue
			}
			c := side.At(slot)
			a := queue.Action{Actor: c, Side: side.ID, Slot: slot, Speed: b.Speed(c)}
			switch choice.Kind {
			case ChoiceMove:
				a.Kind = queue.KindMove
				a.Move = choice.Move
				a.Target = choice.Target
				priority, err := b.movePriority(c, choice.Move)
				if err != nil {
					return nil, err
				}
				a.Priority = priority
			case ChoiceSwitch:
				a.Kind = queue.KindSwitch
				a.SwitchTo = side.Roster[choice.Switch]
			case ChoiceItem:
				a.Kind = queue.KindItem
				a.Item = choice.Item
				a.ItemTarget = side.Roster[choice.Target]
			default:
				continue
			}
			a.Order = b.rules.order.Class(a.Kind)
			actions = append(actions, a)
		}
	}
	return actions, nil
}

func (b *Battle) movePriority(c *state.Combatant, id string) (int, error) {
	rec, err := b.dex.Move(id)
	if err != nil {
		return 0, err
	}
	res, err := b.events.Run(dispatch.Event{ID: dispatch.ModifyPriority, Target: c, Move: state.NewActiveMove(rec), Value: rec.Priority})
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// stale reports whether a queued action lost its actor or its switch target.
func (b *Battle) stale(a queue.Action) bool {
	c := a.Actor
	if c == nil || c.Fainted || c.ForcedOut || c.Slot != a.Slot {
		return true
	}
	if a.Kind == queue.KindSwitch && !a.SwitchTo.Available() {
		return true
	}
	return false
}

func (b *Battle) runAction(a queue.Action) error {
	switch a.Kind {
	case queue.KindMove:
		err := b.runMove(a)
		a.Actor.MovedThisTurn = true
		return err
	case queue.KindSwitch:
		return b.switchIn(b.sides[a.Side], a.Slot, a.SwitchTo, journal.KindSwitch)
	case queue.KindItem:
		return b.useItem(a)
	}
	return nil
}

// switchIn brings in at slot, running SwitchOut for whoever leaves and
// SwitchIn for the newcomer.
func (b *Battle) switchIn(side *state.Side, slot int, in *state.Combatant, kind journal.Kind) error {
	if prev := side.At(slot); prev.Active() {
		if _, err := b.events.Run(dispatch.Event{ID: dispatch.SwitchOut, Target: prev}); err != nil {
			return err
		}
		delete(b.speeds, prev)
		delete(b.entered, prev)
	}
	side.Place(slot, in)
	b.entered[in] = b.nextOrder()
	b.emitSwitch(kind, in)
	speed, err := b.modifiedSpeed(in)
	if err != nil {
		return err
	}
	b.speeds[in] = speed
	_, err = b.events.Run(dispatch.Event{ID: dispatch.SwitchIn, Target: in})
	return err
}

func (b *Battle) useItem(a queue.Action) error {
	side := b.sides[a.Side]
	rec, err := b.dex.Item(a.Item)
	if err != nil {
		return err
	}
	if side.Bag[a.Item] <= 0 || rec.Use == nil {
		b.emit(journal.Event{Kind: journal.KindFail, Actor: a.Actor.ID, Effect: a.Item})
		return nil
	}
	side.Bag[a.Item]--
	target := a.ItemTarget
	b.emit(journal.Event{Kind: journal.KindUseItem, Actor: a.Actor.ID, Target: target.ID, Effect: a.Item})
	if target.Fainted {
		return nil
	}
	if rec.Use.Heal > 0 {
		if _, err := b.Heal(target, rec.Use.Heal, a.Item); err != nil {
			return err
		}
	}
	if rec.Use.CureStatus {
		if err := b.CureStatus(target, a.Item); err != nil {
			return err
		}
	}
	return nil
}

// processFaints marks every slotted combatant at zero HP as fainted and runs
// its Faint chain. Queued actions of the fainted are cancelled.
func (b *Battle) processFaints() error {
	for _, side := range b.sides {
		for _, c := range side.Active {
			if c == nil || c.Fainted || c.HP > 0 {
				continue
			}
			c.Fainted = true
			b.emit(journal.Event{Kind: journal.KindFaint, Target: c.ID})
			if removed := b.queue.Cancel(c); removed > 0 {
				b.emit(journal.Event{Kind: journal.KindCant, Target: c.ID, Effect: "fainted"})
			}
			if _, err := b.events.Run(dispatch.Event{ID: dispatch.Faint, Target: c}); err != nil {
				return err
			}
			c.Volatiles.Clear()
			c.Boosts.Clear()
			delete(b.speeds, c)
		}
	}
	return nil
}

func (b *Battle) endTurn() {
	for _, c := range b.active() {
		c.ActiveTurns++
	}
	for _, side := range b.sides {
		for _, c := range side.Roster {
			c.MovedThisTurn = false
			c.DamagedThisTurn = 0
			c.ForcedOut = false
		}
	}
	b.closeTurn()

	if limit := b.rules.TurnLimit; limit > 0 && b.field.Turn >= limit {
		b.finish(ResultDraw, state.NoSide, ReasonTurnLimit)
		return
	}
	b.nextPhase()
}

// closeTurn advances the turn counter and records the end of the turn in
// progress.
func (b *Battle) closeTurn() {
	b.inTurn = false
	b.field.Turn++
	b.emit(journal.Event{Kind: journal.KindTurn})
	battlelog.TurnResolved(context.Background(), b.publisher, b.id, b.field.Turn, battlelog.TurnPayload{
		Actions: b.turnActions,
		Events:  b.journal.Len() - b.turnStart,
	}, nil)
}

// nextPhase moves to faint replacement when a side has an empty position it
// can fill, and to a fresh decision otherwise.
func (b *Battle) nextPhase() {
	for side := range b.sides {
		if len(b.replacementSlots(state.SideID(side))) > 0 {
			b.phase = PhaseFaintReplacement
			return
		}
	}
	b.phase = PhaseDecision
}

func (b *Battle) replace() error {
	var actions []queue.Action
	for i, side := range b.sides {
		for slot := range side.Active {
			choice, ok := b.pending[i][slot]
			if !ok || choice.Kind != ChoiceSwitch {
				continue
			}
			in := side.Roster[choice.Switch]
			actions = append(actions, queue.Action{
				Kind: queue.KindSwitch, Actor: in, Side: side.ID, Slot: slot, SwitchTo: in,
				Speed: in.EffectiveStat(catalog.StatSpe),
			})
		}
	}
	b.clearPending()
	queue.Sort(actions, b.rng)
	for _, a := range actions {
		if !a.SwitchTo.Available() {
			continue
		}
		if err := b.switchIn(b.sides[a.Side], a.Slot, a.SwitchTo, journal.KindSwitch); err != nil {
			return err
		}
	}
	if err := b.processFaints(); err != nil {
		return err
	}
	if b.checkWin() {
		return nil
	}
	b.nextPhase()
	return nil
}
