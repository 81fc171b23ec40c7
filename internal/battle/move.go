package battle

import (
	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/queue"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
	"skirmish/internal/rng"
)

// runMove executes one move action from BeforeMove through AfterMove.
func (b *Battle) runMove(a queue.Action) error {
	user := a.Actor
	rec, err := b.dex.Move(a.Move)
	if err != nil {
		return err
	}
	move := state.NewActiveMove(rec)

	before, err := b.events.Run(dispatch.Event{ID: dispatch.BeforeMove, Target: user, Move: move})
	if err != nil || before.Vetoed {
		return err
	}
	if slot := user.Move(move.ID); slot != nil && slot.PP > 0 {
		slot.PP--
	}

	targets := b.resolveTargets(user, move, a.Target)
	label := ""
	if len(targets) > 0 {
		label = targets[0].ID
	}
	b.emit(journal.Event{Kind: journal.KindMove, Actor: user.ID, Effect: move.ID, Target: label})
	user.LastMove = move.ID

	if move.Target.NeedsChoice() && len(targets) == 0 {
		b.emit(journal.Event{Kind: journal.KindFail, Actor: user.ID, Effect: move.ID, Value: "notarget"})
		return nil
	}
	move.Spread = move.Target.Spread() && len(targets) > 1

	var hit []*state.Combatant
	for _, target := range targets {
		landed, err := b.hitTarget(user, target, move)
		if err != nil {
			return err
		}
		if landed {
			hit = append(hit, target)
		}
	}

	if err := b.afterHits(user, move, hit); err != nil {
		return err
	}
	for _, target := range hit {
		if _, err := b.events.Run(dispatch.Event{ID: dispatch.AfterMoveSecondary, Target: target, Source: user, Move: move}); err != nil {
			return err
		}
	}
	_, err = b.events.Run(dispatch.Event{ID: dispatch.AfterMove, Target: user, Move: move})
	return err
}

// resolveTargets turns a target location into combatants. A chosen foe that
// is gone is replaced by a random active foe.
func (b *Battle) resolveTargets(user *state.Combatant, move *state.ActiveMove, loc int) []*state.Combatant {
	foes := b.Foes(user)
	switch move.Target {
	case catalog.TargetSelf:
		return []*state.Combatant{user}
	case catalog.TargetAllAdjacentFoes:
		return foes
	case catalog.TargetAllAdjacent:
		out := append([]*state.Combatant(nil), foes...)
		for _, ally := range b.sides[user.Side].ActiveCombatants() {
			if ally != user {
				out = append(out, ally)
			}
		}
		return out
	case catalog.TargetAllySide, catalog.TargetFoeSide, catalog.TargetAll:
		return nil
	}

	var chosen *state.Combatant
	switch {
	case loc > 0:
		chosen = b.sides[user.Side.Foe()].At(loc - 1)
	case loc < 0:
		chosen = b.sides[user.Side].At(-loc - 1)
	}
	if chosen.Active() && chosen != user {
		return []*state.Combatant{chosen}
	}
	if len(foes) == 1 {
		return foes
	}
	if foe, ok := rng.Sample(b.rng, foes); ok {
		return []*state.Combatant{foe}
	}
	return nil
}

// hitTarget resolves one target and reports whether the move landed.
func (b *Battle) hitTarget(user, target *state.Combatant, move *state.ActiveMove) (bool, error) {
	if !target.Active() {
		return false, nil
	}
	try, err := b.events.Run(dispatch.Event{ID: dispatch.TryHit, Target: target, Source: user, Move: move})
	if err != nil || try.Vetoed {
		return false, err
	}

	if move.Accuracy > 0 && target != user {
		acc, err := b.events.Run(dispatch.Event{ID: dispatch.ModifyAccuracy, Target: target, Source: user, Move: move, Value: move.Accuracy})
		if err != nil {
			return false, err
		}
		if !b.rng.Chance(acc.Applied(), 100) {
			b.emit(journal.Event{Kind: journal.KindMiss, Actor: user.ID, Target: target.ID, Effect: move.ID})
			return false, nil
		}
	}

	if move.Damaging() {
		res, err := b.calc.Compute(user, target, move, b.field)
		if err != nil {
			return false, err
		}
		if res.Immune {
			b.emit(journal.Event{Kind: journal.KindImmune, Target: target.ID, Effect: move.ID})
			return false, nil
		}
		if res.Critical {
			b.emit(journal.Event{Kind: journal.KindCrit, Target: target.ID})
		}
		switch {
		case res.TypeMod > 0:
			b.emit(journal.Event{Kind: journal.KindSuperEffective, Target: target.ID})
		case res.TypeMod < 0:
			b.emit(journal.Event{Kind: journal.KindResisted, Target: target.ID})
		}
		dealt, err := b.moveDamage(user, target, move, res.Amount)
		if err != nil {
			return false, err
		}
		move.TotalDamage += dealt
		move.HitAny = true
		if move.Drain != nil && dealt > 0 {
			if _, err := b.Heal(user, fraction(dealt, *move.Drain), "drain"); err != nil {
				return false, err
			}
		}
		if _, err := b.events.Run(dispatch.Event{ID: dispatch.DamagingHit, Target: target, Source: user, Move: move, Value: dealt}); err != nil {
			return false, err
		}
	} else if target != user && move.Status != "" && catalog.Immune(move.Type, target.Types...) {
		b.emit(journal.Event{Kind: journal.KindImmune, Target: target.ID, Effect: move.ID})
		return false, nil
	}

	if err := b.applyMoveEffects(user, target, move); err != nil {
		return false, err
	}
	if _, err := b.events.Run(dispatch.Event{ID: dispatch.Hit, Target: target, Source: user, Move: move}); err != nil {
		return false, err
	}
	if err := b.applySecondary(user, target, move); err != nil {
		return false, err
	}
	return true, nil
}

// moveDamage applies a computed hit through the Damage chain, which may
// lower it (focus sash).
func (b *Battle) moveDamage(user, target *state.Combatant, move *state.ActiveMove, amount int) (int, error) {
	res, err := b.events.Run(dispatch.Event{ID: dispatch.Damage, Target: target, Source: user, Move: move, Value: amount})
	if err != nil {
		return 0, err
	}
	if res.Vetoed {
		return 0, nil
	}
	return b.Damage(target, user, res.Value, "")
}

func (b *Battle) applyMoveEffects(user, target *state.Combatant, move *state.ActiveMove) error {
	if len(move.Boosts) > 0 {
		if err := b.Boost(target, user, state.Ordered(move.Boosts), move.ID); err != nil {
			return err
		}
	}
	if move.Status != "" {
		ok, err := b.SetStatus(target, user, move.Status, move.ID)
		if err != nil {
			return err
		}
		if !ok && !move.Damaging() {
			b.emit(journal.Event{Kind: journal.KindFail, Actor: user.ID, Target: target.ID, Effect: move.ID})
		}
	}
	if move.VolatileStatus != "" {
		if _, err := b.AddVolatile(target, user, move.VolatileStatus); err != nil {
			return err
		}
	}
	if move.Heal != nil {
		if _, err := b.Heal(target, target.Fraction(move.Heal[0], move.Heal[1]), move.ID); err != nil {
			return err
		}
	}
	return nil
}

func (b *Battle) applySecondary(user, target *state.Combatant, move *state.ActiveMove) error {
	sec := move.Secondary
	if sec == nil || !move.HitAny {
		return nil
	}
	if !b.rng.Chance(sec.Chance, 100) {
		return nil
	}
	if target.HP > 0 {
		if sec.Status != "" {
			if _, err := b.SetStatus(target, user, sec.Status, move.ID); err != nil {
				return err
			}
		}
		if sec.VolatileStatus != "" {
			if _, err := b.AddVolatile(target, user, sec.VolatileStatus); err != nil {
				return err
			}
		}
		if len(sec.Boosts) > 0 {
			if err := b.Boost(target, user, state.Ordered(sec.Boosts), move.ID); err != nil {
				return err
			}
		}
	}
	if len(sec.SelfBoosts) > 0 && user.HP > 0 {
		return b.Boost(user, user, state.Ordered(sec.SelfBoosts), move.ID)
	}
	return nil
}

// afterHits applies what a move does once every target resolved: recoil,
// self boosts, field setters and forced switches.
func (b *Battle) afterHits(user *state.Combatant, move *state.ActiveMove, hit []*state.Combatant) error {
	if move.Recoil != nil && move.TotalDamage > 0 {
		if _, err := b.Damage(user, user, fraction(move.TotalDamage, *move.Recoil), "recoil"); err != nil {
			return err
		}
	}
	if len(move.SelfBoosts) > 0 && user.HP > 0 && (move.HitAny || !move.Damaging()) {
		if err := b.Boost(user, user, state.Ordered(move.SelfBoosts), move.ID); err != nil {
			return err
		}
	}

	fieldMove := move.Target == catalog.TargetAllySide || move.Target == catalog.TargetFoeSide || move.Target == catalog.TargetAll
	if fieldMove {
		ok := true
		var err error
		switch {
		case move.SideCondition != "":
			side := user.Side
			if move.Target == catalog.TargetFoeSide {
				side = side.Foe()
			}
			ok, err = b.AddSideCondition(side, move.SideCondition, user)
		case move.Weather != "":
			ok, err = b.SetWeather(move.Weather, user, move.ID)
		case move.Terrain != "":
			ok, err = b.SetTerrain(move.Terrain, user, move.ID)
		}
		if err != nil {
			return err
		}
		if !ok {
			b.emit(journal.Event{Kind: journal.KindFail, Actor: user.ID, Effect: move.ID})
		}
	}

	if move.ForceSwitch {
		for _, target := range hit {
			if err := b.drag(target); err != nil {
				return err
			}
		}
	}
	return nil
}

// drag forces target out and pulls a random reserve into its position.
func (b *Battle) drag(target *state.Combatant) error {
	if !target.Active() {
		return nil
	}
	side := b.sides[target.Side]
	in, ok := rng.Sample(b.rng, side.Reserves())
	if !ok {
		b.emit(journal.Event{Kind: journal.KindFail, Target: target.ID, Effect: "drag"})
		return nil
	}
	slot := target.Slot
	if err := b.switchIn(side, slot, in, journal.KindDrag); err != nil {
		return err
	}
	target.ForcedOut = true
	return nil
}

// fraction scales amount by f, rounding half up, with a floor of 1.
func fraction(amount int, f catalog.Fraction) int {
	if !f.Valid() || amount <= 0 {
		return 0
	}
	return max((amount*f[0]+f[1]/2)/f[1], 1)
}
