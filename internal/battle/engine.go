package battle

import (
	"fmt"

	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/effects"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
	"skirmish/internal/rng"
)

// Battle is the dispatcher's engine and handle source.
var (
	_ dispatch.Engine       = (*Battle)(nil)
	_ dispatch.HandleSource = (*Battle)(nil)
)

// RNG returns the battle's random source.
func (b *Battle) RNG() *rng.PRNG { return b.rng }

// Field returns the shared field state.
func (b *Battle) Field() *state.Field { return b.field }

// Side returns one side, or nil for an invalid id.
func (b *Battle) Side(id state.SideID) *state.Side {
	if !id.Valid() {
		return nil
	}
	return b.sides[id]
}

// Foes lists the active combatants opposing c.
func (b *Battle) Foes(c *state.Combatant) []*state.Combatant {
	if c == nil {
		return nil
	}
	return b.sides[c.Side.Foe()].ActiveCombatants()
}

// Damage removes HP outside the move hit path: residual chip, recoil,
// hazards.
func (b *Battle) Damage(target, source *state.Combatant, amount int, effect string) (int, error) {
	if target == nil || target.Fainted || target.HP == 0 || amount <= 0 {
		return 0, nil
	}
	dealt, err := target.Damage(amount)
	if err != nil {
		return dealt, err
	}
	target.DamagedThisTurn = dealt
	b.emitHP(journal.KindDamage, target, effect)
	return dealt, nil
}

// Heal restores HP and logs it when anything was restored.
func (b *Battle) Heal(target *state.Combatant, amount int, effect string) (int, error) {
	if target == nil || amount <= 0 {
		return 0, nil
	}
	healed, err := target.Heal(amount)
	if err != nil || healed == 0 {
		return healed, err
	}
	b.emitHP(journal.KindHeal, target, effect)
	return healed, nil
}

// Boost applies stage changes after the TryBoost chain had its say.
func (b *Battle) Boost(target, source *state.Combatant, changes []state.BoostChange, effect string) error {
	if !target.Active() || len(changes) == 0 {
		return nil
	}
	res, err := b.events.Run(dispatch.Event{ID: dispatch.TryBoost, Target: target, Source: source, Effect: effect, Boosts: changes})
	if err != nil {
		return err
	}
	if res.Vetoed {
		return nil
	}
	for _, change := range res.Boosts {
		applied := target.Boosts.Apply(change.Boost, change.Delta)
		if applied == 0 {
			b.emit(journal.Event{Kind: journal.KindFail, Target: target.ID, Effect: effect, Value: change.Boost.String()})
			continue
		}
		b.emit(journal.Event{Kind: journal.KindBoost, Target: target.ID, Effect: effect, Value: change.Boost.String(), Amount: applied})
	}
	return nil
}

// SetStatus applies a major status. It fails on a present status, a type
// immunity or a SetStatus veto.
func (b *Battle) SetStatus(target, source *state.Combatant, status, effect string) (bool, error) {
	if !target.Active() || target.HP == 0 || target.Status != "" || effects.StatusImmune(target, status) {
		return false, nil
	}
	def, err := b.registry.Lookup(status)
	if err != nil {
		return false, err
	}
	res, err := b.events.Run(dispatch.Event{ID: dispatch.SetStatus, Target: target, Source: source, Effect: status})
	if err != nil || res.Vetoed {
		return false, err
	}
	st := state.Timed(status, def.Duration)
	st.Order = b.nextOrder()
	if source != nil {
		st.Source = source.ID
	}
	target.SetStatus(status, st)
	b.emit(journal.Event{Kind: journal.KindStatus, Target: target.ID, Effect: status, Value: effect})
	if _, err := b.events.RunHandle(dispatch.Event{ID: dispatch.Start, Target: target, Source: source, Effect: status},
		dispatch.Handle{Def: def, Owner: target, Side: target.Side, State: &target.StatusState, Order: st.Order}); err != nil {
		return true, err
	}
	return true, nil
}

// CureStatus clears the major status.
func (b *Battle) CureStatus(target *state.Combatant, effect string) error {
	prev := target.CureStatus()
	if prev == "" {
		return nil
	}
	b.emit(journal.Event{Kind: journal.KindCureStatus, Target: target.ID, Effect: prev, Value: effect})
	return nil
}

// AddVolatile starts a volatile condition with its definition's duration and
// restart policy.
func (b *Battle) AddVolatile(target, source *state.Combatant, id string) (bool, error) {
	if !target.Active() {
		return false, nil
	}
	def, err := b.registry.Lookup(id)
	if err != nil {
		return false, err
	}
	res, err := b.events.Run(dispatch.Event{ID: dispatch.TryAddVolatile, Target: target, Source: source, Effect: id})
	if err != nil || res.Vetoed {
		return false, err
	}
	st := state.Timed(id, def.Duration)
	st.Order = b.nextOrder()
	if source != nil {
		st.Source = source.ID
	}
	if !target.Volatiles.Add(st, def.Restart) {
		return false, nil
	}
	current := target.Volatiles.Get(id)
	b.emit(journal.Event{Kind: journal.KindVolatileStart, Target: target.ID, Effect: id})
	_, err = b.events.RunHandle(dispatch.Event{ID: dispatch.Start, Target: target, Source: source, Effect: id},
		dispatch.Handle{Def: def, Owner: target, Side: target.Side, State: current, Order: current.Order})
	return true, err
}

// RemoveVolatile ends a volatile condition early.
func (b *Battle) RemoveVolatile(target *state.Combatant, id string) error {
	st := target.Volatiles.Get(id)
	if st == nil {
		return nil
	}
	ended := st.Clone()
	target.Volatiles.Remove(id)
	b.emit(journal.Event{Kind: journal.KindVolatileEnd, Target: target.ID, Effect: id})
	return b.runEnd(id, target, target.Side, ended)
}

// SetWeather replaces the weather following the definition's restart policy.
func (b *Battle) SetWeather(id string, source *state.Combatant, effect string) (bool, error) {
	def, err := b.registry.Lookup(id)
	if err != nil {
		return false, err
	}
	st := b.fieldState(id, def, source)
	displaced := b.field.Weather.Clone()
	if !b.field.SetWeather(st, def.Restart) {
		return false, nil
	}
	if displaced != nil && displaced.ID != id {
		b.emit(journal.Event{Kind: journal.KindWeather, Effect: displaced.ID, Value: "end"})
		if err := b.runEnd(displaced.ID, nil, state.NoSide, displaced); err != nil {
			return true, err
		}
	}
	b.emit(journal.Event{Kind: journal.KindWeather, Effect: id, Value: effect})
	return true, b.runStart(def, nil, state.NoSide, b.field.Weather, source)
}

// SetTerrain replaces the terrain following the definition's restart policy.
func (b *Battle) SetTerrain(id string, source *state.Combatant, effect string) (bool, error) {
	def, err := b.registry.Lookup(id)
	if err != nil {
		return false, err
	}
	st := b.fieldState(id, def, source)
	displaced := b.field.Terrain.Clone()
	if !b.field.SetTerrain(st, def.Restart) {
		return false, nil
	}
	if displaced != nil && displaced.ID != id {
		b.emit(journal.Event{Kind: journal.KindFieldEnd, Effect: displaced.ID})
		if err := b.runEnd(displaced.ID, nil, state.NoSide, displaced); err != nil {
			return true, err
		}
	}
	b.emit(journal.Event{Kind: journal.KindFieldStart, Effect: id, Value: effect})
	return true, b.runStart(def, nil, state.NoSide, b.field.Terrain, source)
}

// AddSideCondition starts a side condition.
func (b *Battle) AddSideCondition(side state.SideID, id string, source *state.Combatant) (bool, error) {
	conds := b.field.SideConditions(side)
	if conds == nil {
		return false, fmt.Errorf("battle: side condition %q on invalid side %d", id, side)
	}
	def, err := b.registry.Lookup(id)
	if err != nil {
		return false, err
	}
	if !conds.Add(b.fieldState(id, def, source), def.Restart) {
		return false, nil
	}
	b.emit(journal.Event{Kind: journal.KindSideStart, Side: side.String(), Effect: id})
	return true, b.runStart(def, nil, side, conds.Get(id), source)
}

func (b *Battle) fieldState(id string, def *dispatch.Definition, source *state.Combatant) state.EffectState {
	st := state.Timed(id, def.Duration)
	st.Order = b.nextOrder()
	if source != nil {
		st.Source = source.ID
	}
	return st
}

func (b *Battle) runStart(def *dispatch.Definition, owner *state.Combatant, side state.SideID, st *state.EffectState, source *state.Combatant) error {
	if _, ok := def.Hook(dispatch.Start, dispatch.ScopeSelf); !ok {
		return nil
	}
	h := dispatch.Handle{Def: def, Owner: owner, Side: side, State: st}
	if st != nil {
		h.Order = st.Order
	}
	_, err := b.events.RunHandle(dispatch.Event{ID: dispatch.Start, Target: owner, Side: side, Source: source, Effect: def.ID}, h)
	return err
}

func (b *Battle) runEnd(id string, owner *state.Combatant, side state.SideID, st *state.EffectState) error {
	def, err := b.registry.Lookup(id)
	if err != nil {
		return err
	}
	if _, ok := def.Hook(dispatch.End, dispatch.ScopeSelf); !ok {
		return nil
	}
	h := dispatch.Handle{Def: def, Owner: owner, Side: side, State: st}
	if st != nil {
		h.Order = st.Order
	}
	_, err = b.events.RunHandle(dispatch.Event{ID: dispatch.End, Target: owner, Side: side, Effect: id}, h)
	return err
}

// ChangeForme moves target to another form of its original species: a
// battle-only form whose gate is satisfied, or back to the original.
func (b *Battle) ChangeForme(target *state.Combatant, species, effect string) (bool, error) {
	if !target.Active() {
		return false, nil
	}
	sp, err := b.dex.Species(species)
	if err != nil {
		return false, err
	}
	if sp.ID == target.Species.ID {
		return false, nil
	}
	original := target.Original.Species
	switch {
	case sp.ID == original.ID:
	case sp.BattleOnly && sp.BaseSpecies == original.ID:
		if sp.RequiredAbility != "" && sp.RequiredAbility != target.Ability {
			return false, nil
		}
		if sp.RequiredItem != "" && sp.RequiredItem != target.Item {
			return false, nil
		}
	default:
		return false, nil
	}
	target.ChangeSpecies(sp)
	b.emit(journal.Event{
		Kind:    journal.KindFormeChange,
		Target:  target.ID,
		Species: sp.ID,
		Effect:  effect,
		HP:      journal.HP(target.HP, target.MaxHP),
	})
	speed, err := b.modifiedSpeed(target)
	b.speeds[target] = speed
	return true, err
}

// ConsumeItem removes the held item.
func (b *Battle) ConsumeItem(target *state.Combatant, effect string) error {
	if target == nil || target.Item == "" {
		return nil
	}
	item := target.Item
	target.LastItem = item
	target.Item = ""
	target.ChoiceLock = ""
	b.emit(journal.Event{Kind: journal.KindEndItem, Target: target.ID, Effect: item, Value: effect})
	return nil
}

// LockMove locks target into move until it leaves the field.
func (b *Battle) LockMove(target *state.Combatant, move string) {
	if target == nil || target.ChoiceLock != "" || target.Move(move) == nil {
		return
	}
	target.ChoiceLock = move
}

// Emit appends a journal event on behalf of an effect.
func (b *Battle) Emit(kind journal.Kind, target *state.Combatant, effect, value string) {
	e := journal.Event{Kind: kind, Effect: effect, Value: value}
	if target != nil {
		e.Target = target.ID
	}
	b.emit(e)
}

// Handles lists every effect in play: weather and terrain, side conditions,
// then each slotted combatant's ability, item, status and volatiles.
func (b *Battle) Handles() []dispatch.Handle {
	var out []dispatch.Handle
	add := func(id string, owner *state.Combatant, side state.SideID, st *state.EffectState, order int) {
		def, err := b.registry.Lookup(id)
		if err != nil {
			return
		}
		out = append(out, dispatch.Handle{Def: def, Owner: owner, Side: side, State: st, Order: order})
	}
	if w := b.field.Weather; w != nil {
		add(w.ID, nil, state.NoSide, w, w.Order)
	}
	if t := b.field.Terrain; t != nil {
		add(t.ID, nil, state.NoSide, t, t.Order)
	}
	for _, side := range b.sides {
		for _, st := range b.field.SideConditions(side.ID).List() {
			add(st.ID, nil, side.ID, st, st.Order)
		}
	}
	for _, side := range b.sides {
		for _, c := range side.Active {
			if c == nil {
				continue
			}
			entered := b.entered[c]
			if c.Ability != "" {
				add(c.Ability, c, c.Side, nil, entered)
			}
			if c.Item != "" {
				add(c.Item, c, c.Side, nil, entered)
			}
			if c.Status != "" {
				add(c.Status, c, c.Side, &c.StatusState, c.StatusState.Order)
			}
			for _, v := range c.Volatiles.List() {
				add(v.ID, c, c.Side, v, v.Order)
			}
		}
	}
	return out
}

// Speed returns the speed used to order c's handles and actions. It is the
// value cached at the last refresh, so ordering never dispatches.
func (b *Battle) Speed(c *state.Combatant) int {
	if c == nil {
		return 0
	}
	if s, ok := b.speeds[c]; ok {
		return s
	}
	return c.EffectiveStat(catalog.StatSpe)
}

// Live reports whether h's effect is still in place.
func (b *Battle) Live(h *dispatch.Handle, ev dispatch.EventID) bool {
	id := h.ID()
	if owner := h.Owner; owner != nil {
		if owner.Slot < 0 {
			return false
		}
		if ev == dispatch.Residual && owner.HP == 0 {
			return false
		}
		switch {
		case h.State == &owner.StatusState:
			return owner.Status == id
		case h.State != nil:
			return owner.Volatiles.Get(id) == h.State
		case h.Def.Kind == dispatch.KindAbility:
			return owner.Ability == id
		case h.Def.Kind == dispatch.KindItem:
			return owner.Item == id
		}
		return true
	}
	if h.Side.Valid() {
		return b.field.SideConditions(h.Side).Get(id) == h.State
	}
	return h.State == b.field.Weather || h.State == b.field.Terrain
}

func (b *Battle) modifiedSpeed(c *state.Combatant) (int, error) {
	base := c.EffectiveStat(catalog.StatSpe)
	res, err := b.events.Run(dispatch.Event{ID: dispatch.ModifySpeed, Target: c, Value: base})
	if err != nil {
		return base, err
	}
	return res.Applied(), nil
}

// refreshSpeeds recomputes every active combatant's speed.
func (b *Battle) refreshSpeeds() error {
	for _, c := range b.active() {
		speed, err := b.modifiedSpeed(c)
		if err != nil {
			return err
		}
		b.speeds[c] = speed
	}
	return nil
}
