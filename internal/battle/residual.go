package battle

import (
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
)

// residual runs the end-of-turn stages in format order. Faints are resolved
// after every stage and the battle stops as soon as a side is defeated.
func (b *Battle) residual() error {
	b.phase = PhaseResidual
	if err := b.refreshSpeeds(); err != nil {
		return err
	}
	for _, stage := range b.rules.residual {
		if err := b.residualStage(stage); err != nil {
			return err
		}
		if err := b.processFaints(); err != nil {
			return err
		}
		if b.checkWin() {
			return nil
		}
	}
	return nil
}

func (b *Battle) residualStage(stage string) error {
	switch stage {
	case StageWeather:
		weather := b.field.WeatherID()
		if weather == "" {
			return nil
		}
		b.emit(journal.Event{Kind: journal.KindWeather, Effect: weather, Value: "upkeep"})
		for _, c := range b.bySpeed(b.active()) {
			if c.HP == 0 {
				continue
			}
			if _, err := b.events.Run(dispatch.Event{ID: dispatch.WeatherResidual, Target: c}); err != nil {
				return err
			}
		}
	case StageSides:
		for _, side := range b.sides {
			if b.field.SideConditions(side.ID).Len() == 0 {
				continue
			}
			if _, err := b.events.Run(dispatch.Event{ID: dispatch.SideResidual, Side: side.ID}); err != nil {
				return err
			}
		}
	case StageCombatants:
		_, err := b.events.Run(dispatch.Event{ID: dispatch.Residual, Broadcast: true})
		return err
	case StageTerrain:
		if b.field.TerrainID() == "" {
			return nil
		}
		for _, c := range b.bySpeed(b.active()) {
			if c.HP == 0 {
				continue
			}
			if _, err := b.events.Run(dispatch.Event{ID: dispatch.TerrainResidual, Target: c}); err != nil {
				return err
			}
		}
	case StageDurations:
		return b.tickDurations()
	}
	return nil
}

// tickDurations decrements every timed condition and ends the expired ones.
func (b *Battle) tickDurations() error {
	if current := b.field.Weather.Clone(); current != nil {
		expired, err := b.field.TickWeather()
		if err != nil {
			return err
		}
		if expired != "" {
			b.emit(journal.Event{Kind: journal.KindWeather, Effect: expired, Value: "end"})
			if err := b.runEnd(expired, nil, state.NoSide, current); err != nil {
				return err
			}
		}
	}
	for _, side := range b.sides {
		conds := b.field.SideConditions(side.ID)
		before := snapshot(conds)
		expired, err := conds.Tick()
		if err != nil {
			return err
		}
		for _, id := range expired {
			b.emit(journal.Event{Kind: journal.KindSideEnd, Side: side.ID.String(), Effect: id})
			if err := b.runEnd(id, nil, side.ID, before[id]); err != nil {
				return err
			}
		}
	}
	if current := b.field.Terrain.Clone(); current != nil {
		expired, err := b.field.TickTerrain()
		if err != nil {
			return err
		}
		if expired != "" {
			b.emit(journal.Event{Kind: journal.KindFieldEnd, Effect: expired})
			if err := b.runEnd(expired, nil, state.NoSide, current); err != nil {
				return err
			}
		}
	}
	for _, c := range b.active() {
		before := snapshot(&c.Volatiles)
		expired, err := c.Volatiles.Tick()
		if err != nil {
			return err
		}
		for _, id := range expired {
			b.emit(journal.Event{Kind: journal.KindVolatileEnd, Target: c.ID, Effect: id})
			if err := b.runEnd(id, c, c.Side, before[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

func snapshot(set *state.ConditionSet) map[string]*state.EffectState {
	out := make(map[string]*state.EffectState, set.Len())
	for _, st := range set.List() {
		out[st.ID] = st.Clone()
	}
	return out
}
