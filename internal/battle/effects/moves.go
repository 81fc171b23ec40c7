package effects

import (
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
)

// stallCap bounds the consecutive-protection denominator.
const stallCap = 729

func moveEffect(id string) *dispatch.Definition {
	return dispatch.Define(dispatch.MoveEffectID(id), dispatch.KindMove).Named(id)
}

func moves() []*dispatch.Definition {
	protect := moveEffect("protect").On(dispatch.TryHit, func(c *dispatch.Call) error {
		user := c.Target
		if c.Source != user {
			return nil
		}
		stall := user.Volatiles.Get("stall")
		if stall != nil && !c.Engine.RNG().Chance(1, stall.Counter) {
			user.Volatiles.Remove("stall")
			c.Engine.Emit(journal.KindFail, user, "protect", "")
			c.Veto()
			return nil
		}
		if stall == nil {
			st := state.Timed("stall", 2)
			st.Counter = 3
			user.Volatiles.Add(st, state.RestartRefresh)
			return nil
		}
		stall.Duration = 2
		stall.Counter = min(stall.Counter*3, stallCap)
		return nil
	})

	struggle := moveEffect("struggle").On(dispatch.AfterMove, func(c *dispatch.Call) error {
		if !c.Move.HitAny {
			return nil
		}
		_, err := c.Engine.Damage(c.Target, nil, c.Target.Fraction(1, 4), "recoil")
		return err
	})

	return []*dispatch.Definition{protect, struggle}
}
