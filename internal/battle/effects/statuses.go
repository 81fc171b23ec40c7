package effects

import (
	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
)

func chip(id string, num, den int) dispatch.Handler {
	return func(c *dispatch.Call) error {
		_, err := c.Engine.Damage(c.Target, nil, c.Target.Fraction(num, den), id)
		return err
	}
}

func cant(c *dispatch.Call, reason string) {
	c.Engine.Emit(journal.KindCant, c.Target, reason, "")
	c.Veto()
}

func statuses() []*dispatch.Definition {
	brn := dispatch.Define("brn", dispatch.KindStatus).Named("Burn").
		OnScope(dispatch.Residual, dispatch.ScopeSelf, -10, chip("brn", 1, 16))

	par := dispatch.Define("par", dispatch.KindStatus).Named("Paralysis").
		On(dispatch.ModifySpeed, func(c *dispatch.Call) error {
			c.Chain(1, 2)
			return nil
		}).
		OnScope(dispatch.BeforeMove, dispatch.ScopeSelf, 1, func(c *dispatch.Call) error {
			if c.Engine.RNG().Chance(1, 4) {
				cant(c, "par")
			}
			return nil
		})

	psn := dispatch.Define("psn", dispatch.KindStatus).Named("Poison").
		OnScope(dispatch.Residual, dispatch.ScopeSelf, -9, chip("psn", 1, 8))

	tox := dispatch.Define("tox", dispatch.KindStatus).Named("Toxic").
		On(dispatch.Start, func(c *dispatch.Call) error {
			c.State().Counter = 0
			return nil
		}).
		OnScope(dispatch.Residual, dispatch.ScopeSelf, -9, func(c *dispatch.Call) error {
			st := c.State()
			if st.Counter < 15 {
				st.Counter++
			}
			_, err := c.Engine.Damage(c.Target, nil, c.Target.Fraction(st.Counter, 16), "tox")
			return err
		})

	// The counter includes the waking turn, so 2..4 means one to three
	// turns asleep.
	slp := dispatch.Define("slp", dispatch.KindStatus).Named("Sleep").
		On(dispatch.Start, func(c *dispatch.Call) error {
			c.State().Counter = c.Engine.RNG().Range(2, 5)
			return nil
		}).
		OnScope(dispatch.BeforeMove, dispatch.ScopeSelf, 10, func(c *dispatch.Call) error {
			st := c.State()
			st.Counter--
			if st.Counter <= 0 {
				return c.Engine.CureStatus(c.Target, "slp")
			}
			cant(c, "slp")
			return nil
		})

	frz := dispatch.Define("frz", dispatch.KindStatus).Named("Freeze").
		OnScope(dispatch.BeforeMove, dispatch.ScopeSelf, 10, func(c *dispatch.Call) error {
			if c.Engine.RNG().Chance(1, 5) {
				return c.Engine.CureStatus(c.Target, "frz")
			}
			cant(c, "frz")
			return nil
		}).
		On(dispatch.DamagingHit, func(c *dispatch.Call) error {
			if c.Move != nil && c.Move.Type == catalog.TypeFire && c.Target.HP > 0 {
				return c.Engine.CureStatus(c.Target, "frz")
			}
			return nil
		})

	return []*dispatch.Definition{brn, par, psn, tox, slp, frz}
}

func volatiles() []*dispatch.Definition {
	flinch := dispatch.Define("flinch", dispatch.KindStatus).Named("Flinch").
		Lasting(1, state.RestartReject).
		OnScope(dispatch.BeforeMove, dispatch.ScopeSelf, 8, func(c *dispatch.Call) error {
			cant(c, "flinch")
			return nil
		})

	protect := dispatch.Define("protect", dispatch.KindStatus).Named("Protect").
		Lasting(1, state.RestartReject).
		OnScope(dispatch.TryHit, dispatch.ScopeSelf, 3, func(c *dispatch.Call) error {
			if c.Move == nil || !c.Move.Flags.Protect || c.Source == c.Target {
				return nil
			}
			c.Engine.Emit(journal.KindActivate, c.Target, "protect", "")
			c.Veto()
			return nil
		})

	// stall tracks consecutive protection; its counter is the denominator of
	// the next success roll.
	stall := dispatch.Define("stall", dispatch.KindStatus).Lasting(2, state.RestartRefresh)

	return []*dispatch.Definition{flinch, protect, stall}
}
