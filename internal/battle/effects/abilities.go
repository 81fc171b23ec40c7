package effects

import (
	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
)

func ability(id string) *dispatch.Definition {
	return dispatch.Define(id, dispatch.KindAbility)
}

// pinch powers up one type while the holder is at 1/3 HP or less.
func pinch(id string, t catalog.Type) *dispatch.Definition {
	boost := func(c *dispatch.Call) error {
		if c.Move != nil && c.Move.Type == t && c.Target.HP*3 <= c.Target.MaxHP {
			c.Chain(3, 2)
		}
		return nil
	}
	return ability(id).On(dispatch.ModifyAtk, boost).On(dispatch.ModifySpA, boost)
}

func weatherSpeed(id, weather string) *dispatch.Definition {
	return ability(id).On(dispatch.ModifySpeed, func(c *dispatch.Call) error {
		if c.Engine.Field().WeatherID() == weather {
			c.Chain(2, 1)
		}
		return nil
	})
}

func weatherSetter(id, weather string) *dispatch.Definition {
	return ability(id).On(dispatch.SwitchIn, func(c *dispatch.Call) error {
		_, err := c.Engine.SetWeather(weather, c.Target, id)
		return err
	})
}

func contact(c *dispatch.Call) bool {
	return c.Move != nil && c.Move.Flags.Contact && c.Source != nil && c.Source != c.Target && c.Source.HP > 0
}

func abilities() []*dispatch.Definition {
	static := ability("static").On(dispatch.DamagingHit, func(c *dispatch.Call) error {
		if !contact(c) || !c.Engine.RNG().Chance(3, 10) {
			return nil
		}
		_, err := c.Engine.SetStatus(c.Source, c.Target, "par", "static")
		return err
	})

	roughSkin := ability("roughskin").On(dispatch.DamagingHit, func(c *dispatch.Call) error {
		if !contact(c) {
			return nil
		}
		_, err := c.Engine.Damage(c.Source, c.Target, c.Source.Fraction(1, 8), "roughskin")
		return err
	})

	levitate := ability("levitate").On(dispatch.Immunity, func(c *dispatch.Call) error {
		if c.Move != nil && c.Move.Type == catalog.TypeGround {
			c.Veto()
		}
		return nil
	})

	innerFocus := ability("innerfocus").
		On(dispatch.TryAddVolatile, func(c *dispatch.Call) error {
			if c.Effect == "flinch" {
				c.Veto()
			}
			return nil
		}).
		On(dispatch.TryBoost, func(c *dispatch.Call) error {
			if c.Effect == "intimidate" {
				c.Engine.Emit(journal.KindActivate, c.Target, "innerfocus", "")
				c.Veto()
			}
			return nil
		})

	multiscale := ability("multiscale").On(dispatch.ModifyDamage, func(c *dispatch.Call) error {
		if c.Target.HP == c.Target.MaxHP {
			c.Chain(1, 2)
		}
		return nil
	})

	clearBody := ability("clearbody").On(dispatch.TryBoost, func(c *dispatch.Call) error {
		if c.Source == nil || c.Source == c.Target {
			return nil
		}
		kept := c.Boosts[:0:0]
		for _, change := range c.Boosts {
			if change.Delta >= 0 {
				kept = append(kept, change)
			}
		}
		if len(kept) < len(c.Boosts) {
			c.Engine.Emit(journal.KindActivate, c.Target, "clearbody", "")
		}
		c.Boosts = kept
		return nil
	})

	intimidate := ability("intimidate").On(dispatch.SwitchIn, func(c *dispatch.Call) error {
		for _, foe := range c.Engine.Foes(c.Target) {
			drop := []state.BoostChange{{Boost: state.BoostAtk, Delta: -1}}
			if err := c.Engine.Boost(foe, c.Target, drop, "intimidate"); err != nil {
				return err
			}
		}
		return nil
	})

	guts := ability("guts").On(dispatch.ModifyAtk, func(c *dispatch.Call) error {
		if c.Target.Status != "" {
			c.Chain(3, 2)
		}
		return nil
	})

	// zenmode runs last in the residual phase so the form reflects the HP
	// left after every other end-of-turn effect.
	zenMode := ability("zenmode").OnScope(dispatch.Residual, dispatch.ScopeSelf, -29, func(c *dispatch.Call) error {
		owner := c.Target
		if owner.HP == 0 {
			return nil
		}
		low := owner.HP*2 <= owner.MaxHP
		switch {
		case low && !owner.Transformed():
			for _, forme := range owner.Original.Species.Formes {
				ok, err := c.Engine.ChangeForme(owner, forme, "zenmode")
				if err != nil || ok {
					return err
				}
			}
		case !low && owner.Transformed():
			_, err := c.Engine.ChangeForme(owner, owner.Original.Species.ID, "zenmode")
			return err
		}
		return nil
	})

	return []*dispatch.Definition{
		pinch("overgrow", catalog.TypeGrass),
		pinch("blaze", catalog.TypeFire),
		pinch("torrent", catalog.TypeWater),
		weatherSpeed("chlorophyll", "sunnyday"),
		weatherSpeed("swiftswim", "raindance"),
		weatherSetter("drizzle", "raindance"),
		weatherSetter("drought", "sunnyday"),
		weatherSetter("sandstream", "sandstorm"),
		static, roughSkin, levitate, innerFocus, multiscale, clearBody, intimidate, guts, zenMode,
	}
}
