package effects

import (
	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
)

const (
	weatherTurns = 5
	terrainTurns = 5
	screenTurns  = 5
	windTurns    = 4
)

// terrainBoost is the 1.3x power bonus for grounded users, in 4096ths.
const terrainBoost = 5325

func weatherDamage(boosted, weakened catalog.Type) dispatch.Handler {
	return func(c *dispatch.Call) error {
		if c.Move == nil {
			return nil
		}
		switch c.Move.Type {
		case boosted:
			c.Chain(3, 2)
		case weakened:
			c.Chain(1, 2)
		}
		return nil
	}
}

func weathers() []*dispatch.Definition {
	rain := dispatch.Define("raindance", dispatch.KindField).Named("Rain").
		Lasting(weatherTurns, state.RestartReject).
		OnScope(dispatch.WeatherModifyDamage, dispatch.ScopeAny, 0, weatherDamage(catalog.TypeWater, catalog.TypeFire))

	sun := dispatch.Define("sunnyday", dispatch.KindField).Named("Harsh Sunlight").
		Lasting(weatherTurns, state.RestartReject).
		OnScope(dispatch.WeatherModifyDamage, dispatch.ScopeAny, 0, weatherDamage(catalog.TypeFire, catalog.TypeWater))

	sand := dispatch.Define("sandstorm", dispatch.KindField).Named("Sandstorm").
		Lasting(weatherTurns, state.RestartReject).
		OnScope(dispatch.WeatherResidual, dispatch.ScopeAny, 0, func(c *dispatch.Call) error {
			t := c.Target
			if t == nil || t.HP == 0 || t.HasType(catalog.TypeRock) || t.HasType(catalog.TypeGround) || t.HasType(catalog.TypeSteel) {
				return nil
			}
			_, err := c.Engine.Damage(t, nil, t.Fraction(1, 16), "sandstorm")
			return err
		}).
		OnScope(dispatch.ModifySpD, dispatch.ScopeAny, 0, func(c *dispatch.Call) error {
			if c.Target != nil && c.Target.HasType(catalog.TypeRock) {
				c.Chain(3, 2)
			}
			return nil
		})

	return []*dispatch.Definition{rain, sun, sand}
}

func terrainPower(t catalog.Type) dispatch.Handler {
	return func(c *dispatch.Call) error {
		if c.Move != nil && c.Move.Type == t && Grounded(c.Source) {
			c.ChainModifier(terrainBoost)
		}
		return nil
	}
}

func terrains() []*dispatch.Definition {
	electric := dispatch.Define("electricterrain", dispatch.KindField).Named("Electric Terrain").
		Lasting(terrainTurns, state.RestartReject).
		OnScope(dispatch.BasePower, dispatch.ScopeAny, 0, terrainPower(catalog.TypeElectric)).
		OnScope(dispatch.SetStatus, dispatch.ScopeAny, 0, func(c *dispatch.Call) error {
			if c.Effect == "slp" && Grounded(c.Target) {
				c.Engine.Emit(journal.KindActivate, c.Target, "electricterrain", "")
				c.Veto()
			}
			return nil
		})

	grassy := dispatch.Define("grassyterrain", dispatch.KindField).Named("Grassy Terrain").
		Lasting(terrainTurns, state.RestartReject).
		OnScope(dispatch.BasePower, dispatch.ScopeAny, 0, func(c *dispatch.Call) error {
			if c.Move == nil {
				return nil
			}
			if c.Move.ID == "earthquake" && Grounded(c.Target) {
				c.Chain(1, 2)
				return nil
			}
			return terrainPower(catalog.TypeGrass)(c)
		}).
		OnScope(dispatch.TerrainResidual, dispatch.ScopeAny, 0, func(c *dispatch.Call) error {
			t := c.Target
			if t == nil || t.HP == 0 || t.HP == t.MaxHP || !Grounded(t) {
				return nil
			}
			_, err := c.Engine.Heal(t, t.Fraction(1, 16), "grassyterrain")
			return err
		})

	return []*dispatch.Definition{electric, grassy}
}

func screen(category catalog.Category) dispatch.Handler {
	return func(c *dispatch.Call) error {
		m := c.Move
		if m == nil || m.Category != category || m.Crit || c.Source == nil || c.Source.Side == c.Handle.Side {
			return nil
		}
		if side := c.Engine.Side(c.Handle.Side); side != nil && len(side.Active) > 1 {
			c.ChainModifier(2732)
			return nil
		}
		c.Chain(1, 2)
		return nil
	}
}

func sideConditions() []*dispatch.Definition {
	reflect := dispatch.Define("reflect", dispatch.KindField).Named("Reflect").
		Lasting(screenTurns, state.RestartReject).
		On(dispatch.ModifyDamage, screen(catalog.CategoryPhysical))

	lightScreen := dispatch.Define("lightscreen", dispatch.KindField).Named("Light Screen").
		Lasting(screenTurns, state.RestartReject).
		On(dispatch.ModifyDamage, screen(catalog.CategorySpecial))

	stealthRock := dispatch.Define("stealthrock", dispatch.KindField).Named("Stealth Rock").
		Lasting(0, state.RestartReject).
		On(dispatch.SwitchIn, func(c *dispatch.Call) error {
			_, err := c.Engine.Damage(c.Target, nil, HazardDamage(c.Target), "stealthrock")
			return err
		})

	tailwind := dispatch.Define("tailwind", dispatch.KindField).Named("Tailwind").
		Lasting(windTurns, state.RestartReject).
		On(dispatch.ModifySpeed, func(c *dispatch.Call) error {
			c.Chain(2, 1)
			return nil
		})

	return []*dispatch.Definition{reflect, lightScreen, stealthRock, tailwind}
}
