package effects

import (
	"skirmish/internal/battle/dispatch"
)

func item(id string) *dispatch.Definition {
	return dispatch.Define(id, dispatch.KindItem)
}

func choice(id string, ev dispatch.EventID) *dispatch.Definition {
	return item(id).
		On(ev, func(c *dispatch.Call) error {
			c.Chain(3, 2)
			return nil
		}).
		On(dispatch.AfterMove, func(c *dispatch.Call) error {
			if c.Move != nil && c.Target.ChoiceLock == "" && c.Move.ID != "struggle" {
				c.Engine.LockMove(c.Target, c.Move.ID)
			}
			return nil
		})
}

func berry(c *dispatch.Call) error {
	owner := c.Target
	if owner.HP == 0 || owner.HP*2 > owner.MaxHP {
		return nil
	}
	if err := c.Engine.ConsumeItem(owner, "sitrusberry"); err != nil {
		return err
	}
	_, err := c.Engine.Heal(owner, owner.Fraction(1, 4), "sitrusberry")
	return err
}

func items() []*dispatch.Definition {
	leftovers := item("leftovers").OnScope(dispatch.Residual, dispatch.ScopeSelf, -5, func(c *dispatch.Call) error {
		if c.Target.HP == c.Target.MaxHP {
			return nil
		}
		_, err := c.Engine.Heal(c.Target, c.Target.Fraction(1, 16), "leftovers")
		return err
	})

	lifeOrb := item("lifeorb").
		OnScope(dispatch.ModifyDamage, dispatch.ScopeSource, 0, func(c *dispatch.Call) error {
			c.ChainModifier(5324)
			return nil
		}).
		On(dispatch.AfterMove, func(c *dispatch.Call) error {
			if c.Move == nil || !c.Move.Damaging() || !c.Move.HitAny {
				return nil
			}
			_, err := c.Engine.Damage(c.Target, nil, c.Target.Fraction(1, 10), "lifeorb")
			return err
		})

	focusSash := item("focussash").On(dispatch.Damage, func(c *dispatch.Call) error {
		owner := c.Target
		if c.Move == nil || owner.HP != owner.MaxHP || owner.HP <= 1 || c.Value < owner.HP {
			return nil
		}
		c.Value = owner.HP - 1
		return c.Engine.ConsumeItem(owner, "focussash")
	})

	sitrus := item("sitrusberry").
		On(dispatch.DamagingHit, berry).
		OnScope(dispatch.Residual, dispatch.ScopeSelf, -4, berry)

	flameOrb := item("flameorb").OnScope(dispatch.Residual, dispatch.ScopeSelf, -28, func(c *dispatch.Call) error {
		if c.Target.Status != "" {
			return nil
		}
		_, err := c.Engine.SetStatus(c.Target, c.Target, "brn", "flameorb")
		return err
	})

	scopeLens := item("scopelens").OnScope(dispatch.ModifyCritRatio, dispatch.ScopeSource, 0, func(c *dispatch.Call) error {
		c.Value++
		return nil
	})

	return []*dispatch.Definition{
		leftovers, lifeOrb,
		choice("choiceband", dispatch.ModifyAtk),
		choice("choicespecs", dispatch.ModifySpA),
		choice("choicescarf", dispatch.ModifySpeed),
		focusSash, sitrus, flameOrb, scopeLens,
	}
}
