// Package effects is the built-in effect library: statuses, volatiles,
// weather, terrain, side conditions, abilities, held items and move-intrinsic
// behavior, each expressed as a hook table for the dispatcher.
package effects

import (
	"fmt"

	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/state"
)

// Builtin returns fresh definitions for every built-in effect.
func Builtin() []*dispatch.Definition {
	var defs []*dispatch.Definition
	defs = append(defs, statuses()...)
	defs = append(defs, volatiles()...)
	defs = append(defs, weathers()...)
	defs = append(defs, terrains()...)
	defs = append(defs, sideConditions()...)
	defs = append(defs, abilities()...)
	defs = append(defs, items()...)
	defs = append(defs, moves()...)
	return defs
}

// NewRegistry builds a registry holding the built-in effects plus extra.
// Each battle builds its own.
func NewRegistry(extra ...*dispatch.Definition) (*dispatch.Registry, error) {
	reg := dispatch.NewRegistry()
	if err := reg.Register(Builtin()...); err != nil {
		return nil, fmt.Errorf("effects: builtin: %w", err)
	}
	if err := reg.Register(extra...); err != nil {
		return nil, fmt.Errorf("effects: extra: %w", err)
	}
	return reg, nil
}

// Grounded reports whether c is affected by terrain and ground-based hazards.
func Grounded(c *state.Combatant) bool {
	if c == nil {
		return false
	}
	return !c.HasType(catalog.TypeFlying) && c.Ability != "levitate"
}

// StatusImmune reports whether c's types rule out a major status.
func StatusImmune(c *state.Combatant, status string) bool {
	switch status {
	case "brn":
		return c.HasType(catalog.TypeFire)
	case "par":
		return c.HasType(catalog.TypeElectric)
	case "psn", "tox":
		return c.HasType(catalog.TypePoison) || c.HasType(catalog.TypeSteel)
	case "frz":
		return c.HasType(catalog.TypeIce)
	}
	return false
}

// HazardDamage is the entry damage a Rock-typed hazard deals to c: 1/8 of max
// HP scaled by type effectiveness.
func HazardDamage(c *state.Combatant) int {
	mod := catalog.TypeMod(catalog.TypeRock, c.Types...)
	var dmg int
	if mod >= 0 {
		dmg = (c.MaxHP << mod) / 8
	} else {
		dmg = c.MaxHP / (8 << -mod)
	}
	return max(dmg, 1)
}
