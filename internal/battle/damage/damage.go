// Package damage computes move damage with the standard integer formula and
// the 4096-based modifier chain.
package damage

import (
	"fmt"

	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/state"
	"skirmish/internal/rng"
)

// critDenominators maps a clamped crit ratio to the 1-in-N crit chance.
var critDenominators = [...]int{0, 24, 8, 2, 1}

// Runner dispatches modifier events.
type Runner interface {
	Run(ev dispatch.Event) (dispatch.Result, error)
}

// Result describes one computed hit.
type Result struct {
	Amount        int
	Critical      bool
	Effectiveness float64
	TypeMod       int
	Immune        bool
}

// Calculator is bound to one battle's dispatcher and RNG.
type Calculator struct {
	events Runner
	rng    *rng.PRNG
}

// New returns a calculator.
func New(events Runner, r *rng.PRNG) *Calculator {
	return &Calculator{events: events, rng: r}
}

// Compute resolves the damage move deals from attacker to defender. The
// result is not applied; the caller subtracts HP. move.Crit and move.TypeMod
// are updated for the hit so later hooks can read them.
func (c *Calculator) Compute(attacker, defender *state.Combatant, move *state.ActiveMove, field *state.Field) (Result, error) {
	if attacker == nil || defender == nil || move == nil {
		return Result{}, fmt.Errorf("damage: missing participant")
	}
	move.Crit = false
	move.TypeMod = 0

	if catalog.Immune(move.Type, defender.Types...) {
		return Result{Immune: true}, nil
	}
	immunity, err := c.events.Run(dispatch.Event{ID: dispatch.Immunity, Target: defender, Source: attacker, Move: move})
	if err != nil {
		return Result{}, err
	}
	if immunity.Vetoed {
		return Result{Immune: true}, nil
	}

	typeMod := catalog.TypeMod(move.Type, defender.Types...)
	move.TypeMod = typeMod
	res := Result{TypeMod: typeMod, Effectiveness: catalog.Effectiveness(move.Type, defender.Types...)}

	switch {
	case move.LevelDamage:
		res.Amount = attacker.Level
		return res, nil
	case move.FixedDamage > 0:
		res.Amount = move.FixedDamage
		return res, nil
	}

	power, err := c.modified(dispatch.Event{ID: dispatch.BasePower, Target: defender, Source: attacker, Move: move, Value: move.BasePower})
	if err != nil {
		return Result{}, err
	}
	if power <= 0 {
		return res, nil
	}

	crit, err := c.rollCrit(attacker, defender, move)
	if err != nil {
		return Result{}, err
	}
	move.Crit = crit
	res.Critical = crit

	attack, defense, err := c.stats(attacker, defender, move, crit)
	if err != nil {
		return Result{}, err
	}
	if defense < 1 {
		defense = 1
	}

	base := (2*attacker.Level/5+2)*power*attack/defense/50 + 2

	if move.Spread {
		base = dispatch.Modify(base, 3, 4)
	}
	weather, err := c.events.Run(dispatch.Event{ID: dispatch.WeatherModifyDamage, Target: defender, Source: attacker, Move: move, Value: base})
	if err != nil {
		return Result{}, err
	}
	base = weather.Applied()
	if crit {
		base = base * 3 / 2
	}
	base = base * (100 - c.rng.Random(16)) / 100

	stab := dispatch.ModifierBase
	if attacker.HasType(move.Type) {
		stab = dispatch.Modifier(3, 2)
	}
	stabRes, err := c.events.Run(dispatch.Event{ID: dispatch.ModifySTAB, Target: defender, Source: attacker, Move: move, Value: stab})
	if err != nil {
		return Result{}, err
	}
	base = dispatch.Apply(base, stabRes.Value)

	for i := 0; i < typeMod; i++ {
		base *= 2
	}
	for i := 0; i > typeMod; i-- {
		base /= 2
	}

	if attacker.Status == "brn" && move.Category == catalog.CategoryPhysical && attacker.Ability != "guts" {
		base = dispatch.Modify(base, 1, 2)
	}
	if base == 0 {
		base = 1
	}

	final, err := c.modified(dispatch.Event{ID: dispatch.ModifyDamage, Target: defender, Source: attacker, Move: move, Value: base})
	if err != nil {
		return Result{}, err
	}
	final &= 0xFFFF
	res.Amount = max(final, 1)
	return res, nil
}

func (c *Calculator) modified(ev dispatch.Event) (int, error) {
	res, err := c.events.Run(ev)
	if err != nil {
		return 0, err
	}
	return res.Applied(), nil
}

func (c *Calculator) rollCrit(attacker, defender *state.Combatant, move *state.ActiveMove) (bool, error) {
	res, err := c.events.Run(dispatch.Event{ID: dispatch.ModifyCritRatio, Target: defender, Source: attacker, Move: move, Value: move.CritRatio})
	if err != nil {
		return false, err
	}
	ratio := min(max(res.Value, 0), len(critDenominators)-1)
	if ratio == 0 {
		return false, nil
	}
	return c.rng.Chance(1, critDenominators[ratio]), nil
}

// stats returns the attacking and defending stat after stages and modifier
// hooks. A critical hit ignores the attacker's drops and the defender's
// raises.
func (c *Calculator) stats(attacker, defender *state.Combatant, move *state.ActiveMove, crit bool) (int, int, error) {
	atkStat, defStat := catalog.StatAtk, catalog.StatDef
	atkEvent, defEvent := dispatch.ModifyAtk, dispatch.ModifyDef
	if move.Category == catalog.CategorySpecial {
		atkStat, defStat = catalog.StatSpA, catalog.StatSpD
		atkEvent, defEvent = dispatch.ModifySpA, dispatch.ModifySpD
	}

	atkStage := stage(attacker, atkStat)
	if crit && atkStage < 0 {
		atkStage = 0
	}
	defStage := stage(defender, defStat)
	if crit && defStage > 0 {
		defStage = 0
	}

	attack, err := c.modified(dispatch.Event{
		ID: atkEvent, Target: attacker, Source: defender, Move: move,
		Value: state.BoostedStat(attacker.Stats.Get(atkStat), atkStage),
	})
	if err != nil {
		return 0, 0, err
	}
	defense, err := c.modified(dispatch.Event{
		ID: defEvent, Target: defender, Source: attacker, Move: move,
		Value: state.BoostedStat(defender.Stats.Get(defStat), defStage),
	})
	if err != nil {
		return 0, 0, err
	}
	return attack, defense, nil
}

func stage(c *state.Combatant, stat catalog.Stat) int {
	b, ok := state.BoostFor(stat)
	if !ok {
		return 0
	}
	return c.Boosts.Get(b)
}
