package damage

import (
	"testing"

	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/state"
	"skirmish/internal/rng"
)

// relay passes every event through unchanged, optionally scaling one event.
type relay struct {
	modifiers map[dispatch.EventID]int
	veto      map[dispatch.EventID]bool
	seen      []dispatch.EventID
}

func (r *relay) Run(ev dispatch.Event) (dispatch.Result, error) {
	r.seen = append(r.seen, ev.ID)
	res := dispatch.Result{Value: ev.Value, Modifier: dispatch.ModifierBase}
	if mod, ok := r.modifiers[ev.ID]; ok {
		res.Modifier = mod
	}
	res.Vetoed = r.veto[ev.ID]
	return res, nil
}

func fighter(id string, level int, stats catalog.StatTable, types ...catalog.Type) *state.Combatant {
	return &state.Combatant{ID: id, Level: level, Stats: stats, Types: types, MaxHP: stats.HP, HP: stats.HP}
}

func even() catalog.StatTable {
	return catalog.StatTable{HP: 200, Atk: 100, Def: 100, SpA: 100, SpD: 100, Spe: 100}
}

func tackle(power int, t catalog.Type) *state.ActiveMove {
	return state.NewActiveMove(catalog.Move{
		ID: "strike", Name: "Strike", Type: t, Category: catalog.CategoryPhysical,
		BasePower: power, PP: 10, Target: catalog.TargetNormal,
	})
}

func computeRange(t *testing.T, r *relay, attacker, defender *state.Combatant, move *state.ActiveMove) (int, int) {
	t.Helper()
	lo, hi := 1<<30, 0
	for seed := int64(0); seed < 200; seed++ {
		calc := New(r, rng.NewFromValue(seed))
		res, err := calc.Compute(attacker, defender, move, state.NewField())
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		lo = min(lo, res.Amount)
		hi = max(hi, res.Amount)
	}
	return lo, hi
}

func TestNeutralHitRange(t *testing.T) {
	attacker := fighter("p1:0", 50, even(), catalog.TypeWater)
	defender := fighter("p2:0", 50, even(), catalog.TypeNormal)

	lo, hi := computeRange(t, &relay{}, attacker, defender, tackle(80, catalog.TypeNormal))
	if lo != 31 || hi != 37 {
		t.Fatalf("expected damage in [31,37], got [%d,%d]", lo, hi)
	}
}

func TestSTABAndEffectiveness(t *testing.T) {
	attacker := fighter("p1:0", 50, even(), catalog.TypeNormal)
	defender := fighter("p2:0", 50, even(), catalog.TypeNormal)

	lo, hi := computeRange(t, &relay{}, attacker, defender, tackle(80, catalog.TypeNormal))
	if lo != 46 || hi != 55 {
		t.Fatalf("expected STAB damage in [46,55], got [%d,%d]", lo, hi)
	}

	grass := fighter("p2:1", 50, even(), catalog.TypeGrass)
	calc := New(&relay{}, rng.NewFromValue(3))
	res, err := calc.Compute(fighter("p1:1", 50, even(), catalog.TypeWater), grass, tackle(80, catalog.TypeFire), state.NewField())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.TypeMod != 1 || res.Effectiveness != 2 {
		t.Fatalf("expected super effective, got mod %d x%v", res.TypeMod, res.Effectiveness)
	}
	if res.Amount < 62 || res.Amount > 74 {
		t.Fatalf("expected doubled damage, got %d", res.Amount)
	}
}

func TestImmunityDealsNothing(t *testing.T) {
	attacker := fighter("p1:0", 50, even(), catalog.TypeNormal)
	ghost := fighter("p2:0", 50, even(), catalog.TypeGhost)
	move := tackle(80, catalog.TypeNormal)

	r := &relay{}
	res, err := New(r, rng.NewFromValue(1)).Compute(attacker, ghost, move, state.NewField())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !res.Immune || res.Amount != 0 {
		t.Fatalf("expected immunity, got %+v", res)
	}
	if len(r.seen) != 0 {
		t.Fatalf("chart immunity should not dispatch, saw %v", r.seen)
	}

	vetoed := &relay{veto: map[dispatch.EventID]bool{dispatch.Immunity: true}}
	res, err = New(vetoed, rng.NewFromValue(1)).Compute(attacker, fighter("p2:1", 50, even(), catalog.TypeFire), tackle(80, catalog.TypeGround), state.NewField())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !res.Immune || res.Amount != 0 {
		t.Fatalf("expected hook immunity, got %+v", res)
	}
}

func TestMinimumDamageIsOne(t *testing.T) {
	weak := catalog.StatTable{HP: 10, Atk: 1, Def: 1, SpA: 1, SpD: 1, Spe: 1}
	wall := catalog.StatTable{HP: 400, Atk: 5, Def: 999, SpA: 5, SpD: 999, Spe: 5}
	attacker := fighter("p1:0", 1, weak, catalog.TypeNormal)
	defender := fighter("p2:0", 100, wall, catalog.TypeWater, catalog.TypeRock)

	lo, hi := computeRange(t, &relay{}, attacker, defender, tackle(10, catalog.TypeFire))
	if lo != 1 || hi != 1 {
		t.Fatalf("expected floor of 1, got [%d,%d]", lo, hi)
	}
}

func TestFixedAndLevelDamage(t *testing.T) {
	attacker := fighter("p1:0", 42, even(), catalog.TypeNormal)
	defender := fighter("p2:0", 50, even(), catalog.TypeNormal)

	level := tackle(0, catalog.TypeFighting)
	level.LevelDamage = true
	res, err := New(&relay{}, rng.NewFromValue(1)).Compute(attacker, defender, level, state.NewField())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Immune || res.Amount != 42 {
		t.Fatalf("expected level damage 42, got %+v", res)
	}

	fixed := tackle(0, catalog.TypeNormal)
	fixed.FixedDamage = 20
	res, err = New(&relay{}, rng.NewFromValue(1)).Compute(attacker, defender, fixed, state.NewField())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Amount != 20 {
		t.Fatalf("expected fixed 20, got %d", res.Amount)
	}
}

func TestCriticalHitIgnoresDefenseBoosts(t *testing.T) {
	attacker := fighter("p1:0", 50, even(), catalog.TypeWater)
	defender := fighter("p2:0", 50, even(), catalog.TypeNormal)
	defender.Boosts.Apply(state.BoostDef, 6)
	move := tackle(80, catalog.TypeNormal)
	move.CritRatio = 4

	lo, hi := computeRange(t, &relay{}, attacker, defender, move)
	if lo != 46 || hi != 55 {
		t.Fatalf("expected crit damage in [46,55], got [%d,%d]", lo, hi)
	}
	if !move.Crit {
		t.Fatal("expected move to be marked critical")
	}
}

func TestBurnHalvesPhysicalDamage(t *testing.T) {
	attacker := fighter("p1:0", 50, even(), catalog.TypeWater)
	attacker.Status = "brn"
	defender := fighter("p2:0", 50, even(), catalog.TypeNormal)

	lo, hi := computeRange(t, &relay{}, attacker, defender, tackle(80, catalog.TypeNormal))
	if lo != 15 || hi != 18 {
		t.Fatalf("expected burned damage in [15,18], got [%d,%d]", lo, hi)
	}

	attacker.Ability = "guts"
	lo, hi = computeRange(t, &relay{}, attacker, defender, tackle(80, catalog.TypeNormal))
	if lo != 31 || hi != 37 {
		t.Fatalf("guts should skip the burn penalty, got [%d,%d]", lo, hi)
	}
}

func TestModifyDamageChain(t *testing.T) {
	attacker := fighter("p1:0", 50, even(), catalog.TypeWater)
	defender := fighter("p2:0", 50, even(), catalog.TypeNormal)
	r := &relay{modifiers: map[dispatch.EventID]int{dispatch.ModifyDamage: dispatch.Modifier(1, 2)}}

	lo, hi := computeRange(t, r, attacker, defender, tackle(80, catalog.TypeNormal))
	if lo != 15 || hi != 18 {
		t.Fatalf("expected halved damage in [15,18], got [%d,%d]", lo, hi)
	}
}

func TestSpreadHitIsReduced(t *testing.T) {
	attacker := fighter("p1:0", 50, even(), catalog.TypeWater)
	defender := fighter("p2:0", 50, even(), catalog.TypeNormal)
	move := tackle(80, catalog.TypeNormal)
	move.Spread = true

	lo, hi := computeRange(t, &relay{}, attacker, defender, move)
	if lo != 23 || hi != 28 {
		t.Fatalf("expected spread damage in [23,28], got [%d,%d]", lo, hi)
	}
}
