package state

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"skirmish/catalog"
)

func testSpecies() catalog.Species {
	return catalog.Species{
		ID:        "garchomp",
		Name:      "Garchomp",
		Types:     []catalog.Type{catalog.TypeDragon, catalog.TypeGround},
		BaseStats: catalog.StatTable{HP: 108, Atk: 130, Def: 95, SpA: 80, SpD: 85, Spe: 102},
	}
}

func newTestCombatant() *Combatant {
	return NewCombatant(Spec{
		Side:    SideOne,
		Species: testSpecies(),
		Level:   100,
		IVs:     FullIVs(),
		Ability: "roughskin",
		Moves:   []catalog.Move{{ID: "earthquake", Name: "Earthquake", PP: 10}},
	})
}

func TestCalcStatsMatchesKnownValues(t *testing.T) {
	adamant, _ := catalog.LookupNature("adamant")
	evs := catalog.StatTable{Atk: 252, Spe: 252, HP: 4}
	stats := CalcStats(testSpecies().BaseStats, FullIVs(), evs, 100, adamant)
	if stats.HP != 358 {
		t.Fatalf("expected 358 HP, got %d", stats.HP)
	}
	if stats.Atk != 394 {
		t.Fatalf("expected 394 Atk, got %d", stats.Atk)
	}
	if stats.SpA != 176 {
		t.Fatalf("expected 176 SpA, got %d", stats.SpA)
	}
	if stats.Spe != 303 {
		t.Fatalf("expected 303 Spe, got %d", stats.Spe)
	}
}

func TestNewCombatantStartsBenchedAtFullHP(t *testing.T) {
	c := newTestCombatant()
	if c.HP != c.MaxHP || c.Slot != -1 || c.Active() {
		t.Fatalf("expected benched full-HP combatant, got hp=%d/%d slot=%d", c.HP, c.MaxHP, c.Slot)
	}
	if c.ID != "p1:0" {
		t.Fatalf("expected id p1:0, got %q", c.ID)
	}
	if slot := c.Move("earthquake"); slot == nil || slot.PP != 16 {
		t.Fatalf("expected max PP 16, got %+v", slot)
	}
}

func TestDamageFloorsAtZero(t *testing.T) {
	c := newTestCombatant()
	c.HP = 1
	dealt, err := c.Damage(500)
	if err != nil {
		t.Fatalf("damage: %v", err)
	}
	if dealt != 1 || c.HP != 0 {
		t.Fatalf("expected 1 dealt and 0 HP, got dealt=%d hp=%d", dealt, c.HP)
	}
	if _, err := c.Damage(-1); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestHPStaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := newTestCombatant()
		ops := rapid.SliceOf(rapid.IntRange(-400, 400)).Draw(t, "ops")
		for _, op := range ops {
			var err error
			if op < 0 {
				_, err = c.Damage(-op)
			} else {
				_, err = c.Heal(op)
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.HP < 0 || c.HP > c.MaxHP {
				t.Fatalf("hp %d escaped [0,%d]", c.HP, c.MaxHP)
			}
		}
	})
}

func TestBoostsStayWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var b Boosts
		n := rapid.IntRange(0, 64).Draw(t, "n")
		for i := 0; i < n; i++ {
			stage := Boost(rapid.IntRange(0, int(BoostCount)-1).Draw(t, "stage"))
			delta := rapid.IntRange(-12, 12).Draw(t, "delta")
			before := b.Get(stage)
			applied := b.Apply(stage, delta)
			after := b.Get(stage)
			if after < MinBoost || after > MaxBoost {
				t.Fatalf("stage %s escaped bounds: %d", stage, after)
			}
			if after-before != applied {
				t.Fatalf("applied %d does not match change %d", applied, after-before)
			}
		}
	})
}

func TestBoostedStatLadder(t *testing.T) {
	cases := map[int]int{0: 100, 1: 150, 2: 200, 6: 400, -1: 66, -2: 50, -6: 25}
	for stage, want := range cases {
		if got := BoostedStat(100, stage); got != want {
			t.Fatalf("stage %d: expected %d, got %d", stage, want, got)
		}
	}
}

func TestOrderedBoostsFollowStageOrder(t *testing.T) {
	changes := Ordered(map[string]int{"spe": 1, "atk": 1, "hp": 3})
	if len(changes) != 2 || changes[0].Boost != BoostAtk || changes[1].Boost != BoostSpe {
		t.Fatalf("expected atk then spe, got %+v", changes)
	}
}

func TestTransformationRevertsOnSwitchOut(t *testing.T) {
	base := catalog.Species{ID: "darmanitan", Types: []catalog.Type{catalog.TypeFire},
		BaseStats: catalog.StatTable{HP: 105, Atk: 140, Def: 55, SpA: 30, SpD: 55, Spe: 95}}
	zen := catalog.Species{ID: "darmanitanzen", BaseSpecies: "darmanitan", BattleOnly: true,
		Types:     []catalog.Type{catalog.TypeFire, catalog.TypePsychic},
		BaseStats: catalog.StatTable{HP: 105, Atk: 30, Def: 105, SpA: 140, SpD: 105, Spe: 55}}
	c := NewCombatant(Spec{Species: base, Level: 50, IVs: FullIVs(), Ability: "zenmode"})
	c.Slot = 0
	c.HP = c.MaxHP / 2
	hp := c.HP
	originalAtk := c.Stats.Atk

	c.ChangeSpecies(zen)
	if !c.Transformed() || !c.HasType(catalog.TypePsychic) {
		t.Fatalf("expected zen snapshot, got %s %v", c.Species.ID, c.Types)
	}
	if c.HP != hp {
		t.Fatalf("form change must keep HP, got %d want %d", c.HP, hp)
	}
	if c.Original.Species.ID != "darmanitan" {
		t.Fatalf("original identity must survive form change, got %s", c.Original.Species.ID)
	}

	c.Boosts.Apply(BoostSpA, 2)
	c.SwitchOut()
	if c.Transformed() || c.HasType(catalog.TypePsychic) || c.Stats.Atk != originalAtk {
		t.Fatalf("expected revert to base form, got %s %v atk=%d", c.Species.ID, c.Types, c.Stats.Atk)
	}
	if c.Boosts.Get(BoostSpA) != 0 {
		t.Fatalf("expected boosts cleared on switch-out")
	}
}

func TestConditionSetRestartPolicies(t *testing.T) {
	var set ConditionSet
	if !set.Add(Timed("reflect", 5), RestartReject) {
		t.Fatalf("expected first add to succeed")
	}
	set.Get("reflect").Duration = 2
	if set.Add(Timed("reflect", 5), RestartReject) {
		t.Fatalf("expected reject policy to refuse a second add")
	}
	if set.Get("reflect").Duration != 2 {
		t.Fatalf("rejected add must not touch the counter")
	}
	if !set.Add(Timed("reflect", 5), RestartRefresh) || set.Get("reflect").Duration != 5 {
		t.Fatalf("expected refresh policy to reset the counter")
	}
}

func TestConditionSetTickExpires(t *testing.T) {
	var set ConditionSet
	set.Add(Timed("tailwind", 1), RestartReject)
	set.Add(Timed("stealthrock", 0), RestartReject)
	expired, err := set.Tick()
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(expired) != 1 || expired[0] != "tailwind" {
		t.Fatalf("expected tailwind to expire, got %v", expired)
	}
	if !set.Has("stealthrock") || set.Len() != 1 {
		t.Fatalf("expected permanent condition to remain")
	}
}

func TestDurationUnderflowIsAnError(t *testing.T) {
	st := Timed("raindance", 1)
	st.Duration = 0
	if _, err := st.Tick(); !errors.Is(err, ErrDurationUnderflow) {
		t.Fatalf("expected ErrDurationUnderflow, got %v", err)
	}
}

func TestFieldWeatherPolicies(t *testing.T) {
	f := NewField()
	if !f.SetWeather(Timed("raindance", 5), RestartReject) {
		t.Fatalf("expected rain to start")
	}
	if f.SetWeather(Timed("raindance", 5), RestartReject) {
		t.Fatalf("expected duplicate rain to fail")
	}
	if !f.SetWeather(Timed("sunnyday", 5), RestartReject) || f.WeatherID() != "sunnyday" {
		t.Fatalf("expected sun to replace rain, got %q", f.WeatherID())
	}
	for i := 0; i < 4; i++ {
		if ended, err := f.TickWeather(); err != nil || ended != "" {
			t.Fatalf("turn %d: unexpected end %q err %v", i, ended, err)
		}
	}
	ended, err := f.TickWeather()
	if err != nil || ended != "sunnyday" || f.WeatherID() != "" {
		t.Fatalf("expected sun to end on turn 5, got %q err %v", ended, err)
	}
}

func TestSidePlaceAndReserves(t *testing.T) {
	a := newTestCombatant()
	b := NewCombatant(Spec{Side: SideOne, RosterIndex: 1, Species: testSpecies(), Level: 50})
	side := NewSide(SideOne, "alice", []*Combatant{a, b}, 1)
	side.Place(0, a)
	if side.At(0) != a || a.Slot != 0 {
		t.Fatalf("expected a in slot 0")
	}
	if reserves := side.Reserves(); len(reserves) != 1 || reserves[0] != b {
		t.Fatalf("expected b in reserve, got %v", reserves)
	}
	a.Boosts.Apply(BoostAtk, 2)
	side.Place(0, b)
	if a.Slot != -1 || a.Boosts.Get(BoostAtk) != 0 {
		t.Fatalf("expected a benched with cleared boosts")
	}
	b.Fainted = true
	a.Fainted = true
	if !side.Defeated() {
		t.Fatalf("expected side with no remaining combatants to be defeated")
	}
}
