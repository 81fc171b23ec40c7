package catalog

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestBuiltinCatalogLoads(t *testing.T) {
	r, err := Builtin()
	if err != nil {
		t.Fatalf("load builtin catalog: %v", err)
	}
	sp, err := r.Species("Charizard")
	if err != nil {
		t.Fatalf("lookup charizard: %v", err)
	}
	if len(sp.Types) != 2 || sp.Types[0] != TypeFire || sp.Types[1] != TypeFlying {
		t.Fatalf("expected Fire/Flying, got %v", sp.Types)
	}
	if sp.BaseStats.SpA != 109 {
		t.Fatalf("expected base SpA 109, got %d", sp.BaseStats.SpA)
	}
	if _, err := r.Move("Thunder Wave"); err != nil {
		t.Fatalf("expected display name lookup to normalize, got %v", err)
	}
}

func TestFormFlattensOverrides(t *testing.T) {
	r := MustBuiltin()
	wash, err := r.Species("rotomwash")
	if err != nil {
		t.Fatalf("lookup rotomwash: %v", err)
	}
	if wash.BaseSpecies != "rotom" || !wash.IsForm() {
		t.Fatalf("expected rotom base species, got %q", wash.BaseSpecies)
	}
	if wash.Types[1] != TypeWater {
		t.Fatalf("expected override type Water, got %v", wash.Types)
	}
	if wash.Abilities.Primary != "levitate" {
		t.Fatalf("expected inherited levitate, got %q", wash.Abilities.Primary)
	}
	if wash.WeightKg != 0.3 {
		t.Fatalf("expected inherited weight 0.3, got %v", wash.WeightKg)
	}
	if wash.BattleOnly {
		t.Fatalf("rotom-wash must be selectable at team build")
	}

	base, _ := r.Species("rotom")
	if len(base.Formes) != 1 || base.Formes[0] != "rotomwash" {
		t.Fatalf("expected base to list its form, got %v", base.Formes)
	}
	if base.Types[1] != TypeGhost {
		t.Fatalf("flattening must not mutate the base record, got %v", base.Types)
	}
}

func TestBattleOnlyFormCarriesGate(t *testing.T) {
	zen, err := MustBuiltin().Species("darmanitanzen")
	if err != nil {
		t.Fatalf("lookup zen: %v", err)
	}
	if !zen.BattleOnly || zen.RequiredAbility != "zenmode" {
		t.Fatalf("expected battle-only zen mode gate, got %+v", zen)
	}
	if zen.BaseStats.SpA != 140 {
		t.Fatalf("expected zen SpA 140, got %d", zen.BaseStats.SpA)
	}
}

func TestResolverRejectsFormWithUnknownBase(t *testing.T) {
	src := fstest.MapFS{
		AbilitiesFileName: {Data: []byte(`[{"id":"levitate","name":"Levitate"}]`)},
		SpeciesFileName:   {Data: []byte(`[{"id":"rotomheat","name":"Rotom-Heat","baseSpecies":"rotom","forme":"Heat"}]`)},
	}
	_, err := NewResolver(src)
	if !errors.Is(err, ErrUnknownSpecies) {
		t.Fatalf("expected ErrUnknownSpecies, got %v", err)
	}
}

func TestResolverRejectsFormChains(t *testing.T) {
	const rotom = `{"id":"rotom","name":"Rotom","types":["Electric","Ghost"],"baseStats":{"hp":50,"atk":50,"def":77,"spa":95,"spd":77,"spe":91},"abilities":{"0":"levitate"}}`
	const wash = `{"id":"rotomwash","name":"Rotom-Wash","baseSpecies":"rotom","forme":"Wash"}`
	cases := map[string]string{
		// The chained form sorts after the form it points at.
		"after base form": `{"id":"rotomwashmax","name":"Rotom-Wash-Max","baseSpecies":"rotomwash","forme":"Max"}`,
		// The chained form sorts before the form it points at.
		"before base form": `{"id":"rotomawash","name":"Rotom-A-Wash","baseSpecies":"rotomwash","forme":"A"}`,
	}
	for name, chained := range cases {
		t.Run(name, func(t *testing.T) {
			src := fstest.MapFS{
				AbilitiesFileName: {Data: []byte(`[{"id":"levitate","name":"Levitate"}]`)},
				SpeciesFileName:   {Data: []byte("[" + rotom + "," + wash + "," + chained + "]")},
			}
			_, err := NewResolver(src)
			if !errors.Is(err, ErrInvalidDocument) {
				t.Fatalf("expected ErrInvalidDocument for a form of a form, got %v", err)
			}
		})
	}
}

func TestResolverRejectsUnknownAbilityReference(t *testing.T) {
	src := fstest.MapFS{
		SpeciesFileName: {Data: []byte(`[{"id":"pikachu","name":"Pikachu","types":["Electric"],"baseStats":{"hp":35,"atk":55,"def":40,"spa":50,"spd":50,"spe":90},"abilities":{"0":"static"}}]`)},
	}
	_, err := NewResolver(src)
	if !errors.Is(err, ErrUnknownAbility) {
		t.Fatalf("expected ErrUnknownAbility, got %v", err)
	}
}

func TestResolverRejectsUngatedBattleOnlyForm(t *testing.T) {
	src := fstest.MapFS{
		AbilitiesFileName: {Data: []byte(`[{"id":"zenmode","name":"Zen Mode"}]`)},
		SpeciesFileName: {Data: []byte(`[
			{"id":"darmanitan","name":"Darmanitan","types":["Fire"],"baseStats":{"hp":105,"atk":140,"def":55,"spa":30,"spd":55,"spe":95},"abilities":{"0":"zenmode"}},
			{"id":"darmanitanzen","name":"Darmanitan-Zen","baseSpecies":"darmanitan","forme":"Zen","battleOnly":true}
		]`)},
	}
	_, err := NewResolver(src)
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestResolverAcceptsObjectLayoutAndOverlays(t *testing.T) {
	base := fstest.MapFS{
		MovesFileName: {Data: []byte(`{"tackle":{"name":"Tackle","type":"Normal","category":"Physical","basePower":40,"accuracy":100,"pp":35}}`)},
	}
	overlay := fstest.MapFS{
		MovesFileName: {Data: []byte(`[{"id":"tackle","name":"Tackle","type":"normal","category":"Physical","basePower":50,"accuracy":100,"pp":35}]`)},
	}
	r, err := NewResolver(base, overlay)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	move, err := r.Move("tackle")
	if err != nil {
		t.Fatalf("lookup tackle: %v", err)
	}
	if move.BasePower != 50 {
		t.Fatalf("expected overlay base power 50, got %d", move.BasePower)
	}
	if move.Type != TypeNormal || move.Target != TargetNormal || move.CritRatio != 1 {
		t.Fatalf("expected normalized defaults, got %+v", move)
	}
}

func TestResolverRejectsDuplicateIDs(t *testing.T) {
	src := fstest.MapFS{
		ItemsFileName: {Data: []byte(`[{"id":"leftovers","name":"Leftovers"},{"id":"Leftovers","name":"Leftovers"}]`)},
	}
	if _, err := NewResolver(src); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}
}

func TestResolverRejectsMalformedMove(t *testing.T) {
	cases := map[string]string{
		"unknown type":   `[{"id":"x","name":"X","type":"Sound","category":"Special","basePower":40,"pp":5}]`,
		"bad category":   `[{"id":"x","name":"X","type":"Normal","category":"Magic","basePower":40,"pp":5}]`,
		"no pp":          `[{"id":"x","name":"X","type":"Normal","category":"Physical","basePower":40}]`,
		"no power":       `[{"id":"x","name":"X","type":"Normal","category":"Physical","pp":5}]`,
		"boost hp":       `[{"id":"x","name":"X","type":"Normal","category":"Status","pp":5,"boosts":{"hp":1}}]`,
		"zero secondary": `[{"id":"x","name":"X","type":"Normal","category":"Physical","basePower":40,"pp":5,"secondary":{"chance":0}}]`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			src := fstest.MapFS{MovesFileName: {Data: []byte(doc)}}
			if _, err := NewResolver(src); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}

func TestUnknownLookupsWrapSentinels(t *testing.T) {
	r := MustBuiltin()
	if _, err := r.Species("missingno"); !errors.Is(err, ErrUnknownSpecies) {
		t.Fatalf("expected ErrUnknownSpecies, got %v", err)
	}
	if _, err := r.Move("hyperspacefury"); !errors.Is(err, ErrUnknownMove) {
		t.Fatalf("expected ErrUnknownMove, got %v", err)
	}
	if _, err := r.Ability("wonderguard"); !errors.Is(err, ErrUnknownAbility) {
		t.Fatalf("expected ErrUnknownAbility, got %v", err)
	}
	if _, err := r.Item("masterball"); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
	var nilResolver *Resolver
	if _, err := nilResolver.Species("pikachu"); !errors.Is(err, ErrUnknownSpecies) {
		t.Fatalf("expected nil resolver to report unknown, got %v", err)
	}
}

func TestToID(t *testing.T) {
	cases := map[string]string{
		"Flabébé":        "flabebe",
		"Mr. Mime":       "mrmime",
		"Will-O-Wisp":    "willowisp",
		"  Porygon-Z ":   "porygonz",
		"Type: Null":     "typenull",
		"":               "",
		"farfetch’d":     "farfetchd",
		"Nidoran♀":       "nidoran",
		"Pokémon Center": "pokemoncenter",
	}
	for in, want := range cases {
		if got := ToID(in); got != want {
			t.Fatalf("ToID(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestLookupNature(t *testing.T) {
	n, err := LookupNature("Adamant")
	if err != nil {
		t.Fatalf("lookup adamant: %v", err)
	}
	if n.Plus != StatAtk || n.Minus != StatSpA {
		t.Fatalf("expected +atk -spa, got %+v", n)
	}
	neutral, err := LookupNature("")
	if err != nil || !neutral.Neutral() {
		t.Fatalf("expected empty nature to be neutral, got %+v %v", neutral, err)
	}
	if _, err := LookupNature("grumpy"); !errors.Is(err, ErrUnknownNature) {
		t.Fatalf("expected ErrUnknownNature, got %v", err)
	}
}
