package battle

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"skirmish/catalog"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
)

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func entry(species string, moves ...string) RosterEntry {
	return RosterEntry{Species: species, Moves: moves}
}

func newBattle(t fataler, format Format, one, two []RosterEntry, seed string, opts Options) *Battle {
	t.Helper()
	teams := [2]Team{{Name: "one", Roster: one}, {Name: "two", Roster: two}}
	b, err := New(format, catalog.MustBuiltin(), teams, seed, opts)
	if err != nil {
		t.Fatalf("failed to build battle: %v", err)
	}
	return b
}

func startedBattle(t fataler, one, two []RosterEntry, seed string) *Battle {
	t.Helper()
	b := newBattle(t, DefaultFormat(), one, two, seed, Options{})
	if err := b.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return b
}

func submit(t *testing.T, b *Battle, side state.SideID, choice Choice) {
	t.Helper()
	if err := b.Submit(side, choice); err != nil {
		t.Fatalf("submit %s %+v: %v", side, choice, err)
	}
}

func kinds(events []journal.Event, kind journal.Kind) []journal.Event {
	var out []journal.Event
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestStartPlacesLeadsAndEntersDecision(t *testing.T) {
	b := startedBattle(t,
		[]RosterEntry{entry("pikachu", "thunderbolt"), entry("charizard", "flamethrower")},
		[]RosterEntry{entry("blastoise", "scald")},
		"start")
	if b.Phase() != PhaseDecision {
		t.Fatalf("expected decision phase, got %s", b.Phase())
	}
	if lead := b.sides[0].At(0); lead == nil || lead.Species.ID != "pikachu" {
		t.Fatalf("expected pikachu to lead by default, got %+v", lead)
	}
	switches := kinds(b.Journal().Events(), journal.KindSwitch)
	if len(switches) != 2 {
		t.Fatalf("expected two switch events, got %d", len(switches))
	}
}

func TestTeamOrderChoosesLead(t *testing.T) {
	b := newBattle(t, DefaultFormat(),
		[]RosterEntry{entry("pikachu", "thunderbolt"), entry("charizard", "flamethrower")},
		[]RosterEntry{entry("blastoise", "scald")},
		"order", Options{})
	if err := b.Submit(state.SideOne, Choice{Kind: ChoiceTeam, Order: []int{1, 1}}); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected duplicate order to be rejected, got %v", err)
	}
	submit(t, b, state.SideOne, Choice{Kind: ChoiceTeam, Order: []int{1}})
	if err := b.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if lead := b.sides[0].At(0); lead.Species.ID != "charizard" {
		t.Fatalf("expected charizard to lead, got %s", lead.Species.ID)
	}
}

func TestNewRejectsBattleOnlyForm(t *testing.T) {
	teams := [2]Team{
		{Roster: []RosterEntry{entry("darmanitanzen", "tackle")}},
		{Roster: []RosterEntry{entry("pikachu", "tackle")}},
	}
	if _, err := New(DefaultFormat(), catalog.MustBuiltin(), teams, "zen", Options{}); !errors.Is(err, ErrInvalidTeam) {
		t.Fatalf("expected ErrInvalidTeam, got %v", err)
	}
}

func TestNewRejectsUnknownReferences(t *testing.T) {
	teams := [2]Team{
		{Roster: []RosterEntry{entry("pikachu", "notamove")}},
		{Roster: []RosterEntry{entry("pikachu", "tackle")}},
	}
	_, err := New(DefaultFormat(), catalog.MustBuiltin(), teams, "unknown", Options{})
	if !errors.Is(err, catalog.ErrUnknownMove) {
		t.Fatalf("expected ErrUnknownMove, got %v", err)
	}
}

func TestLastHitPointFaintsBeforeNextAction(t *testing.T) {
	b := startedBattle(t,
		[]RosterEntry{entry("pikachu", "tackle")},
		[]RosterEntry{entry("charizard", "tackle")},
		"faint")
	pikachu := b.sides[0].At(0)
	pikachu.HP = 1

	submit(t, b, state.SideOne, Choice{Kind: ChoiceMove, Move: "tackle"})
	submit(t, b, state.SideTwo, Choice{Kind: ChoiceMove, Move: "tackle"})
	if err := b.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	if pikachu.HP != 0 || !pikachu.Fainted {
		t.Fatalf("expected pikachu at 0 HP and fainted, got hp=%d fainted=%t", pikachu.HP, pikachu.Fainted)
	}
	events := b.Journal().Events()
	faintAt := -1
	for i, e := range events {
		switch {
		case e.Kind == journal.KindFaint && e.Target == pikachu.ID:
			faintAt = i
		case e.Kind == journal.KindMove && e.Actor == pikachu.ID:
			t.Fatalf("fainted combatant still moved at event %d", i)
		}
	}
	if faintAt < 0 {
		t.Fatalf("expected a faint event for %s", pikachu.ID)
	}
	out := b.Outcome()
	if out == nil || out.Result != ResultWin || out.Winner != state.SideTwo {
		t.Fatalf("expected side two to win, got %+v", out)
	}
	assertClosedTurns(t, b, 1)
}

// assertClosedTurns checks the outcome counts turns and that every counted
// turn logged its end before the result.
func assertClosedTurns(t *testing.T, b *Battle, want int) {
	t.Helper()
	if got := b.Outcome().Turns; got != want {
		t.Fatalf("expected %d turns on the outcome, got %d", want, got)
	}
	events := b.Journal().Events()
	turns := kinds(events, journal.KindTurn)
	if len(turns) != want {
		t.Fatalf("expected %d turn events, got %d", want, len(turns))
	}
	if last := turns[len(turns)-1]; last.Turn != want {
		t.Fatalf("expected the last turn event to read %d, got %d", want, last.Turn)
	}
	lastTurn, result := -1, -1
	for i, e := range events {
		switch e.Kind {
		case journal.KindTurn:
			lastTurn = i
		case journal.KindWin, journal.KindTie:
			result = i
		}
	}
	if result >= 0 && lastTurn > result {
		t.Fatalf("turn event logged after the result")
	}
}

func TestResidualDefeatEndsBattle(t *testing.T) {
	b := startedBattle(t,
		[]RosterEntry{entry("pikachu", "swordsdance")},
		[]RosterEntry{entry("blastoise", "swordsdance")},
		"residual")
	pikachu := b.sides[0].At(0)
	if ok, err := b.SetStatus(pikachu, nil, "brn", ""); err != nil || !ok {
		t.Fatalf("expected burn to apply, ok=%t err=%v", ok, err)
	}
	pikachu.HP = 1

	submit(t, b, state.SideOne, Choice{Kind: ChoiceMove, Move: "swordsdance"})
	submit(t, b, state.SideTwo, Choice{Kind: ChoiceMove, Move: "swordsdance"})
	if err := b.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if b.Phase() != PhaseTerminal {
		t.Fatalf("expected terminal phase, got %s", b.Phase())
	}
	out := b.Outcome()
	if out.Result != ResultWin || out.Winner != state.SideTwo || out.Reason != ReasonDefeated {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(kinds(b.Journal().Events(), journal.KindWin)) != 1 {
		t.Fatalf("expected exactly one win event")
	}
	assertClosedTurns(t, b, 1)
	if err := b.Submit(state.SideOne, Choice{Kind: ChoicePass}); !errors.Is(err, ErrEnded) {
		t.Fatalf("expected ErrEnded after the battle, got %v", err)
	}
}

func TestFaintedTargetRejectedWithoutMutation(t *testing.T) {
	b := newBattle(t, DoublesFormat(),
		[]RosterEntry{entry("pikachu", "tackle"), entry("charizard", "tackle")},
		[]RosterEntry{entry("blastoise", "tackle"), entry("venusaur", "tackle")},
		"doubles", Options{})
	if err := b.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	foe := b.sides[1].At(0)
	foe.HP = 0
	foe.Fainted = true
	before := b.Journal().Len()

	err := b.Submit(state.SideOne, Choice{Kind: ChoiceMove, Slot: 0, Move: "tackle", Target: 1})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if verr.Code != CodeTargetFainted {
		t.Fatalf("expected %s, got %s", CodeTargetFainted, verr.Code)
	}
	if !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected error to match ErrInvalidChoice")
	}
	if len(b.pending[0]) != 0 {
		t.Fatalf("expected no pending choice, got %v", b.pending[0])
	}
	if b.Journal().Len() != before {
		t.Fatalf("rejection appended to the journal")
	}
	if foe.HP != 0 {
		t.Fatalf("rejection touched the target")
	}
}

func TestSubmitValidation(t *testing.T) {
	b := startedBattle(t,
		[]RosterEntry{entry("pikachu", "thunderbolt"), entry("charizard", "flamethrower")},
		[]RosterEntry{entry("blastoise", "scald")},
		"validation")
	cases := []struct {
		name   string
		choice Choice
		code   Code
	}{
		{"unknown move", Choice{Kind: ChoiceMove, Move: "icebeam"}, CodeUnknownMove},
		{"struggle with moves left", Choice{Kind: ChoiceMove, Move: "struggle"}, CodeMoveUnavailable},
		{"slot not expected", Choice{Kind: ChoiceMove, Slot: 1, Move: "thunderbolt"}, CodeNotExpected},
		{"switch to active", Choice{Kind: ChoiceSwitch, Switch: 0}, CodeSwitchUnavailable},
		{"empty bag", Choice{Kind: ChoiceItem, Item: "potion"}, CodeItemUnavailable},
		{"missing foe slot", Choice{Kind: ChoiceMove, Move: "thunderbolt", Target: 3}, CodeIllegalTarget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := b.Submit(state.SideOne, tc.choice)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Code != tc.code {
				t.Fatalf("expected %s, got %s (%s)", tc.code, verr.Code, verr.Reason)
			}
		})
	}
	submit(t, b, state.SideOne, Choice{Kind: ChoiceMove, Move: "thunderbolt"})
	if err := b.Submit(state.SideOne, Choice{Kind: ChoiceMove, Move: "thunderbolt"}); err == nil {
		t.Fatalf("expected a second choice for the same slot to be rejected")
	}
}

func TestImmuneHitDealsNothingAndSkipsSecondaries(t *testing.T) {
	for seed := range 20 {
		b := startedBattle(t,
			[]RosterEntry{entry("gengar", "swordsdance")},
			[]RosterEntry{entry("machamp", "bodyslam")},
			fmt.Sprintf("immune-%d", seed))
		gengar := b.sides[0].At(0)
		submit(t, b, state.SideOne, Choice{Kind: ChoiceMove, Move: "swordsdance"})
		submit(t, b, state.SideTwo, Choice{Kind: ChoiceMove, Move: "bodyslam"})
		if err := b.Advance(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
		if gengar.HP != gengar.MaxHP {
			t.Fatalf("seed %d: immune target lost HP: %d/%d", seed, gengar.HP, gengar.MaxHP)
		}
		if gengar.Status != "" {
			t.Fatalf("seed %d: immune hit applied %q", seed, gengar.Status)
		}
		if len(kinds(b.Journal().Events(), journal.KindImmune)) != 1 {
			t.Fatalf("seed %d: expected an immune event", seed)
		}
	}
}

func TestZenModeTransformsAndRevertsOnSwitchOut(t *testing.T) {
	b := startedBattle(t,
		[]RosterEntry{
			{Species: "darmanitan", Ability: "zenmode", Moves: []string{"tackle"}},
			entry("pikachu", "thunderbolt"),
		},
		[]RosterEntry{entry("blastoise", "swordsdance")},
		"zen")
	darm := b.sides[0].At(0)
	darm.HP = darm.MaxHP / 3

	submit(t, b, state.SideOne, Choice{Kind: ChoiceMove, Move: "tackle"})
	submit(t, b, state.SideTwo, Choice{Kind: ChoiceMove, Move: "swordsdance"})
	if err := b.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if darm.Species.ID != "darmanitanzen" {
		t.Fatalf("expected zen form below half HP, got %s", darm.Species.ID)
	}
	if !darm.HasType(catalog.TypePsychic) {
		t.Fatalf("expected zen form types, got %v", darm.Types)
	}

	submit(t, b, state.SideOne, Choice{Kind: ChoiceSwitch, Switch: 1})
	submit(t, b, state.SideTwo, Choice{Kind: ChoiceMove, Move: "swordsdance"})
	if err := b.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if darm.Species.ID != "darmanitan" || darm.Transformed() {
		t.Fatalf("expected revert on switch-out, got %s", darm.Species.ID)
	}
	if darm.Slot != -1 {
		t.Fatalf("expected darmanitan benched, slot %d", darm.Slot)
	}
}

func TestSameSeedReplaysIdentically(t *testing.T) {
	run := func(seed string) string {
		b := startedBattle(t,
			[]RosterEntry{entry("charizard", "flamethrower", "airslash"), entry("pikachu", "thunderbolt")},
			[]RosterEntry{entry("venusaur", "gigadrain", "sludgebomb"), entry("tyranitar", "rockslide", "crunch")},
			seed)
		for turn := 0; turn < 30 && !b.Ended(); turn++ {
			b.FillDefaults(state.SideOne)
			b.FillDefaults(state.SideTwo)
			if err := b.Advance(); err != nil {
				t.Fatalf("advance failed: %v", err)
			}
		}
		return b.Journal().Checksum()
	}
	first := run("replay")
	if second := run("replay"); first != second {
		t.Fatalf("expected identical checksums, got %s and %s", first, second)
	}
}

func TestEffectPrecedenceIsConfigurable(t *testing.T) {
	format := DefaultFormat()
	format.EffectPrecedence = []string{"move", "status", "item", "ability", "field"}
	b := newBattle(t, format,
		[]RosterEntry{entry("pikachu", "tackle")},
		[]RosterEntry{entry("pikachu", "tackle")},
		"precedence", Options{})
	got := b.events.Precedence()
	want := []dispatch.Kind{dispatch.KindMove, dispatch.KindStatus, dispatch.KindItem, dispatch.KindAbility, dispatch.KindField}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected precedence %v, got %v", want, got)
		}
	}

	format.EffectPrecedence = []string{"move", "status"}
	teams := [2]Team{{Roster: []RosterEntry{entry("pikachu", "tackle")}}, {Roster: []RosterEntry{entry("pikachu", "tackle")}}}
	if _, err := New(format, catalog.MustBuiltin(), teams, "precedence", Options{}); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat for a partial precedence, got %v", err)
	}
}

type extraAbilities struct {
	catalog.Dex
	abilities map[string]catalog.Ability
}

func (d extraAbilities) Ability(id string) (catalog.Ability, error) {
	if a, ok := d.abilities[id]; ok {
		return a, nil
	}
	return d.Dex.Ability(id)
}

func TestReentrantDispatchHaltsBattle(t *testing.T) {
	echo := dispatch.Define("echo", dispatch.KindAbility).On(dispatch.SwitchIn, func(c *dispatch.Call) error {
		_, err := c.Dispatch(dispatch.Event{ID: dispatch.SwitchIn, Target: c.Target})
		return err
	})
	dex := extraAbilities{Dex: catalog.MustBuiltin(), abilities: map[string]catalog.Ability{"echo": {ID: "echo", Name: "Echo"}}}
	teams := [2]Team{
		{Roster: []RosterEntry{{Species: "pikachu", Ability: "echo", Moves: []string{"tackle"}}}},
		{Roster: []RosterEntry{entry("blastoise", "tackle")}},
	}
	b, err := New(DefaultFormat(), dex, teams, "echo", Options{Effects: []*dispatch.Definition{echo}})
	if err != nil {
		t.Fatalf("failed to build battle: %v", err)
	}
	err = b.Start()
	if !errors.Is(err, ErrInternal) || !errors.Is(err, dispatch.ErrReentrant) {
		t.Fatalf("expected an internal re-entrancy error, got %v", err)
	}
	out := b.Outcome()
	if out == nil || out.Result != ResultInternalError || out.Reason != ReasonInternal {
		t.Fatalf("expected internal-error outcome, got %+v", out)
	}
	events := b.Journal().Events()
	if last := events[len(events)-1]; last.Kind != journal.KindInternalError {
		t.Fatalf("expected the journal to end with an internal error, got %s", last.Kind)
	}
	if err := b.Advance(); !errors.Is(err, ErrEnded) {
		t.Fatalf("expected ErrEnded after halt, got %v", err)
	}
}

func TestForfeitAwardsOpponent(t *testing.T) {
	b := startedBattle(t,
		[]RosterEntry{entry("pikachu", "tackle")},
		[]RosterEntry{entry("blastoise", "tackle")},
		"forfeit")
	if err := b.Forfeit(state.SideTwo); err != nil {
		t.Fatalf("forfeit failed: %v", err)
	}
	out := b.Outcome()
	if out.Winner != state.SideOne || out.Reason != ReasonForfeit || out.WinnerName != "p1" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestTurnLimitDraws(t *testing.T) {
	format := DefaultFormat()
	format.TurnLimit = 2
	b := newBattle(t, format,
		[]RosterEntry{entry("blastoise", "swordsdance")},
		[]RosterEntry{entry("venusaur", "swordsdance")},
		"limit", Options{})
	if err := b.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for !b.Ended() {
		b.FillDefaults(state.SideOne)
		b.FillDefaults(state.SideTwo)
		if err := b.Advance(); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
	}
	out := b.Outcome()
	if out.Result != ResultDraw || out.Reason != ReasonTurnLimit || out.Turns != 2 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	assertClosedTurns(t, b, 2)
}

func TestFaintReplacementPhase(t *testing.T) {
	b := startedBattle(t,
		[]RosterEntry{entry("pikachu", "tackle"), entry("blastoise", "tackle")},
		[]RosterEntry{entry("charizard", "tackle")},
		"replace")
	b.sides[0].At(0).HP = 1
	submit(t, b, state.SideOne, Choice{Kind: ChoiceMove, Move: "tackle"})
	submit(t, b, state.SideTwo, Choice{Kind: ChoiceMove, Move: "tackle"})
	if err := b.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if b.Phase() != PhaseFaintReplacement {
		t.Fatalf("expected faint replacement, got %s", b.Phase())
	}
	if b.Waiting(state.SideTwo) {
		t.Fatalf("side two owes nothing during side one's replacement")
	}
	req := b.Request(state.SideOne)
	if len(req.Slots) != 1 || !req.Slots[0].ForceSwitch {
		t.Fatalf("expected a forced switch request, got %+v", req.Slots)
	}
	submit(t, b, state.SideOne, Choice{Kind: ChoiceSwitch, Switch: 1})
	if err := b.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if b.Phase() != PhaseDecision || b.sides[0].At(0).Species.ID != "blastoise" {
		t.Fatalf("expected blastoise in and a new decision, phase %s", b.Phase())
	}
}

func TestHitPointsStayInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := startedBattle(rt,
			[]RosterEntry{entry("blastoise", "tackle")},
			[]RosterEntry{entry("venusaur", "tackle")},
			"hp")
		c := b.sides[0].At(0)
		amounts := rapid.SliceOfN(rapid.IntRange(-500, 500), 1, 50).Draw(rt, "amounts")
		for _, amount := range amounts {
			var err error
			if amount >= 0 {
				_, err = b.Damage(c, nil, amount, "test")
			} else {
				_, err = b.Heal(c, -amount, "test")
			}
			if err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			if c.HP < 0 || c.HP > c.MaxHP {
				rt.Fatalf("hp %d outside [0, %d]", c.HP, c.MaxHP)
			}
		}
	})
}

func TestBoostStagesStayInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := startedBattle(rt,
			[]RosterEntry{entry("blastoise", "tackle")},
			[]RosterEntry{entry("venusaur", "tackle")},
			"boosts")
		c := b.sides[0].At(0)
		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := range steps {
			stage := state.Boost(rapid.IntRange(0, int(state.BoostCount)-1).Draw(rt, fmt.Sprintf("stage%d", i)))
			delta := rapid.IntRange(-12, 12).Draw(rt, fmt.Sprintf("delta%d", i))
			if err := b.Boost(c, nil, []state.BoostChange{{Boost: stage, Delta: delta}}, "test"); err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			for s := state.Boost(0); s < state.BoostCount; s++ {
				if v := c.Boosts.Get(s); v < state.MinBoost || v > state.MaxBoost {
					rt.Fatalf("%s stage %d out of range", s, v)
				}
			}
		}
	})
}
