// Package battle is the turn-based battle state machine. A Battle owns its
// RNG, effect registry, dispatcher and journal; nothing is shared between
// instances, so many battles may run in parallel on separate goroutines.
package battle

import (
	"context"
	"fmt"

	"skirmish/catalog"
	"skirmish/internal/battle/damage"
	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/effects"
	"skirmish/internal/battle/queue"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
	"skirmish/internal/rng"
	"skirmish/logging"
	battlelog "skirmish/logging/battle"
)

// Phase is the state machine position.
type Phase string

const (
	PhaseTeamPreview      Phase = "team-preview"
	PhaseDecision         Phase = "decision"
	PhaseExecuting        Phase = "executing"
	PhaseResidual         Phase = "residual"
	PhaseFaintReplacement Phase = "faint-replacement"
	PhaseTerminal         Phase = "terminal"
)

// RosterEntry is one team member as a player submits it.
type RosterEntry struct {
	Name    string             `yaml:"name" json:"name,omitempty"`
	Species string             `yaml:"species" json:"species"`
	Ability string             `yaml:"ability" json:"ability,omitempty"`
	Item    string             `yaml:"item" json:"item,omitempty"`
	Nature  string             `yaml:"nature" json:"nature,omitempty"`
	Level   int                `yaml:"level" json:"level,omitempty"`
	Moves   []string           `yaml:"moves" json:"moves"`
	IVs     *catalog.StatTable `yaml:"ivs" json:"ivs,omitempty"`
	EVs     *catalog.StatTable `yaml:"evs" json:"evs,omitempty"`
}

// Team is a roster plus the bag items usable during the battle.
type Team struct {
	Name   string         `yaml:"name" json:"name"`
	Roster []RosterEntry  `yaml:"roster" json:"roster"`
	Bag    map[string]int `yaml:"bag" json:"bag,omitempty"`
}

// Options tune a battle instance.
type Options struct {
	// ID names the battle in journals and operational logs.
	ID string
	// Publisher receives operational events. Nil discards them.
	Publisher logging.Publisher
	// Effects are registered next to the built-in effect library.
	Effects []*dispatch.Definition
}

// Battle is one match. It is not safe for concurrent use: Run, or a caller
// driving Submit and Advance itself, must own it.
type Battle struct {
	id    string
	seed  string
	rules rules
	dex   catalog.Dex

	rng       *rng.PRNG
	field     *state.Field
	sides     [2]*state.Side
	journal   *journal.Journal
	registry  *dispatch.Registry
	events    *dispatch.Dispatcher
	calc      *damage.Calculator
	publisher logging.Publisher

	phase   Phase
	pending [2]map[int]Choice
	queue   *queue.Queue
	speeds  map[*state.Combatant]int
	// entered records the activation order of each combatant's ability and
	// item, assigned at switch-in.
	entered map[*state.Combatant]int
	order   int
	outcome *Outcome

	// inTurn is set while a turn executes; a battle decided mid-turn still
	// counts that turn.
	inTurn      bool
	turnStart   int
	turnActions int
}

// New builds a battle in team preview. Every catalog reference is resolved
// here; an unknown id or a battle-only form is a setup error.
func New(format Format, dex catalog.Dex, teams [2]Team, seed string, opts Options) (*Battle, error) {
	if dex == nil {
		return nil, fmt.Errorf("battle: nil catalog")
	}
	r, err := format.resolve()
	if err != nil {
		return nil, err
	}
	registry, err := effects.NewRegistry(opts.Effects...)
	if err != nil {
		return nil, err
	}
	id := opts.ID
	if id == "" {
		id = "battle-" + seed
	}
	pub := opts.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}

	b := &Battle{
		id:        id,
		seed:      seed,
		rules:     r,
		dex:       dex,
		rng:       rng.New(seed, "battle"),
		field:     state.NewField(),
		journal:   journal.New(),
		registry:  registry,
		publisher: pub,
		phase:     PhaseTeamPreview,
		speeds:    make(map[*state.Combatant]int),
		entered:   make(map[*state.Combatant]int),
	}
	for i := range teams {
		side, err := b.buildSide(state.SideID(i), teams[i])
		if err != nil {
			return nil, err
		}
		b.sides[i] = side
		b.pending[i] = make(map[int]Choice)
	}

	b.events, err = dispatch.New(dispatch.Config{
		Registry:   registry,
		Source:     b,
		Engine:     b,
		Precedence: r.precedence,
	})
	if err != nil {
		return nil, err
	}
	b.calc = damage.New(b.events, b.rng)

	battlelog.Created(context.Background(), b.publisher, b.id, battlelog.CreatedPayload{
		Format: r.Name,
		Seed:   seed,
		Sides:  []string{b.sides[0].Name, b.sides[1].Name},
	}, nil)
	return b, nil
}

func (b *Battle) buildSide(id state.SideID, team Team) (*state.Side, error) {
	if len(team.Roster) == 0 {
		return nil, fmt.Errorf("%w: %s roster is empty", ErrInvalidTeam, id)
	}
	if len(team.Roster) > b.rules.TeamSize {
		return nil, fmt.Errorf("%w: %s roster has %d members, format allows %d", ErrInvalidTeam, id, len(team.Roster), b.rules.TeamSize)
	}
	roster := make([]*state.Combatant, 0, len(team.Roster))
	for i, entry := range team.Roster {
		spec, err := b.resolveEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %s roster %d: %w", ErrInvalidTeam, id, i, err)
		}
		spec.Side = id
		spec.RosterIndex = i
		roster = append(roster, state.NewCombatant(spec))
	}
	name := team.Name
	if name == "" {
		name = id.String()
	}
	side := state.NewSide(id, name, roster, b.rules.ActivePerSide)
	for item, count := range team.Bag {
		itemID := catalog.ToID(item)
		rec, err := b.dex.Item(itemID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s bag: %w", ErrInvalidTeam, id, err)
		}
		if rec.Use == nil {
			return nil, fmt.Errorf("%w: %s bag item %q cannot be used", ErrInvalidTeam, id, itemID)
		}
		if count > 0 {
			side.Bag[itemID] += count
		}
	}
	return side, nil
}

func (b *Battle) resolveEntry(entry RosterEntry) (state.Spec, error) {
	species, err := b.dex.Species(catalog.ToID(entry.Species))
	if err != nil {
		return state.Spec{}, err
	}
	if species.BattleOnly {
		return state.Spec{}, fmt.Errorf("species %q is only reachable in battle", species.ID)
	}
	ability := catalog.ToID(entry.Ability)
	if ability == "" {
		ability = species.Abilities.Primary
	}
	if _, err := b.dex.Ability(ability); err != nil {
		return state.Spec{}, err
	}
	item := catalog.ToID(entry.Item)
	if item != "" {
		if _, err := b.dex.Item(item); err != nil {
			return state.Spec{}, err
		}
	}
	nature, err := catalog.LookupNature(entry.Nature)
	if err != nil {
		return state.Spec{}, err
	}
	if len(entry.Moves) == 0 || len(entry.Moves) > 4 {
		return state.Spec{}, fmt.Errorf("needs one to four moves, got %d", len(entry.Moves))
	}
	moves := make([]catalog.Move, 0, len(entry.Moves))
	seen := make(map[string]bool, len(entry.Moves))
	for _, name := range entry.Moves {
		move, err := b.dex.Move(catalog.ToID(name))
		if err != nil {
			return state.Spec{}, err
		}
		if seen[move.ID] {
			return state.Spec{}, fmt.Errorf("move %q listed twice", move.ID)
		}
		seen[move.ID] = true
		if err := b.checkMoveEffects(move); err != nil {
			return state.Spec{}, err
		}
		moves = append(moves, move)
	}
	level := entry.Level
	if b.rules.Level > 0 {
		level = b.rules.Level
	}
	if level <= 0 {
		level = 100
	}
	if level > 100 {
		return state.Spec{}, fmt.Errorf("level %d out of range", level)
	}
	ivs := state.FullIVs()
	if entry.IVs != nil {
		ivs = *entry.IVs
	}
	var evs catalog.StatTable
	if entry.EVs != nil {
		evs = *entry.EVs
	}
	return state.Spec{
		Name:    entry.Name,
		Species: species,
		Level:   level,
		Nature:  nature,
		IVs:     ivs,
		EVs:     evs,
		Ability: ability,
		Item:    item,
		Moves:   moves,
	}, nil
}

// checkMoveEffects makes sure every condition a move can set has a
// definition.
func (b *Battle) checkMoveEffects(move catalog.Move) error {
	refs := []string{move.Status, move.VolatileStatus, move.SideCondition, move.Weather, move.Terrain}
	if move.Secondary != nil {
		refs = append(refs, move.Secondary.Status, move.Secondary.VolatileStatus)
	}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if !b.registry.Has(ref) {
			return fmt.Errorf("move %q: %w: %q", move.ID, dispatch.ErrUnknownEffect, ref)
		}
	}
	return nil
}

// ID returns the battle id.
func (b *Battle) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

// Seed returns the seed the battle RNG was derived from.
func (b *Battle) Seed() string {
	if b == nil {
		return ""
	}
	return b.seed
}

// Format returns the rules in effect.
func (b *Battle) Format() Format {
	if b == nil {
		return Format{}
	}
	return b.rules.Format
}

// Phase reports the state machine position.
func (b *Battle) Phase() Phase {
	if b == nil {
		return PhaseTerminal
	}
	return b.phase
}

// Ended reports whether the battle reached its terminal state.
func (b *Battle) Ended() bool {
	return b == nil || b.phase == PhaseTerminal
}

// Turn returns the turn counter.
func (b *Battle) Turn() int {
	if b == nil {
		return 0
	}
	return b.field.Turn
}

// Journal returns the battle's event log.
func (b *Battle) Journal() *journal.Journal {
	if b == nil {
		return nil
	}
	return b.journal
}

// Outcome returns the result once the battle has ended, or nil.
func (b *Battle) Outcome() *Outcome {
	if b == nil {
		return nil
	}
	return b.outcome
}

// Combatant looks up a combatant by id.
func (b *Battle) Combatant(id string) *state.Combatant {
	if b == nil {
		return nil
	}
	for _, side := range b.sides {
		for _, c := range side.Roster {
			if c.ID == id {
				return c
			}
		}
	}
	return nil
}

func (b *Battle) nextOrder() int {
	b.order++
	return b.order
}

func (b *Battle) emit(e journal.Event) {
	e.Turn = b.field.Turn
	b.journal.Append(e)
}

func (b *Battle) emitSwitch(kind journal.Kind, c *state.Combatant) {
	b.emit(journal.Event{
		Kind:    kind,
		Actor:   c.ID,
		Side:    c.Side.String(),
		Name:    c.Name,
		Species: c.Species.ID,
		Slot:    c.Slot,
		HP:      journal.HP(c.HP, c.MaxHP),
	})
}

func (b *Battle) emitHP(kind journal.Kind, c *state.Combatant, effect string) {
	b.emit(journal.Event{Kind: kind, Target: c.ID, Effect: effect, HP: journal.HP(c.HP, c.MaxHP)})
}

// active lists every combatant in play, side one first, in slot order.
func (b *Battle) active() []*state.Combatant {
	var out []*state.Combatant
	for _, side := range b.sides {
		out = append(out, side.ActiveCombatants()...)
	}
	return out
}

// bySpeed orders combatants fastest first, breaking ties with the RNG.
func (b *Battle) bySpeed(cs []*state.Combatant) []*state.Combatant {
	actions := make([]queue.Action, len(cs))
	for i, c := range cs {
		actions[i] = queue.Action{Actor: c, Speed: b.Speed(c)}
	}
	queue.Sort(actions, b.rng)
	out := make([]*state.Combatant, len(actions))
	for i, a := range actions {
		out[i] = a.Actor
	}
	return out
}
