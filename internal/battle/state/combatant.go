package state

import (
	"fmt"

	"skirmish/catalog"
)

// SideID identifies one of the two opposing sides.
type SideID int

const (
	SideOne SideID = iota
	SideTwo
	// NoSide marks field-wide ownership.
	NoSide SideID = -1
)

// Foe returns the opposing side.
func (s SideID) Foe() SideID {
	if s == SideOne {
		return SideTwo
	}
	return SideOne
}

func (s SideID) String() string {
	switch s {
	case SideOne:
		return "p1"
	case SideTwo:
		return "p2"
	default:
		return "field"
	}
}

// Valid reports whether s names a real side.
func (s SideID) Valid() bool {
	return s == SideOne || s == SideTwo
}

// MoveSlot is one learned move with its remaining PP.
type MoveSlot struct {
	ID       string
	Name     string
	PP       int
	MaxPP    int
	Disabled bool
}

// Snapshot is the identity a combatant can be restored to after a form change.
type Snapshot struct {
	Species catalog.Species
	Types   []catalog.Type
	Ability string
	Stats   catalog.StatTable
}

func (s Snapshot) clone() Snapshot {
	s.Types = append([]catalog.Type(nil), s.Types...)
	return s
}

// Spec is everything needed to build a combatant from a roster entry once the
// catalog references have been resolved.
type Spec struct {
	Side        SideID
	RosterIndex int
	Name        string
	Species     catalog.Species
	Level       int
	Nature      catalog.Nature
	IVs         catalog.StatTable
	EVs         catalog.StatTable
	Ability     string
	Item        string
	Moves       []catalog.Move
}

// Combatant is one creature's mutable in-battle state. Combatants are never
// deleted; a fainted combatant stays inspectable for the outcome report.
type Combatant struct {
	ID          string
	Name        string
	Side        SideID
	RosterIndex int
	Level       int
	Nature      catalog.Nature
	IVs         catalog.StatTable
	EVs         catalog.StatTable

	// Original is the roster identity; the fields below it are the current,
	// possibly transformed, snapshot.
	Original Snapshot
	Species  catalog.Species
	Types    []catalog.Type
	Ability  string
	Stats    catalog.StatTable

	Item     string
	LastItem string
	MaxHP    int
	HP       int
	Boosts   Boosts

	Status      string
	StatusState EffectState
	Volatiles   ConditionSet

	Moves      []MoveSlot
	ChoiceLock string
	LastMove   string

	// Slot is the active position on the side, or -1 while benched.
	Slot        int
	Fainted     bool
	ActiveTurns int
	// ForcedOut marks a combatant dragged out mid-turn; its queued action is
	// cancelled.
	ForcedOut bool
	// MovedThisTurn is set once the combatant's action has resolved.
	MovedThisTurn bool
	// DamagedThisTurn records the last hit taken this turn.
	DamagedThisTurn int
}

// NewCombatant builds a benched combatant at full HP.
func NewCombatant(spec Spec) *Combatant {
	level := spec.Level
	if level <= 0 {
		level = 100
	}
	stats := CalcStats(spec.Species.BaseStats, spec.IVs, spec.EVs, level, spec.Nature)
	name := spec.Name
	if name == "" {
		name = spec.Species.Name
	}
	c := &Combatant{
		ID:          fmt.Sprintf("%s:%d", spec.Side, spec.RosterIndex),
		Name:        name,
		Side:        spec.Side,
		RosterIndex: spec.RosterIndex,
		Level:       level,
		Nature:      spec.Nature,
		IVs:         spec.IVs,
		EVs:         spec.EVs,
		Species:     spec.Species,
		Types:       append([]catalog.Type(nil), spec.Species.Types...),
		Ability:     spec.Ability,
		Stats:       stats,
		Item:        spec.Item,
		MaxHP:       stats.HP,
		HP:          stats.HP,
		Slot:        -1,
	}
	c.Original = Snapshot{Species: spec.Species, Types: c.Types, Ability: spec.Ability, Stats: stats}.clone()
	for _, move := range spec.Moves {
		pp := move.PP * 8 / 5
		c.Moves = append(c.Moves, MoveSlot{ID: move.ID, Name: move.Name, PP: pp, MaxPP: pp})
	}
	return c
}

// Active reports whether the combatant is on the field and able to act.
func (c *Combatant) Active() bool {
	return c != nil && c.Slot >= 0 && !c.Fainted
}

// Available reports whether the combatant can be switched in.
func (c *Combatant) Available() bool {
	return c != nil && c.Slot < 0 && !c.Fainted && c.HP > 0
}

// HasType reports whether t is one of the current types.
func (c *Combatant) HasType(t catalog.Type) bool {
	if c == nil {
		return false
	}
	for _, own := range c.Types {
		if own == t {
			return true
		}
	}
	return false
}

// Damage subtracts amount from HP, flooring at zero, and returns the HP
// actually removed.
func (c *Combatant) Damage(amount int) (int, error) {
	if c == nil {
		return 0, nil
	}
	if amount < 0 {
		return 0, fmt.Errorf("%w: damage %d to %s", ErrNegativeAmount, amount, c.ID)
	}
	if c.HP <= 0 {
		return 0, nil
	}
	if amount > c.HP {
		amount = c.HP
	}
	c.HP -= amount
	return amount, c.Check()
}

// Heal restores up to amount HP and returns the amount restored. Fainted
// combatants cannot be healed.
func (c *Combatant) Heal(amount int) (int, error) {
	if c == nil || c.Fainted || c.HP <= 0 {
		return 0, nil
	}
	if amount < 0 {
		return 0, fmt.Errorf("%w: heal %d to %s", ErrNegativeAmount, amount, c.ID)
	}
	if missing := c.MaxHP - c.HP; amount > missing {
		amount = missing
	}
	c.HP += amount
	return amount, c.Check()
}

// Check verifies the HP invariant.
func (c *Combatant) Check() error {
	if c == nil {
		return nil
	}
	if c.HP < 0 || c.HP > c.MaxHP {
		return fmt.Errorf("%w: %s has %d/%d", ErrHPOutOfRange, c.ID, c.HP, c.MaxHP)
	}
	return nil
}

// Fraction returns max(1, floor(MaxHP*num/den)), the usual shape of
// percentage-based chip damage and healing.
func (c *Combatant) Fraction(num, den int) int {
	if c == nil || den <= 0 {
		return 0
	}
	v := c.MaxHP * num / den
	if v < 1 {
		v = 1
	}
	return v
}

// SetStatus installs a major status. The caller decides whether the status
// may be applied.
func (c *Combatant) SetStatus(id string, st EffectState) {
	if c == nil {
		return
	}
	st.ID = id
	c.Status = id
	c.StatusState = st
}

// CureStatus clears the major status and returns what was cleared.
func (c *Combatant) CureStatus() string {
	if c == nil {
		return ""
	}
	prev := c.Status
	c.Status = ""
	c.StatusState = EffectState{}
	return prev
}

// Move returns the slot for move id, or nil.
func (c *Combatant) Move(id string) *MoveSlot {
	if c == nil {
		return nil
	}
	for i := range c.Moves {
		if c.Moves[i].ID == id {
			return &c.Moves[i]
		}
	}
	return nil
}

// EffectiveStat returns a stat with its stage applied. HP ignores stages.
func (c *Combatant) EffectiveStat(stat catalog.Stat) int {
	if c == nil {
		return 0
	}
	raw := c.Stats.Get(stat)
	b, ok := BoostFor(stat)
	if !ok {
		return raw
	}
	return BoostedStat(raw, c.Boosts.Get(b))
}

// ChangeSpecies moves the current snapshot to another form. HP is kept; max
// HP follows the new form and current HP is clamped to it.
func (c *Combatant) ChangeSpecies(sp catalog.Species) {
	if c == nil {
		return
	}
	stats := CalcStats(sp.BaseStats, c.IVs, c.EVs, c.Level, c.Nature)
	c.Species = sp
	c.Types = append([]catalog.Type(nil), sp.Types...)
	c.Stats = stats
	c.applyMaxHP(stats.HP)
}

// Transformed reports whether the current snapshot differs from the roster
// identity.
func (c *Combatant) Transformed() bool {
	return c != nil && c.Species.ID != c.Original.Species.ID
}

// Restore reverts the current snapshot to the roster identity.
func (c *Combatant) Restore() {
	if c == nil {
		return
	}
	orig := c.Original.clone()
	c.Species = orig.Species
	c.Types = orig.Types
	c.Ability = orig.Ability
	c.Stats = orig.Stats
	c.applyMaxHP(orig.Stats.HP)
}

func (c *Combatant) applyMaxHP(maxHP int) {
	if maxHP == c.MaxHP {
		return
	}
	c.MaxHP = maxHP
	if c.HP > maxHP {
		c.HP = maxHP
	}
}

// SwitchOut clears everything that does not persist on the bench.
func (c *Combatant) SwitchOut() {
	if c == nil {
		return
	}
	c.Slot = -1
	c.Boosts.Clear()
	c.Volatiles.Clear()
	c.ChoiceLock = ""
	c.ActiveTurns = 0
	c.LastMove = ""
	if c.Status == "tox" {
		c.StatusState.Counter = 0
	}
	c.Restore()
}

// View is an immutable summary of a combatant.
type View struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Species   string   `json:"species"`
	Side      string   `json:"side"`
	Slot      int      `json:"slot"`
	HP        int      `json:"hp"`
	MaxHP     int      `json:"maxHp"`
	Status    string   `json:"status,omitempty"`
	Fainted   bool     `json:"fainted"`
	Ability   string   `json:"ability"`
	Item      string   `json:"item,omitempty"`
	Boosts    Boosts   `json:"boosts"`
	Volatiles []string `json:"volatiles,omitempty"`
}

// View returns a snapshot for reports and requests.
func (c *Combatant) View() View {
	if c == nil {
		return View{}
	}
	v := View{
		ID:      c.ID,
		Name:    c.Name,
		Species: c.Species.ID,
		Side:    c.Side.String(),
		Slot:    c.Slot,
		HP:      c.HP,
		MaxHP:   c.MaxHP,
		Status:  c.Status,
		Fainted: c.Fainted,
		Ability: c.Ability,
		Item:    c.Item,
		Boosts:  c.Boosts,
	}
	for _, vol := range c.Volatiles.List() {
		v.Volatiles = append(v.Volatiles, vol.ID)
	}
	return v
}
