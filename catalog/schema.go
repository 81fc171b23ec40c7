package catalog

// The document types below model the JSON files a catalog directory holds
// (species.json, moves.json, abilities.json, items.json). They are shared with
// cmd/schema so the authored data can be validated by editors.

// AbilitySlots names the abilities a species may be built with.
type AbilitySlots struct {
	Primary   string `json:"0" jsonschema:"title=Primary ability,minLength=1"`
	Secondary string `json:"1,omitempty" jsonschema:"title=Secondary ability"`
	Hidden    string `json:"H,omitempty" jsonschema:"title=Hidden ability"`
}

// Contains reports whether id occupies any slot.
func (a AbilitySlots) Contains(id string) bool {
	return id != "" && (a.Primary == id || a.Secondary == id || a.Hidden == id)
}

// IDs returns the filled slots in slot order.
func (a AbilitySlots) IDs() []string {
	out := make([]string, 0, 3)
	for _, id := range []string{a.Primary, a.Secondary, a.Hidden} {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// FormOverrides is the delta an alternate form applies on top of its base
// species. Unset fields inherit from the base record.
type FormOverrides struct {
	Types     []string      `json:"types,omitempty" jsonschema:"minItems=1,maxItems=2"`
	BaseStats *StatTable    `json:"baseStats,omitempty"`
	Abilities *AbilitySlots `json:"abilities,omitempty"`
	HeightM   *float64      `json:"heightm,omitempty" jsonschema:"minimum=0"`
	WeightKg  *float64      `json:"weightkg,omitempty" jsonschema:"minimum=0"`
	Color     string        `json:"color,omitempty"`
}

// SpeciesDocument is a species or alternate form as authored on disk.
type SpeciesDocument struct {
	ID              string         `json:"id" jsonschema:"title=Species id,pattern=^[a-z0-9]+$,minLength=1,required"`
	Name            string         `json:"name" jsonschema:"title=Display name,minLength=1,required"`
	Num             int            `json:"num,omitempty" jsonschema:"minimum=0"`
	Types           []string       `json:"types,omitempty" jsonschema:"description=One or two types. Required for base species.,minItems=1,maxItems=2"`
	BaseStats       *StatTable     `json:"baseStats,omitempty" jsonschema:"description=Required for base species."`
	Abilities       *AbilitySlots  `json:"abilities,omitempty" jsonschema:"description=Required for base species."`
	HeightM         float64        `json:"heightm,omitempty" jsonschema:"minimum=0"`
	WeightKg        float64        `json:"weightkg,omitempty" jsonschema:"minimum=0"`
	Color           string         `json:"color,omitempty"`
	Prevo           string         `json:"prevo,omitempty"`
	Evos            []string       `json:"evos,omitempty"`
	BaseSpecies     string         `json:"baseSpecies,omitempty" jsonschema:"description=Base species id when this record is an alternate form."`
	Forme           string         `json:"forme,omitempty"`
	BattleOnly      bool           `json:"battleOnly,omitempty" jsonschema:"description=Form only reachable by an in-battle transformation."`
	RequiredItem    string         `json:"requiredItem,omitempty"`
	RequiredAbility string         `json:"requiredAbility,omitempty"`
	Overrides       *FormOverrides `json:"overrides,omitempty"`
}

// Fraction is a [numerator, denominator] pair.
type Fraction [2]int

// Valid reports whether the fraction has a positive denominator.
func (f Fraction) Valid() bool {
	return f[1] > 0 && f[0] >= 0
}

// MoveFlags are the boolean properties move effects key off.
type MoveFlags struct {
	Contact bool `json:"contact,omitempty"`
	Protect bool `json:"protect,omitempty"`
}

// Secondary is a chance-based follow-up applied after a damaging hit.
type Secondary struct {
	Chance         int            `json:"chance" jsonschema:"minimum=1,maximum=100"`
	Status         string         `json:"status,omitempty"`
	VolatileStatus string         `json:"volatileStatus,omitempty"`
	Boosts         map[string]int `json:"boosts,omitempty"`
	SelfBoosts     map[string]int `json:"selfBoosts,omitempty"`
}

// Move is a move record. The document and runtime shapes coincide.
type Move struct {
	ID             string         `json:"id" jsonschema:"pattern=^[a-z0-9]+$,minLength=1,required"`
	Name           string         `json:"name" jsonschema:"minLength=1,required"`
	Type           Type           `json:"type" jsonschema:"required"`
	Category       Category       `json:"category" jsonschema:"enum=Physical,enum=Special,enum=Status,required"`
	BasePower      int            `json:"basePower,omitempty" jsonschema:"minimum=0"`
	Accuracy       int            `json:"accuracy,omitempty" jsonschema:"description=Hit chance in percent. Zero never misses.,minimum=0,maximum=100"`
	PP             int            `json:"pp" jsonschema:"minimum=1,required"`
	Priority       int            `json:"priority,omitempty" jsonschema:"minimum=-7,maximum=5"`
	Target         Target         `json:"target,omitempty" jsonschema:"enum=normal,enum=self,enum=adjacentFoe,enum=allAdjacentFoes,enum=allAdjacent,enum=allySide,enum=foeSide,enum=all"`
	CritRatio      int            `json:"critRatio,omitempty" jsonschema:"minimum=0,maximum=4"`
	Flags          MoveFlags      `json:"flags,omitempty"`
	FixedDamage    int            `json:"fixedDamage,omitempty" jsonschema:"minimum=0"`
	LevelDamage    bool           `json:"levelDamage,omitempty"`
	Drain          *Fraction      `json:"drain,omitempty"`
	Recoil         *Fraction      `json:"recoil,omitempty"`
	Heal           *Fraction      `json:"heal,omitempty"`
	Boosts         map[string]int `json:"boosts,omitempty"`
	SelfBoosts     map[string]int `json:"selfBoosts,omitempty"`
	Status         string         `json:"status,omitempty"`
	VolatileStatus string         `json:"volatileStatus,omitempty"`
	SideCondition  string         `json:"sideCondition,omitempty"`
	Weather        string         `json:"weather,omitempty"`
	Terrain        string         `json:"terrain,omitempty"`
	ForceSwitch    bool           `json:"forceSwitch,omitempty"`
	Secondary      *Secondary     `json:"secondary,omitempty"`
}

// Ability is an ability record. Behavior lives in the effect registry.
type Ability struct {
	ID   string `json:"id" jsonschema:"pattern=^[a-z0-9]+$,minLength=1,required"`
	Name string `json:"name" jsonschema:"minLength=1,required"`
	Desc string `json:"desc,omitempty"`
}

// ItemUse describes what an item does when used from the bag.
type ItemUse struct {
	Heal       int  `json:"heal,omitempty" jsonschema:"minimum=0"`
	CureStatus bool `json:"cureStatus,omitempty"`
}

// Item is a held or bag item record.
type Item struct {
	ID   string   `json:"id" jsonschema:"pattern=^[a-z0-9]+$,minLength=1,required"`
	Name string   `json:"name" jsonschema:"minLength=1,required"`
	Desc string   `json:"desc,omitempty"`
	Use  *ItemUse `json:"use,omitempty" jsonschema:"description=Present when the item can be used from the bag."`
}

// SpeciesFile is the canonical array layout of species.json.
type SpeciesFile []SpeciesDocument

// MoveFile is the canonical array layout of moves.json.
type MoveFile []Move

// AbilityFile is the canonical array layout of abilities.json.
type AbilityFile []Ability

// ItemFile is the canonical array layout of items.json.
type ItemFile []Item
