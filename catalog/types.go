package catalog

import (
	"fmt"
	"strings"
)

// Type is one of the eighteen elemental types.
type Type string

const (
	TypeNormal   Type = "Normal"
	TypeFire     Type = "Fire"
	TypeWater    Type = "Water"
	TypeElectric Type = "Electric"
	TypeGrass    Type = "Grass"
	TypeIce      Type = "Ice"
	TypeFighting Type = "Fighting"
	TypePoison   Type = "Poison"
	TypeGround   Type = "Ground"
	TypeFlying   Type = "Flying"
	TypePsychic  Type = "Psychic"
	TypeBug      Type = "Bug"
	TypeRock     Type = "Rock"
	TypeGhost    Type = "Ghost"
	TypeDragon   Type = "Dragon"
	TypeDark     Type = "Dark"
	TypeSteel    Type = "Steel"
	TypeFairy    Type = "Fairy"
)

// AllTypes lists the type enumeration in dex order.
var AllTypes = []Type{
	TypeNormal, TypeFire, TypeWater, TypeElectric, TypeGrass, TypeIce,
	TypeFighting, TypePoison, TypeGround, TypeFlying, TypePsychic, TypeBug,
	TypeRock, TypeGhost, TypeDragon, TypeDark, TypeSteel, TypeFairy,
}

// ParseType resolves a type name case-insensitively.
func ParseType(name string) (Type, error) {
	trimmed := strings.TrimSpace(name)
	for _, t := range AllTypes {
		if strings.EqualFold(string(t), trimmed) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Stat indexes the six permanent stats.
type Stat int

const (
	StatHP Stat = iota
	StatAtk
	StatDef
	StatSpA
	StatSpD
	StatSpe
	statCount
)

var statNames = [statCount]string{"hp", "atk", "def", "spa", "spd", "spe"}

func (s Stat) String() string {
	if s < 0 || s >= statCount {
		return fmt.Sprintf("stat(%d)", int(s))
	}
	return statNames[s]
}

// ParseStat resolves a short stat id such as "spa".
func ParseStat(name string) (Stat, bool) {
	id := ToID(name)
	for i, n := range statNames {
		if n == id {
			return Stat(i), true
		}
	}
	return 0, false
}

// StatTable is the six-stat sextuple used for base stats, IVs, EVs and
// computed stats.
type StatTable struct {
	HP  int `json:"hp" jsonschema:"minimum=1,maximum=255"`
	Atk int `json:"atk" jsonschema:"minimum=1,maximum=255"`
	Def int `json:"def" jsonschema:"minimum=1,maximum=255"`
	SpA int `json:"spa" jsonschema:"minimum=1,maximum=255"`
	SpD int `json:"spd" jsonschema:"minimum=1,maximum=255"`
	Spe int `json:"spe" jsonschema:"minimum=1,maximum=255"`
}

// Get returns the value stored for stat.
func (t StatTable) Get(stat Stat) int {
	switch stat {
	case StatHP:
		return t.HP
	case StatAtk:
		return t.Atk
	case StatDef:
		return t.Def
	case StatSpA:
		return t.SpA
	case StatSpD:
		return t.SpD
	case StatSpe:
		return t.Spe
	default:
		return 0
	}
}

// With returns a copy of the table with stat replaced.
func (t StatTable) With(stat Stat, value int) StatTable {
	switch stat {
	case StatHP:
		t.HP = value
	case StatAtk:
		t.Atk = value
	case StatDef:
		t.Def = value
	case StatSpA:
		t.SpA = value
	case StatSpD:
		t.SpD = value
	case StatSpe:
		t.Spe = value
	}
	return t
}

// Category splits moves into physical, special and status moves.
type Category string

const (
	CategoryPhysical Category = "Physical"
	CategorySpecial  Category = "Special"
	CategoryStatus   Category = "Status"
)

// Target describes which positions a move may affect.
type Target string

const (
	TargetNormal          Target = "normal"
	TargetSelf            Target = "self"
	TargetAdjacentFoe     Target = "adjacentFoe"
	TargetAllAdjacentFoes Target = "allAdjacentFoes"
	TargetAllAdjacent     Target = "allAdjacent"
	TargetAllySide        Target = "allySide"
	TargetFoeSide         Target = "foeSide"
	TargetAll             Target = "all"
)

// NeedsChoice reports whether a user must pick a target slot for this kind.
func (t Target) NeedsChoice() bool {
	return t == TargetNormal || t == TargetAdjacentFoe
}

// Spread reports whether the move hits several combatants at once.
func (t Target) Spread() bool {
	return t == TargetAllAdjacentFoes || t == TargetAllAdjacent
}

// Nature boosts one stat by 10% and lowers another by 10%.
type Nature struct {
	Name  string
	Plus  Stat
	Minus Stat
}

// Neutral reports whether the nature changes no stat.
func (n Nature) Neutral() bool {
	return n.Plus == n.Minus
}

var natures = map[string]Nature{
	"hardy":   {Name: "Hardy", Plus: StatAtk, Minus: StatAtk},
	"lonely":  {Name: "Lonely", Plus: StatAtk, Minus: StatDef},
	"brave":   {Name: "Brave", Plus: StatAtk, Minus: StatSpe},
	"adamant": {Name: "Adamant", Plus: StatAtk, Minus: StatSpA},
	"naughty": {Name: "Naughty", Plus: StatAtk, Minus: StatSpD},
	"bold":    {Name: "Bold", Plus: StatDef, Minus: StatAtk},
	"docile":  {Name: "Docile", Plus: StatDef, Minus: StatDef},
	"relaxed": {Name: "Relaxed", Plus: StatDef, Minus: StatSpe},
	"impish":  {Name: "Impish", Plus: StatDef, Minus: StatSpA},
	"lax":     {Name: "Lax", Plus: StatDef, Minus: StatSpD},
	"timid":   {Name: "Timid", Plus: StatSpe, Minus: StatAtk},
	"hasty":   {Name: "Hasty", Plus: StatSpe, Minus: StatDef},
	"serious": {Name: "Serious", Plus: StatSpe, Minus: StatSpe},
	"jolly":   {Name: "Jolly", Plus: StatSpe, Minus: StatSpA},
	"naive":   {Name: "Naive", Plus: StatSpe, Minus: StatSpD},
	"modest":  {Name: "Modest", Plus: StatSpA, Minus: StatAtk},
	"mild":    {Name: "Mild", Plus: StatSpA, Minus: StatDef},
	"quiet":   {Name: "Quiet", Plus: StatSpA, Minus: StatSpe},
	"bashful": {Name: "Bashful", Plus: StatSpA, Minus: StatSpA},
	"rash":    {Name: "Rash", Plus: StatSpA, Minus: StatSpD},
	"calm":    {Name: "Calm", Plus: StatSpD, Minus: StatAtk},
	"gentle":  {Name: "Gentle", Plus: StatSpD, Minus: StatDef},
	"sassy":   {Name: "Sassy", Plus: StatSpD, Minus: StatSpe},
	"careful": {Name: "Careful", Plus: StatSpD, Minus: StatSpA},
	"quirky":  {Name: "Quirky", Plus: StatSpD, Minus: StatSpD},
}

// LookupNature resolves a nature by name. The empty name is Serious.
func LookupNature(name string) (Nature, error) {
	id := ToID(name)
	if id == "" {
		return natures["serious"], nil
	}
	n, ok := natures[id]
	if !ok {
		return Nature{}, fmt.Errorf("%w: %q", ErrUnknownNature, name)
	}
	return n, nil
}
