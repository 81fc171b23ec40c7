package catalog

// matchup is the attacking type's relation to one defending type.
type matchup int8

const (
	neutral matchup = iota
	superEffective
	resisted
	immune
)

// typeChart lists every non-neutral attacking matchup.
var typeChart = map[Type]map[Type]matchup{
	TypeNormal: {TypeRock: resisted, TypeGhost: immune, TypeSteel: resisted},
	TypeFire: {
		TypeFire: resisted, TypeWater: resisted, TypeGrass: superEffective, TypeIce: superEffective,
		TypeBug: superEffective, TypeRock: resisted, TypeDragon: resisted, TypeSteel: superEffective,
	},
	TypeWater: {
		TypeFire: superEffective, TypeWater: resisted, TypeGrass: resisted, TypeGround: superEffective,
		TypeRock: superEffective, TypeDragon: resisted,
	},
	TypeElectric: {
		TypeWater: superEffective, TypeElectric: resisted, TypeGrass: resisted, TypeGround: immune,
		TypeFlying: superEffective, TypeDragon: resisted,
	},
	TypeGrass: {
		TypeFire: resisted, TypeWater: superEffective, TypeGrass: resisted, TypePoison: resisted,
		TypeGround: superEffective, TypeFlying: resisted, TypeBug: resisted, TypeRock: superEffective,
		TypeDragon: resisted, TypeSteel: resisted,
	},
	TypeIce: {
		TypeFire: resisted, TypeWater: resisted, TypeGrass: superEffective, TypeIce: resisted,
		TypeGround: superEffective, TypeFlying: superEffective, TypeDragon: superEffective, TypeSteel: resisted,
	},
	TypeFighting: {
		TypeNormal: superEffective, TypeIce: superEffective, TypePoison: resisted, TypeFlying: resisted,
		TypePsychic: resisted, TypeBug: resisted, TypeRock: superEffective, TypeGhost: immune,
		TypeDark: superEffective, TypeSteel: superEffective, TypeFairy: resisted,
	},
	TypePoison: {
		TypeGrass: superEffective, TypePoison: resisted, TypeGround: resisted, TypeRock: resisted,
		TypeGhost: resisted, TypeSteel: immune, TypeFairy: superEffective,
	},
	TypeGround: {
		TypeFire: superEffective, TypeElectric: superEffective, TypeGrass: resisted, TypePoison: superEffective,
		TypeFlying: immune, TypeBug: resisted, TypeRock: superEffective, TypeSteel: superEffective,
	},
	TypeFlying: {
		TypeElectric: resisted, TypeGrass: superEffective, TypeFighting: superEffective, TypeBug: superEffective,
		TypeRock: resisted, TypeSteel: resisted,
	},
	TypePsychic: {
		TypeFighting: superEffective, TypePoison: superEffective, TypePsychic: resisted, TypeDark: immune,
		TypeSteel: resisted,
	},
	TypeBug: {
		TypeFire: resisted, TypeGrass: superEffective, TypeFighting: resisted, TypePoison: resisted,
		TypeFlying: resisted, TypePsychic: superEffective, TypeGhost: resisted, TypeDark: superEffective,
		TypeSteel: resisted, TypeFairy: resisted,
	},
	TypeRock: {
		TypeFire: superEffective, TypeIce: superEffective, TypeFighting: resisted, TypeGround: resisted,
		TypeFlying: superEffective, TypeBug: superEffective, TypeSteel: resisted,
	},
	TypeGhost:  {TypeNormal: immune, TypePsychic: superEffective, TypeGhost: superEffective, TypeDark: resisted},
	TypeDragon: {TypeDragon: superEffective, TypeSteel: resisted, TypeFairy: immune},
	TypeDark: {
		TypeFighting: resisted, TypePsychic: superEffective, TypeGhost: superEffective, TypeDark: resisted,
		TypeFairy: resisted,
	},
	TypeSteel: {
		TypeFire: resisted, TypeWater: resisted, TypeElectric: resisted, TypeIce: superEffective,
		TypeRock: superEffective, TypeSteel: resisted, TypeFairy: superEffective,
	},
	TypeFairy: {
		TypeFire: resisted, TypeFighting: superEffective, TypePoison: resisted, TypeDragon: superEffective,
		TypeDark: superEffective, TypeSteel: resisted,
	},
}

func lookup(attack, defend Type) matchup {
	row, ok := typeChart[attack]
	if !ok {
		return neutral
	}
	return row[defend]
}

// Immune reports whether any defending type nullifies the attacking type.
func Immune(attack Type, defenders ...Type) bool {
	for _, d := range defenders {
		if lookup(attack, d) == immune {
			return true
		}
	}
	return false
}

// TypeMod returns the effectiveness exponent: each super-effective defending
// type adds one, each resisting type subtracts one. Immunity is reported
// separately by Immune.
func TypeMod(attack Type, defenders ...Type) int {
	mod := 0
	for _, d := range defenders {
		switch lookup(attack, d) {
		case superEffective:
			mod++
		case resisted:
			mod--
		}
	}
	return mod
}

// Effectiveness is the damage multiplier of attack against the defending
// types: the product of each single-type multiplier.
func Effectiveness(attack Type, defenders ...Type) float64 {
	if Immune(attack, defenders...) {
		return 0
	}
	mod := TypeMod(attack, defenders...)
	out := 1.0
	for ; mod > 0; mod-- {
		out *= 2
	}
	for ; mod < 0; mod++ {
		out /= 2
	}
	return out
}
