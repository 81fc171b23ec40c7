package state

import "skirmish/catalog"

// DefaultIV is the individual value used when a roster entry leaves it unset.
const DefaultIV = 31

// CalcStats computes the level-scaled stat table.
func CalcStats(base, ivs, evs catalog.StatTable, level int, nature catalog.Nature) catalog.StatTable {
	var out catalog.StatTable
	for stat := catalog.StatHP; stat <= catalog.StatSpe; stat++ {
		b := base.Get(stat)
		core := (2*b + ivs.Get(stat) + evs.Get(stat)/4) * level / 100
		if stat == catalog.StatHP {
			out = out.With(stat, core+level+10)
			continue
		}
		value := core + 5
		if !nature.Neutral() {
			switch stat {
			case nature.Plus:
				value = value * 110 / 100
			case nature.Minus:
				value = value * 90 / 100
			}
		}
		out = out.With(stat, value)
	}
	return out
}

// FullIVs is the stat table with every IV at DefaultIV.
func FullIVs() catalog.StatTable {
	return catalog.StatTable{HP: DefaultIV, Atk: DefaultIV, Def: DefaultIV, SpA: DefaultIV, SpD: DefaultIV, Spe: DefaultIV}
}
