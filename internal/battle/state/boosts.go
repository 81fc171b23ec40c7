package state

import (
	"fmt"

	"skirmish/catalog"
)

// Boost indexes the five stat stages a combatant carries in battle.
type Boost int

const (
	BoostAtk Boost = iota
	BoostDef
	BoostSpA
	BoostSpD
	BoostSpe
	BoostCount
)

const (
	MinBoost = -6
	MaxBoost = 6
)

var boostNames = [BoostCount]string{"atk", "def", "spa", "spd", "spe"}

func (b Boost) String() string {
	if b < 0 || b >= BoostCount {
		return fmt.Sprintf("boost(%d)", int(b))
	}
	return boostNames[b]
}

// Stat maps the stage to the permanent stat it scales.
func (b Boost) Stat() catalog.Stat {
	return catalog.Stat(int(b) + 1)
}

// BoostFor maps a permanent stat to its stage. HP has no stage.
func BoostFor(stat catalog.Stat) (Boost, bool) {
	if stat <= catalog.StatHP || stat > catalog.StatSpe {
		return 0, false
	}
	return Boost(int(stat) - 1), true
}

// ParseBoost resolves "atk", "spd" and so on.
func ParseBoost(name string) (Boost, bool) {
	stat, ok := catalog.ParseStat(name)
	if !ok {
		return 0, false
	}
	return BoostFor(stat)
}

// Boosts holds the five stages, each kept within [MinBoost, MaxBoost].
type Boosts [BoostCount]int

// Get returns the stage for b.
func (s Boosts) Get(b Boost) int {
	if b < 0 || b >= BoostCount {
		return 0
	}
	return s[b]
}

// Apply shifts a stage by delta, clamping to the legal range, and returns the
// change that actually took place.
func (s *Boosts) Apply(b Boost, delta int) int {
	if s == nil || b < 0 || b >= BoostCount {
		return 0
	}
	before := s[b]
	after := before + delta
	if after > MaxBoost {
		after = MaxBoost
	}
	if after < MinBoost {
		after = MinBoost
	}
	s[b] = after
	return after - before
}

// Clear resets every stage to zero.
func (s *Boosts) Clear() {
	if s == nil {
		return
	}
	*s = Boosts{}
}

// Ordered converts a stat-keyed boost map into a stage list in stage order,
// dropping unknown keys. Map iteration order never leaks into battle output.
func Ordered(boosts map[string]int) []BoostChange {
	if len(boosts) == 0 {
		return nil
	}
	out := make([]BoostChange, 0, len(boosts))
	for b := Boost(0); b < BoostCount; b++ {
		if delta, ok := boosts[boostNames[b]]; ok && delta != 0 {
			out = append(out, BoostChange{Boost: b, Delta: delta})
		}
	}
	return out
}

// BoostChange is one requested stage change.
type BoostChange struct {
	Boost Boost
	Delta int
}

// BoostedStat applies a stage to a raw stat value using the
// 2/2, 3/2 ... 8/2 multiplier ladder.
func BoostedStat(value, stage int) int {
	if stage > MaxBoost {
		stage = MaxBoost
	}
	if stage < MinBoost {
		stage = MinBoost
	}
	if stage >= 0 {
		return value * (2 + stage) / 2
	}
	return value * 2 / (2 - stage)
}
