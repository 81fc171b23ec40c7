package dispatch

import (
	"fmt"
	"strings"
)

// EventID names a hook point.
type EventID string

const (
	SwitchIn            EventID = "SwitchIn"
	SwitchOut           EventID = "SwitchOut"
	Start               EventID = "Start"
	End                 EventID = "End"
	BeforeMove          EventID = "BeforeMove"
	ModifyPriority      EventID = "ModifyPriority"
	ModifySpeed         EventID = "ModifySpeed"
	ModifyAtk           EventID = "ModifyAtk"
	ModifyDef           EventID = "ModifyDef"
	ModifySpA           EventID = "ModifySpA"
	ModifySpD           EventID = "ModifySpD"
	BasePower           EventID = "BasePower"
	ModifyCritRatio     EventID = "ModifyCritRatio"
	ModifyAccuracy      EventID = "ModifyAccuracy"
	Immunity            EventID = "Immunity"
	TryHit              EventID = "TryHit"
	WeatherModifyDamage EventID = "WeatherModifyDamage"
	ModifySTAB          EventID = "ModifySTAB"
	ModifyDamage        EventID = "ModifyDamage"
	DamagingHit         EventID = "DamagingHit"
	Hit                 EventID = "Hit"
	AfterMoveSecondary  EventID = "AfterMoveSecondary"
	AfterMove           EventID = "AfterMove"
	TryBoost            EventID = "TryBoost"
	SetStatus           EventID = "SetStatus"
	TryAddVolatile      EventID = "TryAddVolatile"
	Damage              EventID = "Damage"
	Faint               EventID = "Faint"
	Residual            EventID = "Residual"
	WeatherResidual     EventID = "WeatherResidual"
	SideResidual        EventID = "SideResidual"
	TerrainResidual     EventID = "TerrainResidual"
)

// Kind classifies where an effect comes from. Kinds order dispatch before
// per-hook priority.
type Kind int

const (
	KindField Kind = iota
	KindAbility
	KindItem
	KindStatus
	KindMove
	kindCount
)

var kindNames = [kindCount]string{"field", "ability", "item", "status", "move"}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a kind name.
func ParseKind(name string) (Kind, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == trimmed {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidPrecedence, name)
}

// DefaultPrecedence is field, ability, item, status, move.
func DefaultPrecedence() []Kind {
	return []Kind{KindField, KindAbility, KindItem, KindStatus, KindMove}
}

// ParsePrecedence resolves a full kind ordering from names.
func ParsePrecedence(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return DefaultPrecedence(), nil
	}
	out := make([]Kind, 0, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	if err := validatePrecedence(out); err != nil {
		return nil, err
	}
	return out, nil
}

func validatePrecedence(order []Kind) error {
	if len(order) != int(kindCount) {
		return fmt.Errorf("%w: want %d kinds, got %d", ErrInvalidPrecedence, kindCount, len(order))
	}
	var seen [kindCount]bool
	for _, k := range order {
		if k < 0 || k >= kindCount {
			return fmt.Errorf("%w: %s", ErrInvalidPrecedence, k)
		}
		if seen[k] {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidPrecedence, k)
		}
		seen[k] = true
	}
	return nil
}

// Scope selects which handles a hook fires for, relative to the event.
type Scope int

const (
	// ScopeSelf fires when the handle belongs to the event subject.
	ScopeSelf Scope = iota
	// ScopeSource fires when the handle belongs to the event source.
	ScopeSource
	// ScopeFoe fires when the handle belongs to a foe of the subject.
	ScopeFoe
	// ScopeAny fires for every active handle.
	ScopeAny
)

func (s Scope) String() string {
	switch s {
	case ScopeSelf:
		return "self"
	case ScopeSource:
		return "source"
	case ScopeFoe:
		return "foe"
	case ScopeAny:
		return "any"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}
