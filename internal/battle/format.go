package battle

import (
	"fmt"
	"time"

	"skirmish/internal/battle/dispatch"
	"skirmish/internal/battle/queue"
)

// DefaultPolicy picks what a slot does when its player never answered.
type DefaultPolicy string

const (
	PolicyFirstLegal DefaultPolicy = "first-legal"
	PolicyPass       DefaultPolicy = "pass"
)

// Residual stages, run in the order a format lists them.
const (
	StageWeather    = "weather"
	StageSides      = "sides"
	StageCombatants = "combatants"
	StageTerrain    = "terrain"
	StageDurations  = "durations"
)

// Format is the rule set a battle runs under.
type Format struct {
	Name string `yaml:"name" json:"name"`
	// ActivePerSide is 1 for singles and 2 for doubles.
	ActivePerSide int `yaml:"activePerSide" json:"activePerSide"`
	// Level overrides every roster level when positive.
	Level    int `yaml:"level" json:"level,omitempty"`
	TeamSize int `yaml:"teamSize" json:"teamSize"`
	// TurnLimit ends the battle in a draw once reached. Zero disables it.
	TurnLimit       int           `yaml:"turnLimit" json:"turnLimit,omitempty"`
	DecisionTimeout time.Duration `yaml:"decisionTimeout" json:"decisionTimeout"`
	// MaxResubmits bounds how often a rejected player may try again within
	// one decision window.
	MaxResubmits     int            `yaml:"maxResubmits" json:"maxResubmits"`
	DefaultPolicy    DefaultPolicy  `yaml:"defaultPolicy" json:"defaultPolicy"`
	ActionOrder      map[string]int `yaml:"actionOrder" json:"actionOrder,omitempty"`
	EffectPrecedence []string       `yaml:"effectPrecedence" json:"effectPrecedence,omitempty"`
	ResidualOrder    []string       `yaml:"residualOrder" json:"residualOrder,omitempty"`
}

// DefaultFormat is a six-a-side singles format.
func DefaultFormat() Format {
	return Format{
		Name:            "singles",
		ActivePerSide:   1,
		TeamSize:        6,
		TurnLimit:       1000,
		DecisionTimeout: 30 * time.Second,
		MaxResubmits:    3,
		DefaultPolicy:   PolicyFirstLegal,
	}
}

// DoublesFormat is DefaultFormat with two active positions per side.
func DoublesFormat() Format {
	f := DefaultFormat()
	f.Name = "doubles"
	f.ActivePerSide = 2
	return f
}

func defaultResidualOrder() []string {
	return []string{StageWeather, StageSides, StageCombatants, StageTerrain, StageDurations}
}

// rules is a format with every table resolved.
type rules struct {
	Format
	order      queue.OrderTable
	precedence []dispatch.Kind
	residual   []string
}

func (f Format) resolve() (rules, error) {
	if f.ActivePerSide == 0 {
		f.ActivePerSide = 1
	}
	if f.ActivePerSide < 1 || f.ActivePerSide > 2 {
		return rules{}, fmt.Errorf("%w: activePerSide %d", ErrInvalidFormat, f.ActivePerSide)
	}
	if f.TeamSize <= 0 {
		f.TeamSize = 6
	}
	if f.TurnLimit < 0 || f.MaxResubmits < 0 || f.Level < 0 {
		return rules{}, fmt.Errorf("%w: negative limit", ErrInvalidFormat)
	}
	switch f.DefaultPolicy {
	case "":
		f.DefaultPolicy = PolicyFirstLegal
	case PolicyFirstLegal, PolicyPass:
	default:
		return rules{}, fmt.Errorf("%w: default policy %q", ErrInvalidFormat, f.DefaultPolicy)
	}

	order := queue.DefaultOrder()
	for name, class := range f.ActionOrder {
		kind := queue.Kind(name)
		if _, known := order[kind]; !known {
			return rules{}, fmt.Errorf("%w: action order names %q", ErrInvalidFormat, name)
		}
		order[kind] = class
	}
	if err := order.Validate(); err != nil {
		return rules{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	precedence, err := dispatch.ParsePrecedence(f.EffectPrecedence)
	if err != nil {
		return rules{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	residual := f.ResidualOrder
	if len(residual) == 0 {
		residual = defaultResidualOrder()
	}
	seen := make(map[string]bool, len(residual))
	for _, stage := range residual {
		switch stage {
		case StageWeather, StageSides, StageCombatants, StageTerrain, StageDurations:
		default:
			return rules{}, fmt.Errorf("%w: residual stage %q", ErrInvalidFormat, stage)
		}
		if seen[stage] {
			return rules{}, fmt.Errorf("%w: residual stage %q listed twice", ErrInvalidFormat, stage)
		}
		seen[stage] = true
	}
	if !seen[StageDurations] {
		return rules{}, fmt.Errorf("%w: residual order must include %q", ErrInvalidFormat, StageDurations)
	}

	return rules{Format: f, order: order, precedence: precedence, residual: append([]string(nil), residual...)}, nil
}

// Validate reports whether f can run.
func (f Format) Validate() error {
	_, err := f.resolve()
	return err
}
