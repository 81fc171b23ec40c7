// Package ai provides computer-controlled decision sources for battles.
package ai

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"skirmish/catalog"
	"skirmish/internal/battle"
	"skirmish/internal/rng"
)

// ErrUnknownPolicy reports a policy name missing from the library.
var ErrUnknownPolicy = errors.New("ai: unknown policy")

// Policy names a decision strategy.
type Policy string

const (
	// PolicyFirstLegal always takes the first usable option.
	PolicyFirstLegal Policy = "first-legal"
	// PolicyRandom picks uniformly among legal options.
	PolicyRandom Policy = "random"
	// PolicyGreedy picks the move with the highest expected base damage.
	PolicyGreedy Policy = "greedy"
)

// Config selects and seeds an agent.
type Config struct {
	Policy Policy
	// Seed feeds the agent's own generator; it never shares the battle's.
	Seed string
	// Dex is required by the greedy policy.
	Dex catalog.Dex
}

type builder func(cfg Config) (chooser, error)

var library = map[Policy]builder{
	PolicyFirstLegal: func(Config) (chooser, error) { return firstLegal{}, nil },
	PolicyRandom: func(cfg Config) (chooser, error) {
		return &random{rng: rng.New(cfg.Seed, "ai.random")}, nil
	},
	PolicyGreedy: func(cfg Config) (chooser, error) {
		if cfg.Dex == nil {
			return nil, fmt.Errorf("ai: greedy policy needs a dex")
		}
		return &greedy{dex: cfg.Dex, fallback: firstLegal{}}, nil
	},
}

// Policies lists the registered policy names in sorted order.
func Policies() []string {
	names := make([]string, 0, len(library))
	for name := range library {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

// New builds an agent for cfg.Policy. The empty policy is first-legal.
func New(cfg Config) (*Agent, error) {
	name := Policy(strings.ToLower(strings.TrimSpace(string(cfg.Policy))))
	if name == "" {
		name = PolicyFirstLegal
	}
	build, ok := library[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, cfg.Policy)
	}
	c, err := build(cfg)
	if err != nil {
		return nil, err
	}
	return &Agent{policy: name, chooser: c}, nil
}

// MustNew is New for fixed configurations in tests and tools.
func MustNew(cfg Config) *Agent {
	a, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return a
}

var _ battle.DecisionSource = (*Agent)(nil)
