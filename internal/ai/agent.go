package ai

import (
	"context"
	"sync"

	"skirmish/catalog"
	"skirmish/internal/battle"
	"skirmish/internal/rng"
)

// chooser decides one active slot. taken holds the roster indices already
// claimed by switches earlier in the same request.
type chooser interface {
	order(req battle.Request) []int
	slot(req battle.Request, sr battle.SlotRequest, taken map[int]bool) battle.Choice
}

// Agent answers decision requests with a fixed policy. It keeps no battle
// state between requests beyond its own random generator.
type Agent struct {
	mu      sync.Mutex
	policy  Policy
	chooser chooser
}

// Policy reports the strategy the agent was built with.
func (a *Agent) Policy() Policy {
	if a == nil {
		return ""
	}
	return a.policy
}

// Decide returns a choice for every slot the request lists. A request that
// carries rejections is answered with first-legal choices so the agent
// cannot loop on the same illegal option.
func (a *Agent) Decide(ctx context.Context, req battle.Request) ([]battle.Choice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Wait {
		return nil, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.chooser
	if len(req.Rejections) > 0 {
		c = firstLegal{}
	}
	if req.TeamPreview {
		return []battle.Choice{{Kind: battle.ChoiceTeam, Order: c.order(req)}}, nil
	}
	taken := make(map[int]bool)
	choices := make([]battle.Choice, 0, len(req.Slots))
	for _, sr := range req.Slots {
		choice := c.slot(req, sr, taken)
		if choice.Kind == battle.ChoiceSwitch {
			taken[choice.Switch] = true
		}
		choices = append(choices, choice)
	}
	return choices, nil
}

func identityOrder(req battle.Request) []int {
	order := make([]int, len(req.Roster))
	for i := range order {
		order[i] = i
	}
	return order
}

func freeSwitches(req battle.Request, taken map[int]bool) []battle.Reserve {
	var out []battle.Reserve
	for _, r := range req.Switches {
		if !taken[r.Index] {
			out = append(out, r)
		}
	}
	return out
}

func firstTarget(opt battle.MoveOption) int {
	for _, t := range opt.Targets {
		if t > 0 {
			return t
		}
	}
	return 0
}

type firstLegal struct{}

func (firstLegal) order(req battle.Request) []int { return identityOrder(req) }

func (firstLegal) slot(req battle.Request, sr battle.SlotRequest, taken map[int]bool) battle.Choice {
	if sr.ForceSwitch {
		if free := freeSwitches(req, taken); len(free) > 0 {
			return battle.Choice{Kind: battle.ChoiceSwitch, Slot: sr.Slot, Switch: free[0].Index}
		}
		return battle.Choice{Kind: battle.ChoicePass, Slot: sr.Slot}
	}
	if sr.Struggle || len(sr.Moves) == 0 {
		return battle.Choice{Kind: battle.ChoiceMove, Slot: sr.Slot, Move: battle.StruggleID}
	}
	opt := sr.Moves[0]
	return battle.Choice{Kind: battle.ChoiceMove, Slot: sr.Slot, Move: opt.ID, Target: firstTarget(opt)}
}

type random struct {
	rng *rng.PRNG
}

func (r *random) order(req battle.Request) []int {
	order := identityOrder(req)
	rng.Shuffle(r.rng, order, 0, len(order))
	return order
}

func (r *random) slot(req battle.Request, sr battle.SlotRequest, taken map[int]bool) battle.Choice {
	if sr.ForceSwitch {
		if pick, ok := rng.Sample(r.rng, freeSwitches(req, taken)); ok {
			return battle.Choice{Kind: battle.ChoiceSwitch, Slot: sr.Slot, Switch: pick.Index}
		}
		return battle.Choice{Kind: battle.ChoicePass, Slot: sr.Slot}
	}
	opt, ok := rng.Sample(r.rng, sr.Moves)
	if sr.Struggle || !ok {
		return battle.Choice{Kind: battle.ChoiceMove, Slot: sr.Slot, Move: battle.StruggleID}
	}
	var foes []int
	for _, t := range opt.Targets {
		if t > 0 {
			foes = append(foes, t)
		}
	}
	target, _ := rng.Sample(r.rng, foes)
	return battle.Choice{Kind: battle.ChoiceMove, Slot: sr.Slot, Move: opt.ID, Target: target}
}

type greedy struct {
	dex      catalog.Dex
	fallback firstLegal
}

func (g *greedy) order(req battle.Request) []int { return identityOrder(req) }

func (g *greedy) slot(req battle.Request, sr battle.SlotRequest, taken map[int]bool) battle.Choice {
	if sr.ForceSwitch || sr.Struggle || len(sr.Moves) == 0 {
		return g.fallback.slot(req, sr, taken)
	}
	best := battle.Choice{Kind: battle.ChoiceMove, Slot: sr.Slot, Move: sr.Moves[0].ID, Target: firstTarget(sr.Moves[0])}
	bestScore := -1.0
	for _, opt := range sr.Moves {
		move, err := g.dex.Move(opt.ID)
		if err != nil || move.Category == catalog.CategoryStatus {
			continue
		}
		targets := opt.Targets
		if len(targets) == 0 {
			targets = []int{0}
		}
		for _, t := range targets {
			if t < 0 {
				continue
			}
			score := g.score(req, move, t)
			if score > bestScore {
				bestScore = score
				best = battle.Choice{Kind: battle.ChoiceMove, Slot: sr.Slot, Move: opt.ID, Target: t}
			}
		}
	}
	return best
}

// score is base power scaled by type effectiveness against the foe at the
// target location, or against every foe for untargeted moves.
func (g *greedy) score(req battle.Request, move catalog.Move, target int) float64 {
	power := float64(move.BasePower)
	if move.FixedDamage > 0 || move.LevelDamage {
		power = 60
	}
	eff := 1.0
	for _, foe := range req.Foes {
		if target > 0 && foe.Slot != target-1 {
			continue
		}
		species, err := g.dex.Species(foe.Species)
		if err != nil {
			continue
		}
		eff = catalog.Effectiveness(move.Type, species.Types...)
		break
	}
	return power * eff
}
