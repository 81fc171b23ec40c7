package battle

import (
	"sort"

	"skirmish/catalog"
	"skirmish/internal/battle/state"
)

// MoveOption is one move a slot may choose.
type MoveOption struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	PP     int            `json:"pp"`
	MaxPP  int            `json:"maxPp"`
	Target catalog.Target `json:"target"`
	// Targets lists the legal target locations when the move needs one.
	Targets []int `json:"targets,omitempty"`
}

// SlotRequest is what one active position may do.
type SlotRequest struct {
	Slot        int          `json:"slot"`
	Combatant   *state.View  `json:"combatant,omitempty"`
	Moves       []MoveOption `json:"moves,omitempty"`
	Struggle    bool         `json:"struggle,omitempty"`
	ForceSwitch bool         `json:"forceSwitch,omitempty"`
}

// Reserve is a benched combatant that can switch in.
type Reserve struct {
	Index int        `json:"index"`
	View  state.View `json:"view"`
}

// BagItem is a usable item and how many are left.
type BagItem struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Request is everything a player needs to decide.
type Request struct {
	BattleID string `json:"battleId"`
	Side     string `json:"side"`
	Phase    Phase  `json:"phase"`
	Turn     int    `json:"turn"`
	// Wait is set when the side owes nothing right now.
	Wait        bool               `json:"wait,omitempty"`
	TeamPreview bool               `json:"teamPreview,omitempty"`
	Slots       []SlotRequest      `json:"slots,omitempty"`
	Switches    []Reserve          `json:"switches,omitempty"`
	Items       []BagItem          `json:"items,omitempty"`
	Roster      []state.View       `json:"roster"`
	Foes        []state.View       `json:"foes,omitempty"`
	Rejections  []*ValidationError `json:"rejections,omitempty"`
}

// Request builds the decision request for side. Slots that already have a
// choice are left out.
func (b *Battle) Request(side state.SideID) Request {
	req := Request{BattleID: b.id, Side: side.String(), Phase: b.Phase(), Turn: b.Turn()}
	if !side.Valid() {
		req.Wait = true
		return req
	}
	s := b.sides[side]
	for _, c := range s.Roster {
		req.Roster = append(req.Roster, c.View())
	}
	for _, c := range b.sides[side.Foe()].ActiveCombatants() {
		req.Foes = append(req.Foes, c.View())
	}
	missing := b.missing(side)
	if len(missing) == 0 {
		req.Wait = true
		return req
	}
	for _, c := range s.Reserves() {
		req.Switches = append(req.Switches, Reserve{Index: c.RosterIndex, View: c.View()})
	}
	if b.phase == PhaseTeamPreview {
		req.TeamPreview = true
		return req
	}
	for _, slot := range missing {
		sr := SlotRequest{Slot: slot}
		c := s.At(slot)
		if b.phase == PhaseFaintReplacement || c == nil {
			sr.ForceSwitch = true
			req.Slots = append(req.Slots, sr)
			continue
		}
		view := c.View()
		sr.Combatant = &view
		usable := usableMoves(c)
		sr.Struggle = len(usable) == 0
		for _, m := range usable {
			opt := MoveOption{ID: m.ID, Name: m.Name, PP: m.PP, MaxPP: m.MaxPP}
			if rec, err := b.dex.Move(m.ID); err == nil {
				opt.Target = rec.Target
				if rec.Target.NeedsChoice() {
					opt.Targets = b.legalTargets(c, rec)
				}
			}
			sr.Moves = append(sr.Moves, opt)
		}
		req.Slots = append(req.Slots, sr)
	}
	for id, count := range s.Bag {
		if count > 0 {
			req.Items = append(req.Items, BagItem{ID: id, Count: count})
		}
	}
	sort.Slice(req.Items, func(i, j int) bool { return req.Items[i].ID < req.Items[j].ID })
	return req
}

func (b *Battle) legalTargets(user *state.Combatant, move catalog.Move) []int {
	var out []int
	for slot, foe := range b.sides[user.Side.Foe()].Active {
		if foe.Active() {
			out = append(out, slot+1)
		}
	}
	if move.Target == catalog.TargetNormal {
		for slot, ally := range b.sides[user.Side].Active {
			if ally.Active() && ally != user {
				out = append(out, -(slot + 1))
			}
		}
	}
	return out
}
