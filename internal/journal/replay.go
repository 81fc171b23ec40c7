package journal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrOutOfOrder reports a log whose sequence numbers are not strictly
// increasing.
var ErrOutOfOrder = errors.New("journal: events out of order")

// CombatantView is what a spectator knows about one combatant.
type CombatantView struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Species   string         `json:"species"`
	Side      string         `json:"side"`
	Slot      int            `json:"slot"`
	Active    bool           `json:"active"`
	HP        int            `json:"hp"`
	MaxHP     int            `json:"maxHp"`
	Status    string         `json:"status,omitempty"`
	Fainted   bool           `json:"fainted"`
	Boosts    map[string]int `json:"boosts,omitempty"`
	Volatiles []string       `json:"volatiles,omitempty"`
}

// Viewer rebuilds a battle from its log.
type Viewer struct {
	Turn           int                       `json:"turn"`
	Weather        string                    `json:"weather,omitempty"`
	Terrain        string                    `json:"terrain,omitempty"`
	SideConditions map[string][]string       `json:"sideConditions,omitempty"`
	Combatants     map[string]*CombatantView `json:"combatants"`
	Winner         string                    `json:"winner,omitempty"`
	Ended          bool                      `json:"ended"`
	lastSeq        uint64
}

// NewViewer returns an empty viewer.
func NewViewer() *Viewer {
	return &Viewer{
		SideConditions: make(map[string][]string),
		Combatants:     make(map[string]*CombatantView),
	}
}

// Replay folds every event into a new viewer.
func Replay(events []Event) (*Viewer, error) {
	v := NewViewer()
	for _, e := range events {
		if err := v.Apply(e); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *Viewer) combatant(id string) *CombatantView {
	if id == "" {
		return nil
	}
	c, ok := v.Combatants[id]
	if !ok {
		c = &CombatantView{ID: id, Slot: -1}
		if side, _, found := strings.Cut(id, ":"); found {
			c.Side = side
		}
		v.Combatants[id] = c
	}
	return c
}

// Apply folds one event into the view.
func (v *Viewer) Apply(e Event) error {
	if e.Seq <= v.lastSeq {
		return fmt.Errorf("%w: seq %d after %d", ErrOutOfOrder, e.Seq, v.lastSeq)
	}
	v.lastSeq = e.Seq
	if e.Turn > v.Turn {
		v.Turn = e.Turn
	}
	switch e.Kind {
	case KindSwitch, KindDrag:
		c := v.combatant(e.Actor)
		for _, other := range v.Combatants {
			if other != c && other.Side == c.Side && other.Active && other.Slot == e.Slot {
				other.Active = false
				other.Boosts = nil
				other.Volatiles = nil
			}
		}
		c.Name = e.Name
		c.Species = e.Species
		c.Slot = e.Slot
		c.Active = true
		c.setHP(e.HP)
	case KindDamage, KindHeal:
		v.combatant(e.Target).setHP(e.HP)
	case KindStatus:
		v.combatant(e.Target).Status = e.Effect
	case KindCureStatus:
		v.combatant(e.Target).Status = ""
	case KindBoost:
		c := v.combatant(e.Target)
		if c.Boosts == nil {
			c.Boosts = make(map[string]int)
		}
		c.Boosts[e.Value] += e.Amount
	case KindFaint:
		c := v.combatant(e.Target)
		c.Fainted = true
		c.Active = false
		c.HP = 0
	case KindFormeChange:
		c := v.combatant(e.Target)
		c.Species = e.Species
		c.setHP(e.HP)
	case KindVolatileStart:
		c := v.combatant(e.Target)
		c.Volatiles = append(c.Volatiles, e.Effect)
	case KindVolatileEnd:
		c := v.combatant(e.Target)
		c.Volatiles = removeString(c.Volatiles, e.Effect)
	case KindWeather:
		if e.Value == "end" {
			v.Weather = ""
		} else {
			v.Weather = e.Effect
		}
	case KindFieldStart:
		v.Terrain = e.Effect
	case KindFieldEnd:
		v.Terrain = ""
	case KindSideStart:
		v.SideConditions[e.Side] = append(v.SideConditions[e.Side], e.Effect)
		sort.Strings(v.SideConditions[e.Side])
	case KindSideEnd:
		v.SideConditions[e.Side] = removeString(v.SideConditions[e.Side], e.Effect)
	case KindWin:
		v.Winner = e.Side
		v.Ended = true
	case KindTie, KindInternalError:
		v.Ended = true
	}
	return nil
}

func (c *CombatantView) setHP(hp string) {
	if c == nil || hp == "" {
		return
	}
	cur, max, ok := strings.Cut(hp, "/")
	if !ok {
		return
	}
	if n, err := strconv.Atoi(cur); err == nil {
		c.HP = n
	}
	if n, err := strconv.Atoi(max); err == nil {
		c.MaxHP = n
	}
}

func removeString(list []string, value string) []string {
	out := list[:0]
	for _, item := range list {
		if item != value {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
