package journal

import (
	"strconv"
	"strings"
)

// Line renders the event as a pipe-delimited protocol line in the style
// battle viewers consume, e.g. "|move|p1:0|thunderbolt|p2:0".
func (e Event) Line() string {
	parts := []string{"", string(e.Kind)}
	add := func(values ...string) {
		for _, v := range values {
			if v != "" {
				parts = append(parts, v)
			}
		}
	}
	switch e.Kind {
	case KindSwitch, KindDrag:
		add(e.Actor, e.Name, e.Species, "slot "+strconv.Itoa(e.Slot), e.HP)
	case KindMove:
		add(e.Actor, e.Effect, e.Target, e.Value)
	case KindDamage, KindHeal:
		add(e.Target, e.HP)
		if e.Effect != "" {
			add("[from] " + e.Effect)
		}
	case KindBoost:
		add(e.Target, e.Value, strconv.Itoa(e.Amount))
	case KindTurn:
		add(strconv.Itoa(e.Turn))
	case KindWin, KindForfeit:
		add(e.Side, e.Value)
	case KindSideStart, KindSideEnd:
		add(e.Side, e.Effect)
	default:
		add(e.Actor, e.Target, e.Side, e.Effect, e.Species, e.HP, e.Value)
	}
	return strings.Join(parts, "|")
}
