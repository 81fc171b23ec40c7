package state

// Side is one player's roster, active positions and bag.
type Side struct {
	ID     SideID
	Name   string
	Roster []*Combatant
	// Active holds one entry per position; nil marks an empty position.
	Active    []*Combatant
	Bag       map[string]int
	Forfeited bool
}

// NewSide builds a side with activePerSide empty positions.
func NewSide(id SideID, name string, roster []*Combatant, activePerSide int) *Side {
	if activePerSide <= 0 {
		activePerSide = 1
	}
	return &Side{
		ID:     id,
		Name:   name,
		Roster: roster,
		Active: make([]*Combatant, activePerSide),
		Bag:    make(map[string]int),
	}
}

// At returns the combatant in position slot, or nil.
func (s *Side) At(slot int) *Combatant {
	if s == nil || slot < 0 || slot >= len(s.Active) {
		return nil
	}
	return s.Active[slot]
}

// Remaining counts combatants that have not fainted.
func (s *Side) Remaining() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, c := range s.Roster {
		if !c.Fainted {
			n++
		}
	}
	return n
}

// Reserves lists benched combatants that can be switched in, in roster order.
func (s *Side) Reserves() []*Combatant {
	if s == nil {
		return nil
	}
	var out []*Combatant
	for _, c := range s.Roster {
		if c.Available() {
			out = append(out, c)
		}
	}
	return out
}

// ActiveCombatants lists the occupied, non-fainted positions in slot order.
func (s *Side) ActiveCombatants() []*Combatant {
	if s == nil {
		return nil
	}
	var out []*Combatant
	for _, c := range s.Active {
		if c.Active() {
			out = append(out, c)
		}
	}
	return out
}

// Place puts c into position slot, benching whatever was there.
func (s *Side) Place(slot int, c *Combatant) *Combatant {
	if s == nil || slot < 0 || slot >= len(s.Active) {
		return nil
	}
	prev := s.Active[slot]
	if prev != nil && prev != c {
		prev.SwitchOut()
	}
	s.Active[slot] = c
	if c != nil {
		c.Slot = slot
		c.ForcedOut = false
	}
	return prev
}

// Defeated reports whether nothing is left to fight with.
func (s *Side) Defeated() bool {
	return s == nil || s.Forfeited || s.Remaining() == 0
}
