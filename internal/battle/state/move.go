package state

import "skirmish/catalog"

// ActiveMove is a move while it executes. It is a private copy of the catalog
// record that effects may rewrite (type, power, priority) without touching
// the catalog, plus per-hit scratch values.
type ActiveMove struct {
	catalog.Move

	// Spread is set when the move resolved against more than one target.
	Spread bool
	// Crit and TypeMod describe the hit currently being resolved.
	Crit    bool
	TypeMod int
	// TotalDamage accumulates HP removed from all targets.
	TotalDamage int
	// HitAny is set once at least one target was damaged.
	HitAny bool
}

// NewActiveMove copies a catalog move for execution.
func NewActiveMove(m catalog.Move) *ActiveMove {
	return &ActiveMove{Move: m}
}

// Damaging reports whether the move deals direct damage.
func (m *ActiveMove) Damaging() bool {
	return m != nil && m.Category != catalog.CategoryStatus
}
