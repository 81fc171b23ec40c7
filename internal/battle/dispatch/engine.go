package dispatch

import (
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
	"skirmish/internal/rng"
)

// Engine is the mutation surface handlers act through. The battle implements
// it; handlers never touch another combatant's fields directly except to read.
type Engine interface {
	RNG() *rng.PRNG
	Field() *state.Field
	Side(id state.SideID) *state.Side
	// Foes lists the active combatants adjacent to c on the opposing side.
	Foes(c *state.Combatant) []*state.Combatant

	Damage(target, source *state.Combatant, amount int, effect string) (int, error)
	Heal(target *state.Combatant, amount int, effect string) (int, error)
	Boost(target, source *state.Combatant, changes []state.BoostChange, effect string) error
	SetStatus(target, source *state.Combatant, status, effect string) (bool, error)
	CureStatus(target *state.Combatant, effect string) error
	AddVolatile(target, source *state.Combatant, id string) (bool, error)
	RemoveVolatile(target *state.Combatant, id string) error
	SetWeather(id string, source *state.Combatant, effect string) (bool, error)
	SetTerrain(id string, source *state.Combatant, effect string) (bool, error)
	AddSideCondition(side state.SideID, id string, source *state.Combatant) (bool, error)
	ChangeForme(target *state.Combatant, species, effect string) (bool, error)
	ConsumeItem(target *state.Combatant, effect string) error
	LockMove(target *state.Combatant, move string)
	Emit(kind journal.Kind, target *state.Combatant, effect, value string)
}

// Handle is one active source of hooked behavior.
type Handle struct {
	Def *Definition
	// Owner is the combatant carrying the effect; nil for field, side and
	// move handles.
	Owner *state.Combatant
	// Side owns side conditions. Field-wide handles use state.NoSide.
	Side  state.SideID
	State *state.EffectState
	// Order is the activation sequence number, the final tie-break.
	Order int
}

// ID returns the definition id.
func (h *Handle) ID() string {
	if h == nil || h.Def == nil {
		return ""
	}
	return h.Def.ID
}

// HandleSource enumerates the handles currently in play.
type HandleSource interface {
	Handles() []Handle
	// Speed returns the owner's effective speed used to order handles.
	Speed(c *state.Combatant) int
	// Live reports whether the effect behind h is still in place.
	Live(h *Handle, ev EventID) bool
}
