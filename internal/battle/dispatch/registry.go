package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"skirmish/internal/battle/state"
)

var (
	// ErrReentrant reports an event dispatched for a subject that is already
	// inside the same event's handler chain.
	ErrReentrant = errors.New("dispatch: re-entrant dispatch")
	// ErrUnknownEffect reports a reference to an effect id with no definition.
	ErrUnknownEffect = errors.New("dispatch: unknown effect")
	// ErrInvalidDefinition reports a definition that fails validation.
	ErrInvalidDefinition = errors.New("dispatch: invalid definition")
	// ErrInvalidPrecedence reports a precedence list that is not a permutation
	// of every kind.
	ErrInvalidPrecedence = errors.New("dispatch: invalid precedence")
)

// Handler runs one hook. Returning an error aborts the dispatch.
type Handler func(*Call) error

// Hook is a handler with its ordering priority. Higher priorities run first.
type Hook struct {
	Handler  Handler
	Priority int
}

// HookKey addresses one hook in a definition's table.
type HookKey struct {
	Event EventID
	Scope Scope
}

// Definition is the hook table for one effect id.
type Definition struct {
	ID   string
	Name string
	Kind Kind
	// Duration is the default lifetime in turns for conditions. Zero means
	// permanent.
	Duration int
	// Restart decides what setting the condition again does.
	Restart state.RestartPolicy
	Hooks   map[HookKey]Hook
}

// Define starts a definition.
func Define(id string, kind Kind) *Definition {
	return &Definition{ID: id, Name: id, Kind: kind, Hooks: make(map[HookKey]Hook)}
}

// Named sets the display name.
func (d *Definition) Named(name string) *Definition {
	d.Name = name
	return d
}

// Lasting sets the default duration and restart policy.
func (d *Definition) Lasting(turns int, policy state.RestartPolicy) *Definition {
	d.Duration = turns
	d.Restart = policy
	return d
}

// On registers a self-scoped hook at priority zero.
func (d *Definition) On(ev EventID, h Handler) *Definition {
	return d.OnScope(ev, ScopeSelf, 0, h)
}

// OnScope registers a hook with an explicit scope and priority.
func (d *Definition) OnScope(ev EventID, scope Scope, priority int, h Handler) *Definition {
	if d.Hooks == nil {
		d.Hooks = make(map[HookKey]Hook)
	}
	d.Hooks[HookKey{Event: ev, Scope: scope}] = Hook{Handler: h, Priority: priority}
	return d
}

// Hook returns the hook for an event and scope.
func (d *Definition) Hook(ev EventID, scope Scope) (Hook, bool) {
	if d == nil {
		return Hook{}, false
	}
	h, ok := d.Hooks[HookKey{Event: ev, Scope: scope}]
	return h, ok
}

func (d *Definition) validate() error {
	if d == nil {
		return errors.New("nil definition")
	}
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("definition id must not be empty")
	}
	if d.Kind < 0 || d.Kind >= kindCount {
		return fmt.Errorf("definition %q has invalid kind %d", d.ID, int(d.Kind))
	}
	if d.Duration < 0 {
		return fmt.Errorf("definition %q has negative duration", d.ID)
	}
	for key, hook := range d.Hooks {
		if hook.Handler == nil {
			return fmt.Errorf("definition %q hook %s/%s has no handler", d.ID, key.Event, key.Scope)
		}
	}
	return nil
}

// MoveEffectID is the registry id of a move's intrinsic hooks. Moves live in
// their own namespace so a move and the volatile it sets may share a name.
func MoveEffectID(move string) string {
	return "move:" + move
}

// Registry maps effect ids to definitions. A battle owns its registry.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register validates and adds defs. Empty or duplicate ids are rejected.
func (r *Registry) Register(defs ...*Definition) error {
	for _, def := range defs {
		if err := def.validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
		if _, exists := r.defs[def.ID]; exists {
			return fmt.Errorf("%w: duplicate definition id %q", ErrInvalidDefinition, def.ID)
		}
		r.defs[def.ID] = def
	}
	return nil
}

// MustRegister panics on an invalid definition. Used for built-in tables.
func (r *Registry) MustRegister(defs ...*Definition) *Registry {
	if err := r.Register(defs...); err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the definition for id.
func (r *Registry) Lookup(id string) (*Definition, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, id)
	}
	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEffect, id)
	}
	return def, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	if r == nil {
		return false
	}
	_, ok := r.defs[id]
	return ok
}

// IDs lists registered ids in sorted order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.defs))
	for id := range r.defs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
