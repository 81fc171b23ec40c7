package dispatch

import (
	"fmt"
	"sort"

	"skirmish/internal/battle/state"
)

// Event is one dispatch request.
type Event struct {
	ID EventID
	// Target is the event subject.
	Target *state.Combatant
	// Side is the subject side when Target is nil.
	Side   state.SideID
	Source *state.Combatant
	Move   *state.ActiveMove
	// Effect names the effect that caused the event, such as the status
	// being applied or the move dealing damage.
	Effect string
	Value  int
	Boosts []state.BoostChange
	// Broadcast runs every handle's self hooks with the handle owner as the
	// subject, in one globally ordered chain.
	Broadcast bool
}

// Result is the relay after the chain ran.
type Result struct {
	Value    int
	Modifier int
	Vetoed   bool
	Boosts   []state.BoostChange
}

// Applied returns Value scaled by the chained modifier.
func (r Result) Applied() int {
	return Apply(r.Value, r.Modifier)
}

// Call is what a handler sees. Handlers read the event fields, adjust the
// relay and act through Engine.
type Call struct {
	Event  EventID
	Engine Engine
	Handle *Handle
	Target *state.Combatant
	Side   state.SideID
	Source *state.Combatant
	Move   *state.ActiveMove
	Effect string

	Value    int
	Modifier int
	Boosts   []state.BoostChange

	vetoed  bool
	stopped bool
	d       *Dispatcher
}

// Owner returns the combatant carrying the running effect.
func (c *Call) Owner() *state.Combatant {
	if c.Handle == nil {
		return nil
	}
	return c.Handle.Owner
}

// State returns the running effect's bookkeeping, if any.
func (c *Call) State() *state.EffectState {
	if c.Handle == nil {
		return nil
	}
	return c.Handle.State
}

// Chain multiplies the relay modifier by num/den.
func (c *Call) Chain(num, den int) {
	c.Modifier = Chain(c.Modifier, Modifier(num, den))
}

// ChainModifier multiplies the relay modifier by a 4096-based value.
func (c *Call) ChainModifier(mod int) {
	c.Modifier = Chain(c.Modifier, mod)
}

// Veto fails the event and stops the chain.
func (c *Call) Veto() {
	c.vetoed = true
}

// Stop ends the chain without failing the event.
func (c *Call) Stop() {
	c.stopped = true
}

// Defer queues fn to run after the outermost dispatch returns.
func (c *Call) Defer(fn func() error) {
	if fn == nil || c.d == nil {
		return
	}
	c.d.deferred = append(c.d.deferred, fn)
}

// Dispatch runs a nested event.
func (c *Call) Dispatch(ev Event) (Result, error) {
	return c.d.Run(ev)
}

// Config wires a dispatcher.
type Config struct {
	Registry *Registry
	Source   HandleSource
	Engine   Engine
	// Precedence orders kinds; nil means DefaultPrecedence.
	Precedence []Kind
	// PriorityFirst lists events where hook priority dominates kind
	// precedence. Nil means Residual only.
	PriorityFirst []EventID
}

type activeKey struct {
	event   EventID
	subject string
}

// Dispatcher runs hook chains. It belongs to one battle and is not safe for
// concurrent use.
type Dispatcher struct {
	registry      *Registry
	source        HandleSource
	engine        Engine
	rank          [kindCount]int
	precedence    []Kind
	priorityFirst map[EventID]bool

	active   map[activeKey]struct{}
	depth    int
	deferred []func() error
	flushing bool
}

// New validates cfg and builds a dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidDefinition)
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("dispatch: nil handle source")
	}
	precedence := cfg.Precedence
	if precedence == nil {
		precedence = DefaultPrecedence()
	}
	if err := validatePrecedence(precedence); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		registry:      cfg.Registry,
		source:        cfg.Source,
		engine:        cfg.Engine,
		precedence:    append([]Kind(nil), precedence...),
		priorityFirst: make(map[EventID]bool),
		active:        make(map[activeKey]struct{}),
	}
	for i, k := range precedence {
		d.rank[k] = i
	}
	priorityFirst := cfg.PriorityFirst
	if priorityFirst == nil {
		priorityFirst = []EventID{Residual}
	}
	for _, ev := range priorityFirst {
		d.priorityFirst[ev] = true
	}
	return d, nil
}

// Registry returns the definitions the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	if d == nil {
		return nil
	}
	return d.registry
}

// Precedence returns the kind ordering in effect.
func (d *Dispatcher) Precedence() []Kind {
	if d == nil {
		return nil
	}
	return append([]Kind(nil), d.precedence...)
}

// Run dispatches ev to every matching hook in order.
func (d *Dispatcher) Run(ev Event) (Result, error) {
	return d.run(ev, d.collect(ev, d.source.Handles()))
}

// RunHandle dispatches ev to the hooks of h alone, as when an effect starts
// or ends.
func (d *Dispatcher) RunHandle(ev Event, h Handle) (Result, error) {
	return d.run(ev, d.collect(ev, []Handle{h}))
}

func (d *Dispatcher) run(ev Event, entries []entry) (Result, error) {
	key := activeKey{event: ev.ID, subject: subjectKey(ev)}
	if _, busy := d.active[key]; busy {
		if d.depth == 0 {
			d.deferred = nil
		}
		return Result{}, fmt.Errorf("%w: %s for %s", ErrReentrant, ev.ID, key.subject)
	}
	d.active[key] = struct{}{}
	d.depth++
	res, err := d.invoke(ev, entries)
	delete(d.active, key)
	d.depth--

	if err != nil {
		if d.depth == 0 {
			d.deferred = nil
		}
		return res, err
	}
	if d.depth == 0 && !d.flushing {
		if err := d.flush(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (d *Dispatcher) flush() error {
	d.flushing = true
	defer func() { d.flushing = false }()
	for len(d.deferred) > 0 {
		fn := d.deferred[0]
		d.deferred = d.deferred[1:]
		if err := fn(); err != nil {
			d.deferred = nil
			return err
		}
	}
	return nil
}

func subjectKey(ev Event) string {
	switch {
	case ev.Broadcast:
		return "*"
	case ev.Target != nil:
		return ev.Target.ID
	default:
		return ev.Side.String()
	}
}

type entry struct {
	handle   *Handle
	hook     Hook
	rank     int
	speed    int
	priority int
}

func (d *Dispatcher) collect(ev Event, handles []Handle) []entry {
	if ev.Move != nil {
		if def, err := d.registry.Lookup(MoveEffectID(ev.Move.ID)); err == nil && def.Kind == KindMove {
			handles = append(handles, Handle{Def: def, Side: state.NoSide, Order: int(^uint(0) >> 1)})
		}
	}
	var out []entry
	for i := range handles {
		h := &handles[i]
		if h.Def == nil {
			continue
		}
		for _, scope := range []Scope{ScopeSelf, ScopeSource, ScopeFoe, ScopeAny} {
			hook, ok := h.Def.Hook(ev.ID, scope)
			if !ok || !matches(h, scope, ev) {
				continue
			}
			e := entry{handle: h, hook: hook, rank: d.rank[h.Def.Kind], priority: hook.Priority}
			if h.Owner != nil {
				e.speed = d.source.Speed(h.Owner)
			}
			out = append(out, e)
		}
	}
	priorityFirst := d.priorityFirst[ev.ID]
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if priorityFirst && a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.speed != b.speed {
			return a.speed > b.speed
		}
		return a.handle.Order < b.handle.Order
	})
	return out
}

func subjectSide(ev Event) (state.SideID, bool) {
	if ev.Target != nil {
		return ev.Target.Side, true
	}
	return ev.Side, ev.Side.Valid()
}

func matches(h *Handle, scope Scope, ev Event) bool {
	if scope == ScopeAny {
		return true
	}
	if ev.Broadcast {
		return scope == ScopeSelf
	}
	side, hasSide := subjectSide(ev)
	switch {
	case h.Owner != nil:
		switch scope {
		case ScopeSelf:
			return ev.Target == h.Owner
		case ScopeSource:
			return ev.Source != nil && ev.Source == h.Owner
		case ScopeFoe:
			return hasSide && h.Owner.Side != side
		}
	case h.Side.Valid():
		switch scope {
		case ScopeSelf:
			return hasSide && side == h.Side
		case ScopeSource:
			return ev.Source != nil && ev.Source.Side == h.Side
		case ScopeFoe:
			return hasSide && side != h.Side
		}
	default:
		return scope == ScopeSelf
	}
	return false
}

func (d *Dispatcher) invoke(ev Event, entries []entry) (Result, error) {
	call := &Call{
		Event:    ev.ID,
		Engine:   d.engine,
		Target:   ev.Target,
		Side:     ev.Side,
		Source:   ev.Source,
		Move:     ev.Move,
		Effect:   ev.Effect,
		Value:    ev.Value,
		Modifier: ModifierBase,
		Boosts:   ev.Boosts,
		d:        d,
	}
	if ev.Target != nil {
		call.Side = ev.Target.Side
	}
	for _, e := range entries {
		if !d.live(e.handle, ev.ID) {
			continue
		}
		call.Handle = e.handle
		if ev.Broadcast {
			call.Target = e.handle.Owner
			call.Side = e.handle.Side
			if e.handle.Owner != nil {
				call.Side = e.handle.Owner.Side
			}
		}
		if err := e.hook.Handler(call); err != nil {
			return call.result(), fmt.Errorf("%s %s: %w", ev.ID, e.handle.ID(), err)
		}
		if call.vetoed || call.stopped {
			break
		}
	}
	return call.result(), nil
}

func (c *Call) result() Result {
	return Result{Value: c.Value, Modifier: c.Modifier, Vetoed: c.vetoed, Boosts: c.Boosts}
}

func (d *Dispatcher) live(h *Handle, ev EventID) bool {
	if h.Owner != nil && h.Owner.Fainted && ev != Faint {
		return false
	}
	if h.Def.Kind == KindMove && h.Owner == nil {
		return true
	}
	return d.source.Live(h, ev)
}
