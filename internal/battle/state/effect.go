package state

import (
	"errors"
	"fmt"
)

var (
	// ErrDurationUnderflow reports a duration counter decremented past zero.
	ErrDurationUnderflow = errors.New("state: duration underflow")
	// ErrHPOutOfRange reports hit points outside [0, max].
	ErrHPOutOfRange = errors.New("state: hp out of range")
	// ErrNegativeAmount reports a negative damage or heal request.
	ErrNegativeAmount = errors.New("state: negative amount")
)

// RestartPolicy decides what happens when an already active condition is set
// again.
type RestartPolicy int

const (
	// RestartReject fails the second attempt and leaves the counter alone.
	RestartReject RestartPolicy = iota
	// RestartRefresh resets the counter to the new duration.
	RestartRefresh
)

// EffectState is the per-instance bookkeeping of an active condition.
type EffectState struct {
	ID string
	// Duration counts remaining turns when Timed is set.
	Duration int
	Timed    bool
	// Counter is effect-specific (sleep turns, toxic stage, stall count).
	Counter int
	// Source identifies the combatant that caused the condition.
	Source string
	// Order is the activation sequence number used as the final dispatch
	// tie-break.
	Order int
}

// Tick decrements a timed counter and reports whether it reached zero.
func (e *EffectState) Tick() (bool, error) {
	if e == nil || !e.Timed {
		return false, nil
	}
	if e.Duration <= 0 {
		return false, fmt.Errorf("%w: %s has %d turns left", ErrDurationUnderflow, e.ID, e.Duration)
	}
	e.Duration--
	return e.Duration == 0, nil
}

// Clone returns an independent copy.
func (e *EffectState) Clone() *EffectState {
	if e == nil {
		return nil
	}
	copied := *e
	return &copied
}

// Timed builds an EffectState that expires after turns turns; turns <= 0
// yields a permanent condition.
func Timed(id string, turns int) EffectState {
	if turns <= 0 {
		return EffectState{ID: id}
	}
	return EffectState{ID: id, Duration: turns, Timed: true}
}

// ConditionSet is an ordered collection of conditions keyed by id. Iteration
// follows insertion order so dispatch never depends on map ordering.
type ConditionSet struct {
	items []*EffectState
}

// Get returns the condition with id, or nil.
func (c *ConditionSet) Get(id string) *EffectState {
	if c == nil {
		return nil
	}
	for _, item := range c.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// Has reports whether id is present.
func (c *ConditionSet) Has(id string) bool {
	return c.Get(id) != nil
}

// Add inserts st, or applies policy if a condition with the same id is
// already active. It reports whether the set changed.
func (c *ConditionSet) Add(st EffectState, policy RestartPolicy) bool {
	if c == nil || st.ID == "" {
		return false
	}
	if existing := c.Get(st.ID); existing != nil {
		if policy != RestartRefresh {
			return false
		}
		existing.Duration = st.Duration
		existing.Timed = st.Timed
		return true
	}
	copied := st
	c.items = append(c.items, &copied)
	return true
}

// Remove deletes id and reports whether it was present.
func (c *ConditionSet) Remove(id string) bool {
	if c == nil {
		return false
	}
	for i, item := range c.items {
		if item.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the active conditions in insertion order. The pointers are
// live; the slice is a copy.
func (c *ConditionSet) List() []*EffectState {
	if c == nil || len(c.items) == 0 {
		return nil
	}
	return append([]*EffectState(nil), c.items...)
}

// Len reports the number of active conditions.
func (c *ConditionSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Clear drops every condition.
func (c *ConditionSet) Clear() {
	if c == nil {
		return
	}
	c.items = nil
}

// Tick decrements every timed condition and removes the ones that expire,
// returning their ids in order.
func (c *ConditionSet) Tick() ([]string, error) {
	if c == nil {
		return nil, nil
	}
	var expired []string
	kept := c.items[:0]
	for _, item := range c.items {
		done, err := item.Tick()
		if err != nil {
			return nil, err
		}
		if done {
			expired = append(expired, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	c.items = kept
	return expired, nil
}
