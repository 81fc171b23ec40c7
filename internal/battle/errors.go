package battle

import (
	"errors"
	"fmt"

	"skirmish/internal/battle/state"
)

var (
	// ErrInvalidChoice is matched by every *ValidationError.
	ErrInvalidChoice = errors.New("battle: invalid choice")
	// ErrInternal wraps an invariant violation that halted the battle.
	ErrInternal = errors.New("battle: internal error")
	// ErrNotReady reports Advance called while choices are still missing.
	ErrNotReady = errors.New("battle: decisions pending")
	// ErrEnded reports an operation on a battle in its terminal state.
	ErrEnded = errors.New("battle: battle has ended")
	// ErrInvalidTeam reports a roster that cannot be built.
	ErrInvalidTeam = errors.New("battle: invalid team")
	// ErrInvalidFormat reports a format that fails validation.
	ErrInvalidFormat = errors.New("battle: invalid format")
)

// Code classifies a rejected choice.
type Code string

const (
	CodeNotExpected       Code = "not-expected"
	CodeDuplicate         Code = "duplicate"
	CodeFainted           Code = "fainted"
	CodeUnknownMove       Code = "unknown-move"
	CodeMoveUnavailable   Code = "move-unavailable"
	CodeIllegalTarget     Code = "illegal-target"
	CodeTargetFainted     Code = "target-fainted"
	CodeSwitchUnavailable Code = "switch-unavailable"
	CodeItemUnavailable   Code = "item-unavailable"
	CodeBadTeamOrder      Code = "bad-team-order"
)

// ValidationError describes why Submit refused a choice. The battle state is
// unchanged when one is returned.
type ValidationError struct {
	Side   state.SideID `json:"-"`
	Slot   int          `json:"slot"`
	Code   Code         `json:"code"`
	Reason string       `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("battle: %s slot %d: %s: %s", e.Side, e.Slot, e.Code, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidChoice) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidChoice
}

func reject(side state.SideID, slot int, code Code, format string, args ...any) *ValidationError {
	return &ValidationError{Side: side, Slot: slot, Code: code, Reason: fmt.Sprintf(format, args...)}
}

func internal(err error) error {
	if err == nil || errors.Is(err, ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}
