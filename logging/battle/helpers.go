// Package battle publishes typed operational events for battle instances.
package battle

import (
	"context"

	"skirmish/logging"
)

const (
	// EventCreated is emitted when a battle instance is set up.
	EventCreated logging.EventType = "battle.created"
	// EventTurnResolved is emitted once a turn's residual phase completes.
	EventTurnResolved logging.EventType = "battle.turn_resolved"
	// EventChoiceRejected is emitted when a submitted choice fails validation.
	EventChoiceRejected logging.EventType = "battle.choice_rejected"
	// EventDecisionTimeout is emitted when defaults replace missing choices.
	EventDecisionTimeout logging.EventType = "battle.decision_timeout"
	// EventEnded is emitted when a battle reaches its terminal state.
	EventEnded logging.EventType = "battle.ended"
	// EventInternalError is emitted when an invariant violation halts a battle.
	EventInternalError logging.EventType = "battle.internal_error"
)

// CreatedPayload describes a new battle.
type CreatedPayload struct {
	Format string   `json:"format"`
	Seed   string   `json:"seed"`
	Sides  []string `json:"sides"`
}

// TurnPayload summarises one resolved turn.
type TurnPayload struct {
	Actions int `json:"actions"`
	Events  int `json:"events"`
}

// RejectedPayload carries the validation failure.
type RejectedPayload struct {
	Slot   int    `json:"slot"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// TimeoutPayload lists the slots that received the default action.
type TimeoutPayload struct {
	Slots  []int  `json:"slots"`
	Policy string `json:"policy"`
}

// EndedPayload carries the outcome.
type EndedPayload struct {
	Result string `json:"result"`
	Winner string `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
	Turns  int    `json:"turns"`
}

// ErrorPayload carries the invariant that failed.
type ErrorPayload struct {
	Error string `json:"error"`
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event)
}

// Created publishes a battle creation event.
func Created(ctx context.Context, pub logging.Publisher, battleID string, payload CreatedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventCreated,
		BattleID: battleID,
		Actor:    logging.Battle(battleID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBattle,
		Payload:  payload,
		Extra:    extra,
	})
}

// TurnResolved publishes the end of a turn.
func TurnResolved(ctx context.Context, pub logging.Publisher, battleID string, turn int, payload TurnPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventTurnResolved,
		BattleID: battleID,
		Turn:     turn,
		Actor:    logging.Battle(battleID),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryBattle,
		Payload:  payload,
		Extra:    extra,
	})
}

// ChoiceRejected publishes a validation failure for a side.
func ChoiceRejected(ctx context.Context, pub logging.Publisher, battleID string, turn int, side logging.EntityRef, payload RejectedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventChoiceRejected,
		BattleID: battleID,
		Turn:     turn,
		Actor:    side,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryDecision,
		Payload:  payload,
		Extra:    extra,
	})
}

// DecisionTimeout publishes a default-action substitution.
func DecisionTimeout(ctx context.Context, pub logging.Publisher, battleID string, turn int, side logging.EntityRef, payload TimeoutPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventDecisionTimeout,
		BattleID: battleID,
		Turn:     turn,
		Actor:    side,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryDecision,
		Payload:  payload,
		Extra:    extra,
	})
}

// Ended publishes the battle outcome.
func Ended(ctx context.Context, pub logging.Publisher, battleID string, turn int, payload EndedPayload, extra map[string]any) {
	publish(ctx, pub, logging.Event{
		Type:     EventEnded,
		BattleID: battleID,
		Turn:     turn,
		Actor:    logging.Battle(battleID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBattle,
		Payload:  payload,
		Extra:    extra,
	})
}

// InternalError publishes a halted battle.
func InternalError(ctx context.Context, pub logging.Publisher, battleID string, turn int, err error, extra map[string]any) {
	if err == nil {
		return
	}
	publish(ctx, pub, logging.Event{
		Type:     EventInternalError,
		BattleID: battleID,
		Turn:     turn,
		Actor:    logging.Battle(battleID),
		Severity: logging.SeverityError,
		Category: logging.CategorySystem,
		Payload:  ErrorPayload{Error: err.Error()},
		Extra:    extra,
	})
}
