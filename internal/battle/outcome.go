package battle

import (
	"context"

	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
	battlelog "skirmish/logging/battle"
)

// Result classifies how a battle ended.
type Result string

const (
	ResultWin           Result = "win"
	ResultDraw          Result = "draw"
	ResultInternalError Result = "internal-error"
)

// Reasons recorded on an outcome.
const (
	ReasonDefeated  = "defeated"
	ReasonForfeit   = "forfeit"
	ReasonTurnLimit = "turn-limit"
	ReasonInternal  = "internal"
)

// Outcome is the final report of a battle.
type Outcome struct {
	Result Result       `json:"result"`
	Winner state.SideID `json:"-"`
	// WinnerName is the winning side's id string, empty without a winner.
	WinnerName string       `json:"winner,omitempty"`
	Reason     string       `json:"reason"`
	Turns      int          `json:"turns"`
	Combatants []state.View `json:"combatants"`
	Checksum   string       `json:"checksum"`
	Error      string       `json:"error,omitempty"`
	// Err is the halting error for internal-error outcomes.
	Err error `json:"-"`
}

// checkWin ends the battle when a side has nothing left. Both sides falling
// together is a draw.
func (b *Battle) checkWin() bool {
	if b.Ended() {
		return true
	}
	one, two := b.sides[0].Defeated(), b.sides[1].Defeated()
	switch {
	case one && two:
		b.finish(ResultDraw, state.NoSide, ReasonDefeated)
	case one:
		b.finish(ResultWin, state.SideTwo, ReasonDefeated)
	case two:
		b.finish(ResultWin, state.SideOne, ReasonDefeated)
	default:
		return false
	}
	return true
}

func (b *Battle) finish(result Result, winner state.SideID, reason string) {
	if b.outcome != nil {
		return
	}
	if b.inTurn {
		b.closeTurn()
	}
	switch result {
	case ResultWin:
		b.emit(journal.Event{Kind: journal.KindWin, Side: winner.String(), Value: reason})
	case ResultDraw:
		b.emit(journal.Event{Kind: journal.KindTie, Value: reason})
	}
	b.seal(&Outcome{Result: result, Winner: winner, Reason: reason})
}

// halt stops the battle after an invariant violation.
func (b *Battle) halt(err error) {
	if b.outcome != nil {
		return
	}
	if b.inTurn {
		b.closeTurn()
	}
	b.emit(journal.Event{Kind: journal.KindInternalError, Value: err.Error()})
	battlelog.InternalError(context.Background(), b.publisher, b.id, b.field.Turn, err, nil)
	b.seal(&Outcome{Result: ResultInternalError, Winner: state.NoSide, Reason: ReasonInternal, Error: err.Error(), Err: err})
}

func (b *Battle) seal(out *Outcome) {
	b.phase = PhaseTerminal
	b.queue = nil
	out.Turns = b.field.Turn
	if out.Winner.Valid() {
		out.WinnerName = out.Winner.String()
	}
	for _, side := range b.sides {
		for _, c := range side.Roster {
			out.Combatants = append(out.Combatants, c.View())
		}
	}
	out.Checksum = b.journal.Checksum()
	b.outcome = out
	battlelog.Ended(context.Background(), b.publisher, b.id, b.field.Turn, battlelog.EndedPayload{
		Result: string(out.Result),
		Winner: out.WinnerName,
		Reason: out.Reason,
		Turns:  out.Turns,
	}, nil)
}
