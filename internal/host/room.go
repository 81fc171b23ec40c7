package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"skirmish/internal/battle"
	"skirmish/internal/battle/state"
	"skirmish/internal/journal"
	"skirmish/internal/telemetry"
	"skirmish/logging"
	battlelog "skirmish/logging/battle"
)

// Room owns one battle. Its goroutine is the only one that touches the
// battle; everything else goes through seats and the journal.
type Room struct {
	id        string
	format    string
	seed      string
	createdAt time.Time
	journal   *journal.Journal
	seats     [2]*Seat
	sources   [2]battle.DecisionSource
	grace     time.Duration

	b       *battle.Battle
	span    trace.Span
	next    logging.Publisher
	metrics telemetry.Metrics
	done    chan struct{}
	cancel  context.CancelFunc

	mu      sync.Mutex
	forfeit state.SideID
	outcome *battle.Outcome
	err     error
}

// Summary is the listing view of a room.
type Summary struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Seed      string    `json:"seed"`
	CreatedAt time.Time `json:"createdAt"`
	Turn      int       `json:"turn"`
	Events    int       `json:"events"`
	Finished  bool      `json:"finished"`
	Result    string    `json:"result,omitempty"`
	Winner    string    `json:"winner,omitempty"`
}

// ID is the battle id.
func (r *Room) ID() string { return r.id }

// Journal is the battle's event log. It may be read while the battle runs.
func (r *Room) Journal() *journal.Journal { return r.journal }

// Seat returns the player seat of side, or nil when a computer plays it.
func (r *Room) Seat(side state.SideID) *Seat {
	if !side.Valid() {
		return nil
	}
	return r.seats[side]
}

// Done is closed once the battle has stopped.
func (r *Room) Done() <-chan struct{} { return r.done }

// Outcome returns the final report, or nil while the battle runs. err is set
// when the battle stopped without an outcome.
func (r *Room) Outcome() (*battle.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome, r.err
}

// Summary describes the room for listings.
func (r *Room) Summary() Summary {
	s := Summary{
		ID:        r.id,
		Format:    r.format,
		Seed:      r.seed,
		CreatedAt: r.createdAt,
		Events:    r.journal.Len(),
	}
	for _, e := range r.journal.Since(uint64(max(s.Events-1, 0))) {
		s.Turn = e.Turn
	}
	out, _ := r.Outcome()
	select {
	case <-r.done:
		s.Finished = true
	default:
	}
	if out != nil {
		s.Result = string(out.Result)
		s.Winner = out.WinnerName
	}
	return s
}

// Forfeit concedes for side. The room goroutine applies it at the next
// decision point.
func (r *Room) Forfeit(side state.SideID) error {
	if !side.Valid() {
		return fmt.Errorf("host: forfeit by invalid side %d", side)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.done:
		return ErrClosed
	default:
	}
	if r.forfeit == state.NoSide {
		r.forfeit = side
	}
	r.cancel()
	return nil
}

func (r *Room) forfeiting() state.SideID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.forfeit
}

// detached runs when a player connection drops.
func (r *Room) detached(s *Seat) {
	switch {
	case r.grace < 0:
		return
	case r.grace == 0:
		_ = r.Forfeit(s.Side())
	default:
		time.AfterFunc(r.grace, func() {
			if !s.Attached() {
				_ = r.Forfeit(s.Side())
			}
		})
	}
}

func (r *Room) run(ctx context.Context) {
	defer r.span.End()
	out, err := r.b.Run(ctx, r.sources)
	if err != nil && !r.b.Ended() {
		if side := r.forfeiting(); side != state.NoSide {
			if ferr := r.b.Forfeit(side); ferr == nil {
				out, err = r.b.Outcome(), nil
			}
		}
	}

	r.mu.Lock()
	r.outcome = out
	r.err = err
	close(r.done)
	r.mu.Unlock()

	for _, seat := range r.seats {
		if seat != nil {
			seat.release()
		}
	}
	switch {
	case out != nil && out.Result == battle.ResultInternalError:
		r.span.SetStatus(codes.Error, out.Error)
	case out == nil && err != nil:
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, "battle abandoned")
	case out != nil:
		r.span.SetAttributes(
			attribute.String("battle.result", string(out.Result)),
			attribute.String("battle.reason", out.Reason),
			attribute.Int("battle.turns", out.Turns),
		)
	}
}

// Publish forwards operational events, stamping the room's trace id and
// feeding the host counters.
func (r *Room) Publish(ctx context.Context, event logging.Event) {
	if sc := r.span.SpanContext(); sc.HasTraceID() && event.TraceID == "" {
		event.TraceID = sc.TraceID().String()
	}
	switch event.Type {
	case battlelog.EventTurnResolved:
		r.metrics.Add(telemetry.MetricTurnsResolved, 1)
		r.span.AddEvent("turn", trace.WithAttributes(attribute.Int("battle.turn", event.Turn)))
	case battlelog.EventChoiceRejected:
		r.metrics.Add(telemetry.MetricChoicesRejected, 1)
	case battlelog.EventDecisionTimeout:
		r.metrics.Add(telemetry.MetricDecisionTimeout, 1)
		r.span.AddEvent("decision timeout", trace.WithAttributes(attribute.Int("battle.turn", event.Turn)))
	case battlelog.EventInternalError:
		r.metrics.Add(telemetry.MetricInternalErrors, 1)
	}
	if r.next != nil {
		r.next.Publish(ctx, event)
	}
}
