package battle

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"skirmish/internal/battle/state"
	"skirmish/logging"
	battlelog "skirmish/logging/battle"
)

//go:generate go tool mockgen -destination=./mocks/decision_mock.go -package=mocks . DecisionSource,Acknowledger

// DecisionSource supplies the choices of one side. Decide is called from a
// worker goroutine and must return when ctx is done.
type DecisionSource interface {
	Decide(ctx context.Context, req Request) ([]Choice, error)
}

// Acknowledger is implemented by sources that want the validation result of
// every submission they made. The request carries the rejections, or Wait
// when the side owes nothing more.
type Acknowledger interface {
	Acknowledge(req Request)
}

type proposal struct {
	side    state.SideID
	choices []Choice
	reply   chan Request
}

// Run drives the battle to its end. At every decision point both sides are
// asked concurrently; rejected choices go back to the source until the
// resubmission budget or the decision timeout runs out, then the default
// policy fills whatever is missing. Only the calling goroutine touches the
// battle.
func (b *Battle) Run(ctx context.Context, sources [2]DecisionSource) (*Outcome, error) {
	for !b.Ended() {
		if err := b.collect(ctx, sources); err != nil {
			return b.outcome, err
		}
		if err := b.Advance(); err != nil {
			return b.outcome, err
		}
	}
	return b.outcome, nil
}

func (b *Battle) collect(ctx context.Context, sources [2]DecisionSource) error {
	var waiting []state.SideID
	for i := range b.sides {
		if side := state.SideID(i); b.Waiting(side) {
			waiting = append(waiting, side)
		}
	}
	if len(waiting) == 0 {
		return nil
	}

	dctx, cancel := ctx, context.CancelFunc(func() {})
	if timeout := b.rules.DecisionTimeout; timeout > 0 {
		dctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	proposals := make(chan proposal)
	attempts := 1 + max(b.rules.MaxResubmits, 0)
	var g errgroup.Group
	for _, side := range waiting {
		src := sources[side]
		if src == nil {
			continue
		}
		req := b.Request(side)
		g.Go(func() error {
			return decide(dctx, side, src, req, attempts, proposals)
		})
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	var sourceErr error
collecting:
	for {
		select {
		case p := <-proposals:
			p.reply <- b.apply(p)
		case err := <-done:
			sourceErr = err
			break collecting
		case <-dctx.Done():
			break collecting
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, side := range waiting {
		if !b.Waiting(side) {
			continue
		}
		slots := b.FillDefaults(side)
		var extra map[string]any
		if sourceErr != nil && !errors.Is(sourceErr, context.DeadlineExceeded) {
			extra = map[string]any{"error": sourceErr.Error()}
		}
		battlelog.DecisionTimeout(ctx, b.publisher, b.id, b.field.Turn, logging.Side(side.String()),
			battlelog.TimeoutPayload{Slots: slots, Policy: string(b.rules.DefaultPolicy)}, extra)
	}
	return nil
}

// decide runs on a worker goroutine. It never touches the battle; every
// submission goes through the proposals channel.
func decide(ctx context.Context, side state.SideID, src DecisionSource, req Request, attempts int, out chan<- proposal) error {
	ack, _ := src.(Acknowledger)
	for range attempts {
		choices, err := src.Decide(ctx, req)
		if err != nil {
			return err
		}
		reply := make(chan Request, 1)
		select {
		case out <- proposal{side: side, choices: choices, reply: reply}:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case next := <-reply:
			if ack != nil {
				ack.Acknowledge(next)
			}
			if next.Wait {
				return nil
			}
			req = next
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// apply submits a batch and reports the side's request afterwards.
func (b *Battle) apply(p proposal) Request {
	var rejected []*ValidationError
	for _, choice := range p.choices {
		err := b.Submit(p.side, choice)
		if err == nil {
			continue
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			rejected = append(rejected, verr)
		}
	}
	req := b.Request(p.side)
	req.Rejections = rejected
	return req
}
