package host

import (
	"context"
	"errors"
	"sync"

	"skirmish/internal/battle"
	"skirmish/internal/battle/state"
)

var (
	// ErrQueueFull reports a submission refused because the seat's buffer
	// is full.
	ErrQueueFull = errors.New("host: choice queue full")
	// ErrStale reports a submission that arrived for a decision window that
	// has since closed.
	ErrStale = errors.New("host: decision window closed")
	// ErrClosed reports an operation on a finished battle.
	ErrClosed = errors.New("host: battle closed")
	// ErrSeatTaken reports a second connection to an occupied seat.
	ErrSeatTaken = errors.New("host: seat already connected")
)

// Seat is the decision source of a remote player. Submissions are staged in
// a ChoiceBuffer and handed to the battle when it asks; the validation
// result travels back on the submission's reply channel.
type Seat struct {
	side state.SideID
	name string
	buf  *ChoiceBuffer
	done <-chan struct{}

	mu       sync.Mutex
	request  battle.Request
	version  uint64
	changed  chan struct{}
	pending  chan Reply
	attached bool
	onDetach func(*Seat)
}

func newSeat(side state.SideID, name string, buf *ChoiceBuffer, done <-chan struct{}) *Seat {
	return &Seat{
		side:    side,
		name:    name,
		buf:     buf,
		done:    done,
		request: battle.Request{Side: side.String(), Wait: true},
		changed: make(chan struct{}),
	}
}

// Side reports which side the seat plays.
func (s *Seat) Side() state.SideID { return s.side }

// Name is the team name the seat registered with.
func (s *Seat) Name() string { return s.name }

// Request returns the latest request, its version and a channel closed when
// a newer one is published.
func (s *Seat) Request() (battle.Request, uint64, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request, s.version, s.changed
}

func (s *Seat) publish(req battle.Request) {
	s.mu.Lock()
	s.request = req
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// Decide publishes req and blocks until a submission arrives. Batches staged
// before the request was published answered an older window and are
// refused as stale.
func (s *Seat) Decide(ctx context.Context, req battle.Request) ([]battle.Choice, error) {
	s.mu.Lock()
	if s.pending != nil {
		s.pending <- Reply{Err: ErrStale}
		s.pending = nil
	}
	s.mu.Unlock()
	if len(req.Rejections) == 0 {
		for _, sub := range s.buf.Drain() {
			sub.reply <- Reply{Err: ErrStale}
		}
	}
	s.publish(req)

	for {
		if sub, ok := s.buf.Pop(); ok {
			s.mu.Lock()
			s.pending = sub.reply
			s.mu.Unlock()
			return sub.choices, nil
		}
		select {
		case <-s.buf.Ready():
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.done:
			return nil, ErrClosed
		}
	}
}

// Acknowledge answers the submission under validation and republishes the
// request so watchers see rejections or the wait state.
func (s *Seat) Acknowledge(req battle.Request) {
	s.mu.Lock()
	if s.pending != nil {
		s.pending <- Reply{Request: req}
		s.pending = nil
	}
	s.mu.Unlock()
	s.publish(req)
}

// Submit stages choices for the current decision window and waits for the
// battle's verdict.
func (s *Seat) Submit(ctx context.Context, choices []battle.Choice) (battle.Request, error) {
	select {
	case <-s.done:
		return battle.Request{}, ErrClosed
	default:
	}
	reply := make(chan Reply, 1)
	if !s.buf.Push(submission{choices: choices, reply: reply}) {
		return battle.Request{}, ErrQueueFull
	}
	select {
	case r := <-reply:
		return r.Request, r.Err
	case <-ctx.Done():
		return battle.Request{}, ctx.Err()
	case <-s.done:
		return battle.Request{}, ErrClosed
	}
}

// Attach claims the seat for one connection.
func (s *Seat) Attach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return ErrSeatTaken
	}
	s.attached = true
	return nil
}

// Detach releases the seat. The room decides whether the absence forfeits.
func (s *Seat) Detach() {
	s.mu.Lock()
	s.attached = false
	hook := s.onDetach
	s.mu.Unlock()
	if hook != nil {
		hook(s)
	}
}

// Attached reports whether a connection holds the seat.
func (s *Seat) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// release fails everything still queued once the battle is over.
func (s *Seat) release() {
	s.mu.Lock()
	if s.pending != nil {
		s.pending <- Reply{Err: ErrClosed}
		s.pending = nil
	}
	s.mu.Unlock()
	for _, sub := range s.buf.Drain() {
		sub.reply <- Reply{Err: ErrClosed}
	}
}

var (
	_ battle.DecisionSource = (*Seat)(nil)
	_ battle.Acknowledger   = (*Seat)(nil)
)
