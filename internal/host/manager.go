// Package host runs many battles in parallel, one goroutine per battle, and
// connects remote players to them through seats.
package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"skirmish/catalog"
	"skirmish/internal/ai"
	"skirmish/internal/battle"
	"skirmish/internal/battle/state"
	"skirmish/internal/telemetry"
	"skirmish/logging"
)

var (
	// ErrUnknownBattle reports a lookup for a battle the host does not hold.
	ErrUnknownBattle = errors.New("host: unknown battle")
	// ErrUnknownFormat reports a create request naming no configured format.
	ErrUnknownFormat = errors.New("host: unknown format")
	// ErrCapacity reports a create request beyond MaxBattles.
	ErrCapacity = errors.New("host: too many battles")
	// ErrShutdown reports a create request after Close.
	ErrShutdown = errors.New("host: shutting down")
)

const tracerName = "skirmish/internal/host"

// Config wires a Manager.
type Config struct {
	Dex catalog.Dex
	// Formats resolves a format name. Nil only knows the default format.
	Formats func(name string) (battle.Format, bool)
	Tokens  *Tokens
	// MaxBattles bounds the number of running battles.
	MaxBattles   int
	ChoiceBuffer int
	// DisconnectGrace is how long a dropped player may stay away before
	// forfeiting. Negative never forfeits.
	DisconnectGrace time.Duration
	// Retention keeps finished battles listed. Zero keeps them until Close.
	Retention      time.Duration
	Publisher      logging.Publisher
	Metrics        telemetry.Metrics
	Logger         telemetry.Logger
	TracerProvider trace.TracerProvider
}

// Spec is a battle creation request.
type Spec struct {
	Format string         `json:"format,omitempty"`
	Seed   string         `json:"seed,omitempty"`
	Teams  [2]battle.Team `json:"teams"`
	// Opponents puts a computer policy on a side. Empty leaves it to a
	// player.
	Opponents [2]ai.Policy `json:"opponents,omitempty"`
}

// Ticket lets a player take a seat.
type Ticket struct {
	Side  string `json:"side"`
	Token string `json:"token"`
}

// Manager owns every running battle.
type Manager struct {
	cfg    Config
	tracer trace.Tracer
	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	rooms  map[string]*Room
	active int
	closed bool
}

// NewManager validates cfg and returns an idle manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dex == nil {
		return nil, errors.New("host: config needs a dex")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("host: config needs a token signer")
	}
	if cfg.Formats == nil {
		def := battle.DefaultFormat()
		cfg.Formats = func(name string) (battle.Format, bool) {
			return def, name == "" || name == def.Name
		}
	}
	if cfg.MaxBattles <= 0 {
		cfg.MaxBattles = 256
	}
	if cfg.ChoiceBuffer <= 0 {
		cfg.ChoiceBuffer = 8
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(nil)
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(tracerName),
		ctx:    ctx,
		stop:   stop,
		rooms:  make(map[string]*Room),
	}, nil
}

// Create builds a battle, starts its goroutine and returns the room with a
// ticket for every player seat.
func (m *Manager) Create(ctx context.Context, spec Spec) (*Room, []Ticket, error) {
	format, ok := m.cfg.Formats(spec.Format)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, spec.Format)
	}

	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return nil, nil, ErrShutdown
	case m.active >= m.cfg.MaxBattles:
		m.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: limit %d", ErrCapacity, m.cfg.MaxBattles)
	}
	m.active++
	m.mu.Unlock()

	room, tickets, err := m.build(ctx, format, spec)
	if err != nil {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
		return nil, nil, err
	}

	m.mu.Lock()
	m.rooms[room.id] = room
	active := m.active
	m.mu.Unlock()
	m.cfg.Metrics.Add(telemetry.MetricBattlesStarted, 1)
	m.cfg.Metrics.Store(telemetry.MetricBattlesActive, uint64(active))

	runCtx, cancel := context.WithCancel(m.ctx)
	room.mu.Lock()
	room.cancel = cancel
	room.mu.Unlock()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		room.run(runCtx)
		m.finished(room)
	}()
	return room, tickets, nil
}

func (m *Manager) build(ctx context.Context, format battle.Format, spec Spec) (*Room, []Ticket, error) {
	id := uuid.NewString()
	seed := spec.Seed
	if seed == "" {
		seed = id
	}
	_, span := m.tracer.Start(trace.ContextWithSpanContext(m.ctx, trace.SpanContextFromContext(ctx)), "battle",
		trace.WithAttributes(
			attribute.String("battle.id", id),
			attribute.String("battle.format", format.Name),
			attribute.String("battle.seed", seed),
		))

	room := &Room{
		id:        id,
		format:    format.Name,
		seed:      seed,
		createdAt: time.Now(),
		grace:     m.cfg.DisconnectGrace,
		span:      span,
		next:      logging.WithFields(m.cfg.Publisher, map[string]any{"format": format.Name, "seed": seed}),
		metrics:   m.cfg.Metrics,
		done:      make(chan struct{}),
		cancel:    func() {},
		forfeit:   state.NoSide,
	}
	fail := func(err error) (*Room, []Ticket, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "setup failed")
		span.End()
		return nil, nil, err
	}

	b, err := battle.New(format, m.cfg.Dex, spec.Teams, seed, battle.Options{ID: id, Publisher: room})
	if err != nil {
		return fail(err)
	}
	room.b = b
	room.journal = b.Journal()

	var tickets []Ticket
	for i, team := range spec.Teams {
		side := state.SideID(i)
		if policy := spec.Opponents[i]; policy != "" {
			agent, err := ai.New(ai.Config{Policy: policy, Seed: seed + "/" + side.String(), Dex: m.cfg.Dex})
			if err != nil {
				return fail(err)
			}
			room.sources[i] = agent
			continue
		}
		token, err := m.cfg.Tokens.Issue(id, side)
		if err != nil {
			return fail(err)
		}
		seat := newSeat(side, team.Name, NewChoiceBuffer(m.cfg.ChoiceBuffer, m.cfg.Metrics), room.done)
		seat.onDetach = room.detached
		room.seats[i] = seat
		room.sources[i] = seat
		tickets = append(tickets, Ticket{Side: side.String(), Token: token})
	}
	return room, tickets, nil
}

func (m *Manager) finished(room *Room) {
	m.mu.Lock()
	m.active--
	active := m.active
	m.mu.Unlock()
	m.cfg.Metrics.Add(telemetry.MetricBattlesFinished, 1)
	m.cfg.Metrics.Store(telemetry.MetricBattlesActive, uint64(active))

	if out, err := room.Outcome(); out != nil {
		m.cfg.Logger.Printf("battle %s finished: %s (%s) after %d turns", room.id, out.Result, out.Reason, out.Turns)
	} else if err != nil {
		m.cfg.Logger.Printf("battle %s stopped: %v", room.id, err)
	}
	if m.cfg.Retention > 0 {
		time.AfterFunc(m.cfg.Retention, func() { m.remove(room.id) })
	}
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.rooms, id)
	m.mu.Unlock()
}

// Room looks up a battle by id.
func (m *Manager) Room(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBattle, id)
	}
	return room, nil
}

// Authorize resolves a seat token to its room and seat.
func (m *Manager) Authorize(token string) (*Room, *Seat, error) {
	id, side, err := m.cfg.Tokens.Verify(token)
	if err != nil {
		return nil, nil, err
	}
	room, err := m.Room(id)
	if err != nil {
		return nil, nil, err
	}
	seat := room.Seat(side)
	if seat == nil {
		return nil, nil, fmt.Errorf("%w: side %s has no player seat", ErrBadToken, side)
	}
	return room, seat, nil
}

// Rooms lists every held battle, newest first.
func (m *Manager) Rooms() []Summary {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()
	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Active reports how many battles are running.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Close stops accepting battles, cancels the running ones and waits for
// their goroutines until ctx expires.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
