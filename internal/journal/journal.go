// Package journal is the append-only battle event log. Every state change a
// viewer needs is recorded in order, so a match can be reconstructed without
// re-running the simulation.
package journal

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Kind names an event type.
type Kind string

const (
	KindStart          Kind = "start"
	KindSwitch         Kind = "switch"
	KindDrag           Kind = "drag"
	KindMove           Kind = "move"
	KindDamage         Kind = "damage"
	KindHeal           Kind = "heal"
	KindStatus         Kind = "status"
	KindCureStatus     Kind = "curestatus"
	KindBoost          Kind = "boost"
	KindFaint          Kind = "faint"
	KindWeather        Kind = "weather"
	KindFieldStart     Kind = "fieldstart"
	KindFieldEnd       Kind = "fieldend"
	KindSideStart      Kind = "sidestart"
	KindSideEnd        Kind = "sideend"
	KindVolatileStart  Kind = "volatilestart"
	KindVolatileEnd    Kind = "volatileend"
	KindAbility        Kind = "ability"
	KindItem           Kind = "item"
	KindEndItem        Kind = "enditem"
	KindUseItem        Kind = "useitem"
	KindFormeChange    Kind = "formechange"
	KindCrit           Kind = "crit"
	KindSuperEffective Kind = "supereffective"
	KindResisted       Kind = "resisted"
	KindImmune         Kind = "immune"
	KindMiss           Kind = "miss"
	KindFail           Kind = "fail"
	KindCant           Kind = "cant"
	KindActivate       Kind = "activate"
	KindDefault        Kind = "default"
	KindTurn           Kind = "turn"
	KindWin            Kind = "win"
	KindTie            Kind = "tie"
	KindForfeit        Kind = "forfeit"
	KindInternalError  Kind = "error"
)

// Event is one log record. HP is rendered "current/max" so a viewer never
// needs the catalog to draw health bars.
type Event struct {
	Seq     uint64 `json:"seq"`
	Turn    int    `json:"turn"`
	Kind    Kind   `json:"kind"`
	Actor   string `json:"actor,omitempty"`
	Target  string `json:"target,omitempty"`
	Side    string `json:"side,omitempty"`
	Effect  string `json:"effect,omitempty"`
	Name    string `json:"name,omitempty"`
	Species string `json:"species,omitempty"`
	Slot    int    `json:"slot,omitempty"`
	Amount  int    `json:"amount,omitempty"`
	HP      string `json:"hp,omitempty"`
	Value   string `json:"value,omitempty"`
}

// HP formats a health value the way Event.HP carries it.
func HP(current, max int) string {
	return fmt.Sprintf("%d/%d", current, max)
}

// Journal stores events in append order and assigns sequence numbers. It is
// written by a single battle goroutine and may be read concurrently.
type Journal struct {
	mu     sync.RWMutex
	events []Event
	seq    uint64
	notify []chan struct{}
}

// New constructs an empty journal.
func New() *Journal {
	return &Journal{events: make([]Event, 0, 64)}
}

// Append assigns the next sequence number and stores e. The stored copy is
// returned.
func (j *Journal) Append(e Event) Event {
	if j == nil {
		return e
	}
	j.mu.Lock()
	j.seq++
	e.Seq = j.seq
	j.events = append(j.events, e)
	waiters := j.notify
	j.notify = nil
	j.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
	return e
}

// Len reports the number of stored events.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.events)
}

// Events returns a copy of every stored event.
func (j *Journal) Events() []Event {
	return j.Since(0)
}

// Since returns a copy of the events with a sequence number greater than seq.
func (j *Journal) Since(seq uint64) []Event {
	if j == nil {
		return nil
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if seq >= j.seq {
		return nil
	}
	// Sequence numbers start at 1 and are dense.
	start := int(seq)
	out := make([]Event, len(j.events)-start)
	copy(out, j.events[start:])
	return out
}

// Wait returns a channel closed by the next Append. Streaming readers use it
// together with Since to follow a live battle.
func (j *Journal) Wait() <-chan struct{} {
	ch := make(chan struct{})
	if j == nil {
		return ch
	}
	j.mu.Lock()
	j.notify = append(j.notify, ch)
	j.mu.Unlock()
	return ch
}

// Encode writes the log as JSON lines.
func (j *Journal) Encode(w io.Writer) error {
	return EncodeEvents(w, j.Events())
}

// EncodeEvents writes events as JSON lines.
func EncodeEvents(w io.Writer, events []Event) error {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("journal: encode seq %d: %w", e.Seq, err)
		}
	}
	return buf.Flush()
}

// Decode reads a JSON-lines log.
func Decode(r io.Reader) ([]Event, error) {
	dec := json.NewDecoder(r)
	var out []Event
	for {
		var e Event
		if err := dec.Decode(&e); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, fmt.Errorf("journal: decode event %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
}

// Checksum is the hex SHA-256 of the JSON-lines encoding. Two battles with the
// same seed and the same submitted actions produce the same checksum.
func (j *Journal) Checksum() string {
	return Checksum(j.Events())
}

// Checksum hashes events the same way Journal.Checksum does.
func Checksum(events []Event) string {
	h := sha256.New()
	if err := EncodeEvents(h, events); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
