// Package proto defines the websocket wire messages exchanged with battle
// clients.
package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"skirmish/internal/battle"
	"skirmish/internal/journal"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// Client message type identifiers.
const (
	TypeChoice    = "choice"
	TypeForfeit   = "forfeit"
	TypeHeartbeat = "heartbeat"
	TypeResync    = "resync"
)

// Server message type identifiers.
const (
	TypeWelcome      = "welcome"
	TypeRequest      = "request"
	TypeEvents       = "events"
	TypeChoiceAck    = "choiceAck"
	TypeChoiceReject = "choiceReject"
	TypeOutcome      = "outcome"
	TypeError        = "error"
)

// Transport-level reject reasons. Validation failures carry the battle's own
// codes instead.
const (
	RejectQueueFull    = "queue-full"
	RejectStale        = "stale"
	RejectClosed       = "closed"
	RejectSpectator    = "spectator"
	RejectInvalid      = "invalid-payload"
	RejectValidation   = "validation"
	RejectUnauthorized = "unauthorized"
)

// ErrMalformed reports a client payload that cannot be handled.
var ErrMalformed = errors.New("proto: malformed message")

// ClientMessage is every message a client may send; Type selects the fields
// that apply.
type ClientMessage struct {
	Ver     int             `json:"ver,omitempty"`
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Choices []battle.Choice `json:"choices,omitempty"`
	SentAt  int64           `json:"sentAt,omitempty"`
	// Since asks a resync to replay events after this sequence number.
	Since uint64 `json:"since,omitempty"`
}

// DecodeClient parses and shape-checks a client payload.
func DecodeClient(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if msg.Ver > Version {
		return ClientMessage{}, fmt.Errorf("%w: protocol version %d", ErrMalformed, msg.Ver)
	}
	switch msg.Type {
	case TypeChoice:
		if len(msg.Choices) == 0 {
			return ClientMessage{}, fmt.Errorf("%w: choice without choices", ErrMalformed)
		}
	case TypeForfeit, TypeHeartbeat, TypeResync:
	default:
		return ClientMessage{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, msg.Type)
	}
	return msg, nil
}

// Welcome is the first message of every session.
type Welcome struct {
	Ver       int    `json:"ver"`
	Type      string `json:"type"`
	BattleID  string `json:"battleId"`
	Side      string `json:"side,omitempty"`
	Spectator bool   `json:"spectator,omitempty"`
}

// RequestMessage carries the seat's current decision request.
type RequestMessage struct {
	Ver     int            `json:"ver"`
	Type    string         `json:"type"`
	Version uint64         `json:"version"`
	Request battle.Request `json:"request"`
}

// EventsMessage carries journal events in sequence order.
type EventsMessage struct {
	Ver    int             `json:"ver"`
	Type   string          `json:"type"`
	Events []journal.Event `json:"events"`
}

// ChoiceAck confirms a batch was accepted in full.
type ChoiceAck struct {
	Ver     int            `json:"ver"`
	Type    string         `json:"type"`
	Seq     uint64         `json:"seq,omitempty"`
	Request battle.Request `json:"request"`
}

// ChoiceReject reports a batch that was refused in whole or in part.
type ChoiceReject struct {
	Ver        int                       `json:"ver"`
	Type       string                    `json:"type"`
	Seq        uint64                    `json:"seq,omitempty"`
	Code       string                    `json:"code"`
	Reason     string                    `json:"reason"`
	Retry      bool                      `json:"retry,omitempty"`
	Rejections []*battle.ValidationError `json:"rejections,omitempty"`
}

// OutcomeMessage is the last message of a finished battle.
type OutcomeMessage struct {
	Ver     int             `json:"ver"`
	Type    string          `json:"type"`
	Outcome *battle.Outcome `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ErrorMessage reports a problem with the connection itself.
type ErrorMessage struct {
	Ver   int    `json:"ver"`
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Heartbeat echoes a client heartbeat with the server clock.
type Heartbeat struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
}

// Reject builds a choice reject from the rejections of a returned request.
func Reject(seq uint64, rejections []*battle.ValidationError) ChoiceReject {
	msg := ChoiceReject{Ver: Version, Type: TypeChoiceReject, Seq: seq, Code: RejectValidation, Rejections: rejections, Retry: true}
	if len(rejections) > 0 {
		msg.Code = string(rejections[0].Code)
		msg.Reason = rejections[0].Reason
	}
	return msg
}
