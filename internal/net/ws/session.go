package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"skirmish/internal/battle"
	"skirmish/internal/host"
	"skirmish/internal/net/proto"
	"skirmish/internal/telemetry"
)

// session is one websocket connection following a room. seat is nil for
// spectators.
type session struct {
	conn         *websocket.Conn
	room         *host.Room
	seat         *host.Seat
	logger       telemetry.Logger
	writeTimeout time.Duration

	writeMu sync.Mutex
	// resync carries replay requests from the reader to the pump.
	resync chan uint64
}

func newSession(conn *websocket.Conn, room *host.Room, seat *host.Seat, logger telemetry.Logger, writeTimeout time.Duration) *session {
	return &session{
		conn:         conn,
		room:         room,
		seat:         seat,
		logger:       logger,
		writeTimeout: writeTimeout,
		resync:       make(chan uint64, 1),
	}
}

func (s *session) writeJSON(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer func() {
		cancel()
		if s.seat != nil {
			s.seat.Detach()
		}
		s.conn.Close()
	}()

	welcome := proto.Welcome{Ver: proto.Version, Type: proto.TypeWelcome, BattleID: s.room.ID(), Spectator: s.seat == nil}
	if s.seat != nil {
		welcome.Side = s.seat.Side().String()
	}
	if err := s.writeJSON(welcome); err != nil {
		return
	}

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		if err := s.pump(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Printf("stream to battle %s ended: %v", s.room.ID(), err)
		}
		// Unblock the reader once the stream is over.
		s.conn.Close()
	}()

	s.read(ctx)
	cancel()
	<-pumpDone
}

// pump streams journal events, seat requests and the final outcome.
func (s *session) pump(ctx context.Context) error {
	journal := s.room.Journal()
	var (
		sent        uint64
		seenVersion uint64
	)
	for {
		// Wait must be taken before Since so an append between them wakes us.
		appended := journal.Wait()
		if events := journal.Since(sent); len(events) > 0 {
			if err := s.writeJSON(proto.EventsMessage{Ver: proto.Version, Type: proto.TypeEvents, Events: events}); err != nil {
				return err
			}
			sent = events[len(events)-1].Seq
		}

		var changed <-chan struct{}
		if s.seat != nil {
			req, version, ch := s.seat.Request()
			changed = ch
			if version != seenVersion {
				seenVersion = version
				if err := s.writeJSON(proto.RequestMessage{Ver: proto.Version, Type: proto.TypeRequest, Version: version, Request: req}); err != nil {
					return err
				}
			}
		}

		select {
		case <-appended:
		case <-changed:
		case since := <-s.resync:
			sent = since
		case <-s.room.Done():
			if events := journal.Since(sent); len(events) > 0 {
				if err := s.writeJSON(proto.EventsMessage{Ver: proto.Version, Type: proto.TypeEvents, Events: events}); err != nil {
					return err
				}
			}
			msg := proto.OutcomeMessage{Ver: proto.Version, Type: proto.TypeOutcome}
			out, err := s.room.Outcome()
			msg.Outcome = out
			if err != nil {
				msg.Error = err.Error()
			}
			if err := s.writeJSON(msg); err != nil {
				return err
			}
			s.writeMu.Lock()
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "battle over"),
				time.Now().Add(s.writeTimeout))
			s.writeMu.Unlock()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *session) read(ctx context.Context) {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := proto.DecodeClient(payload)
		if err != nil {
			s.logger.Printf("discarding malformed message on battle %s: %v", s.room.ID(), err)
			_ = s.writeJSON(proto.ErrorMessage{Ver: proto.Version, Type: proto.TypeError, Code: proto.RejectInvalid, Error: err.Error()})
			continue
		}

		switch msg.Type {
		case proto.TypeChoice:
			if s.seat == nil {
				_ = s.writeJSON(proto.ChoiceReject{Ver: proto.Version, Type: proto.TypeChoiceReject, Seq: msg.Seq, Code: proto.RejectSpectator, Reason: "spectators cannot choose"})
				continue
			}
			go s.submit(ctx, msg.Seq, msg.Choices)
		case proto.TypeForfeit:
			if s.seat == nil {
				_ = s.writeJSON(proto.ErrorMessage{Ver: proto.Version, Type: proto.TypeError, Code: proto.RejectSpectator, Error: "spectators cannot forfeit"})
				continue
			}
			if err := s.room.Forfeit(s.seat.Side()); err != nil {
				_ = s.writeJSON(proto.ErrorMessage{Ver: proto.Version, Type: proto.TypeError, Code: proto.RejectClosed, Error: err.Error()})
			}
		case proto.TypeHeartbeat:
			_ = s.writeJSON(proto.Heartbeat{Ver: proto.Version, Type: proto.TypeHeartbeat, ServerTime: time.Now().UnixMilli(), ClientTime: msg.SentAt})
		case proto.TypeResync:
			select {
			case s.resync <- msg.Since:
			default:
				// A replay is already queued; replace it with the newer request.
				select {
				case <-s.resync:
				default:
				}
				s.resync <- msg.Since
			}
		}
	}
}

// submit hands a batch to the seat and reports the battle's verdict.
func (s *session) submit(ctx context.Context, seq uint64, choices []battle.Choice) {
	req, err := s.seat.Submit(ctx, choices)
	var reply any
	switch {
	case err == nil && len(req.Rejections) > 0:
		reply = proto.Reject(seq, req.Rejections)
	case err == nil:
		reply = proto.ChoiceAck{Ver: proto.Version, Type: proto.TypeChoiceAck, Seq: seq, Request: req}
	case errors.Is(err, host.ErrQueueFull):
		reply = proto.ChoiceReject{Ver: proto.Version, Type: proto.TypeChoiceReject, Seq: seq, Code: proto.RejectQueueFull, Reason: err.Error(), Retry: true}
	case errors.Is(err, host.ErrStale):
		reply = proto.ChoiceReject{Ver: proto.Version, Type: proto.TypeChoiceReject, Seq: seq, Code: proto.RejectStale, Reason: err.Error(), Retry: true}
	case errors.Is(err, host.ErrClosed):
		reply = proto.ChoiceReject{Ver: proto.Version, Type: proto.TypeChoiceReject, Seq: seq, Code: proto.RejectClosed, Reason: err.Error()}
	default:
		// Connection gone.
		return
	}
	if err := s.writeJSON(reply); err != nil {
		s.logger.Printf("failed to answer choice %d on battle %s: %v", seq, s.room.ID(), err)
	}
}
