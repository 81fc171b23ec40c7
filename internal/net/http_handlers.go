// Package net exposes the battle host over HTTP.
package net

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"skirmish/catalog"
	"skirmish/internal/battle"
	"skirmish/internal/host"
	"skirmish/internal/journal"
	"skirmish/internal/telemetry"
)

// maxSpecBytes bounds a battle creation payload.
const maxSpecBytes = 1 << 20

// Catalog lists the ids a client may put on a team.
type Catalog interface {
	SpeciesIDs() []string
	MoveIDs() []string
}

type HTTPHandlerConfig struct {
	Logger   telemetry.Logger
	Counters *telemetry.Counters
	Catalog  Catalog
	// WS serves /ws when set.
	WS nethttp.Handler
	// Extend registers extra routes, such as the profiler.
	Extend func(mux *nethttp.ServeMux)
}

func NewHTTPHandler(manager *host.Manager, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("GET /health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var counters map[string]uint64
		if cfg.Counters != nil {
			counters = cfg.Counters.Snapshot()
		}
		writeJSON(w, nethttp.StatusOK, struct {
			Status     string            `json:"status"`
			ServerTime int64             `json:"serverTime"`
			Battles    int               `json:"battles"`
			Telemetry  map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Battles:    manager.Active(),
			Telemetry:  counters,
		})
	})

	mux.HandleFunc("POST /battles", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		defer r.Body.Close()
		var spec host.Spec
		decoder := json.NewDecoder(io.LimitReader(r.Body, maxSpecBytes))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&spec); err != nil {
			httpError(w, "invalid payload", nethttp.StatusBadRequest)
			return
		}
		room, tickets, err := manager.Create(r.Context(), spec)
		if err != nil {
			status := createStatus(err)
			if status == nethttp.StatusInternalServerError {
				logger.Printf("create battle failed: %v", err)
			}
			httpError(w, err.Error(), status)
			return
		}
		writeJSON(w, nethttp.StatusCreated, struct {
			BattleID string        `json:"battleId"`
			Tickets  []host.Ticket `json:"tickets"`
		}{BattleID: room.ID(), Tickets: tickets})
	})

	mux.HandleFunc("GET /battles", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, manager.Rooms())
	})

	mux.HandleFunc("GET /battles/{id}", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		room, ok := lookup(w, manager, r.PathValue("id"))
		if !ok {
			return
		}
		out, err := room.Outcome()
		payload := struct {
			host.Summary
			Outcome *battle.Outcome `json:"outcome,omitempty"`
			Error   string          `json:"error,omitempty"`
		}{Summary: room.Summary(), Outcome: out}
		if err != nil {
			payload.Error = err.Error()
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("GET /battles/{id}/log", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		room, ok := lookup(w, manager, r.PathValue("id"))
		if !ok {
			return
		}
		events := room.Journal().Events()
		if r.URL.Query().Get("format") == "protocol" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			out := bufio.NewWriter(w)
			for _, e := range events {
				out.WriteString(e.Line())
				out.WriteByte('\n')
			}
			if err := out.Flush(); err != nil {
				logger.Printf("failed to stream log for %s: %v", room.ID(), err)
			}
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		if err := journal.EncodeEvents(w, events); err != nil {
			logger.Printf("failed to stream log for %s: %v", room.ID(), err)
		}
	})

	if cfg.Catalog != nil {
		mux.HandleFunc("GET /catalog/species", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			writeJSON(w, nethttp.StatusOK, cfg.Catalog.SpeciesIDs())
		})
		mux.HandleFunc("GET /catalog/moves", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			writeJSON(w, nethttp.StatusOK, cfg.Catalog.MoveIDs())
		})
	}

	if cfg.WS != nil {
		mux.Handle("/ws", cfg.WS)
	}
	if cfg.Extend != nil {
		cfg.Extend(mux)
	}

	return otelhttp.NewHandler(mux, "skirmish",
		otelhttp.WithSpanNameFormatter(func(_ string, r *nethttp.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
	)
}

func createStatus(err error) int {
	switch {
	case errors.Is(err, host.ErrCapacity):
		return nethttp.StatusServiceUnavailable
	case errors.Is(err, host.ErrShutdown):
		return nethttp.StatusServiceUnavailable
	case errors.Is(err, host.ErrUnknownFormat):
		return nethttp.StatusBadRequest
	case errors.Is(err, battle.ErrInvalidTeam),
		errors.Is(err, battle.ErrInvalidFormat),
		errors.Is(err, catalog.ErrUnknownSpecies),
		errors.Is(err, catalog.ErrUnknownMove),
		errors.Is(err, catalog.ErrUnknownAbility),
		errors.Is(err, catalog.ErrUnknownItem),
		errors.Is(err, catalog.ErrUnknownNature),
		errors.Is(err, catalog.ErrUnknownType):
		return nethttp.StatusUnprocessableEntity
	default:
		return nethttp.StatusInternalServerError
	}
}

func lookup(w nethttp.ResponseWriter, manager *host.Manager, id string) (*host.Room, bool) {
	room, err := manager.Room(id)
	if err != nil {
		if errors.Is(err, host.ErrUnknownBattle) {
			httpError(w, "unknown battle", nethttp.StatusNotFound)
		} else {
			httpError(w, err.Error(), nethttp.StatusInternalServerError)
		}
		return nil, false
	}
	return room, true
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
