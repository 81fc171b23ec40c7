package main

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"skirmish/catalog"
	"skirmish/internal/ai"
	"skirmish/internal/battle"
	"skirmish/internal/host"
	servernet "skirmish/internal/net"
	"skirmish/internal/net/ws"
)

func TestWSEndpoint(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":        "ws://localhost:8080/ws?token=abc",
		"https://battles.example/api/": "wss://battles.example/api/ws?token=abc",
	}
	for server, want := range cases {
		got, err := wsEndpoint(server, "abc")
		if err != nil {
			t.Fatalf("%s: %v", server, err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestBotFinishesBattleAgainstServer(t *testing.T) {
	tokens, err := host.NewTokens([]byte("0123456789abcdef0123456789abcdef"), time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	format := battle.DefaultFormat()
	format.TurnLimit = 40
	format.DecisionTimeout = 5 * time.Second
	dex := catalog.MustBuiltin()
	manager, err := host.NewManager(host.Config{
		Dex:             dex,
		Formats:         func(string) (battle.Format, bool) { return format, true },
		Tokens:          tokens,
		DisconnectGrace: -1,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = manager.Close(ctx)
	}()
	srv := httptest.NewServer(servernet.NewHTTPHandler(manager, servernet.HTTPHandlerConfig{
		WS: ws.NewHandler(manager, ws.HandlerConfig{}),
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	token, err := createBattle(ctx, srv.URL, host.Spec{
		Seed: "bot",
		Teams: [2]battle.Team{
			{Name: "bot", Roster: []battle.RosterEntry{{Species: "pikachu", Moves: []string{"thunderbolt", "quickattack", "protect"}}}},
			{Name: "cpu", Roster: []battle.RosterEntry{{Species: "gyarados", Moves: []string{"tackle", "crunch"}}}},
		},
		Opponents: [2]ai.Policy{"", ai.PolicyFirstLegal},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	out, err := play(ctx, srv.URL, token, ai.MustNew(ai.Config{Policy: ai.PolicyGreedy, Dex: dex}), logger)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if out == nil || out.Result == battle.ResultInternalError {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
