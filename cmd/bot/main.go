// Command bot plays one side of a battle over the websocket API with a
// computer policy.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"gopkg.in/yaml.v3"

	"skirmish/catalog"
	"skirmish/internal/ai"
	"skirmish/internal/battle"
	"skirmish/internal/host"
	"skirmish/internal/net/proto"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	var (
		server   string
		token    string
		teams    string
		policy   string
		opponent string
		seed     string
	)
	flag.StringVar(&server, "server", "http://localhost:8080", "server base URL")
	flag.StringVar(&token, "token", "", "seat token; empty creates a battle")
	flag.StringVar(&teams, "teams", "", "YAML file with two teams, used when creating a battle")
	flag.StringVar(&policy, "policy", string(ai.PolicyGreedy), "policy the bot plays")
	flag.StringVar(&opponent, "opponent", string(ai.PolicyRandom), "server-side policy for p2 when creating a battle")
	flag.StringVar(&seed, "seed", "", "battle seed when creating a battle")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if token == "" {
		spec, err := loadSpec(teams, seed, ai.Policy(opponent))
		if err != nil {
			slog.Error("cannot create battle", "err", err)
			os.Exit(1)
		}
		token, err = createBattle(ctx, server, spec)
		if err != nil {
			slog.Error("cannot create battle", "err", err)
			os.Exit(1)
		}
	}

	agent, err := ai.New(ai.Config{Policy: ai.Policy(policy), Seed: seed, Dex: catalog.MustBuiltin()})
	if err != nil {
		slog.Error("invalid policy", "policy", policy, "err", err)
		os.Exit(1)
	}
	out, err := play(ctx, server, token, agent, logger)
	if err != nil {
		slog.Error("battle ended abnormally", "err", err)
		os.Exit(1)
	}
	slog.Info("battle over", "result", out.Result, "winner", out.WinnerName, "reason", out.Reason, "turns", out.Turns, "checksum", out.Checksum)
}

func loadSpec(path, seed string, opponent ai.Policy) (host.Spec, error) {
	if path == "" {
		return host.Spec{}, errors.New("-teams is required without -token")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return host.Spec{}, err
	}
	var teams []battle.Team
	if err := yaml.Unmarshal(data, &teams); err != nil {
		return host.Spec{}, fmt.Errorf("decode teams: %w", err)
	}
	if len(teams) != 2 {
		return host.Spec{}, fmt.Errorf("expected two teams, got %d", len(teams))
	}
	return host.Spec{Seed: seed, Teams: [2]battle.Team{teams[0], teams[1]}, Opponents: [2]ai.Policy{"", opponent}}, nil
}

// createBattle registers a battle and returns the p1 seat token.
func createBattle(ctx context.Context, server string, spec host.Spec) (string, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(server, "/")+"/battles", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		var msg bytes.Buffer
		msg.ReadFrom(resp.Body)
		return "", fmt.Errorf("create: %s: %s", resp.Status, strings.TrimSpace(msg.String()))
	}
	var created struct {
		BattleID string        `json:"battleId"`
		Tickets  []host.Ticket `json:"tickets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	if len(created.Tickets) == 0 {
		return "", errors.New("create: no seat ticket returned")
	}
	slog.Info("battle created", "battleID", created.BattleID)
	return created.Tickets[0].Token, nil
}

func wsEndpoint(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

type envelope struct {
	Type string `json:"type"`
}

// player answers fresh requests one batch at a time; a request that arrives
// while a batch is outstanding is held until the verdict comes back.
// Rejections are answered from the reject message, so republished requests
// carrying them are ignored.
type player struct {
	agent    battle.DecisionSource
	seq      uint64
	waiting  bool
	latest   battle.Request
	version  uint64
	answered uint64
}

func (p *player) next(ctx context.Context) (*proto.ClientMessage, error) {
	if p.waiting || p.latest.Wait || len(p.latest.Rejections) > 0 || p.version <= p.answered {
		return nil, nil
	}
	p.answered = p.version
	return p.answer(ctx, p.latest)
}

func (p *player) rejected(ctx context.Context, msg proto.ChoiceReject) (*proto.ClientMessage, error) {
	p.waiting = false
	if len(msg.Rejections) == 0 {
		return nil, nil
	}
	req := p.latest
	req.Rejections = msg.Rejections
	return p.answer(ctx, req)
}

func (p *player) answer(ctx context.Context, req battle.Request) (*proto.ClientMessage, error) {
	choices, err := p.agent.Decide(ctx, req)
	if err != nil || len(choices) == 0 {
		return nil, err
	}
	p.seq++
	p.waiting = true
	return &proto.ClientMessage{Ver: proto.Version, Type: proto.TypeChoice, Seq: p.seq, Choices: choices, SentAt: time.Now().UnixMilli()}, nil
}

func play(ctx context.Context, server, token string, agent battle.DecisionSource, logger *slog.Logger) (*battle.Outcome, error) {
	endpoint, err := wsEndpoint(server, token)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.Dial(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 22)

	p := &player{agent: agent}
	send := func(msg *proto.ClientMessage) error {
		if msg == nil {
			return nil
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		return nil
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warn("discarding malformed message", "err", err)
			continue
		}
		switch env.Type {
		case proto.TypeWelcome:
			var msg proto.Welcome
			if err := json.Unmarshal(data, &msg); err == nil {
				logger = logger.With("battleID", msg.BattleID, "side", msg.Side)
				logger.Info("connected")
			}
		case proto.TypeRequest:
			var msg proto.RequestMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return nil, fmt.Errorf("request: %w", err)
			}
			if msg.Version > p.version {
				p.latest, p.version = msg.Request, msg.Version
			}
		case proto.TypeChoiceAck:
			p.waiting = false
		case proto.TypeChoiceReject:
			var msg proto.ChoiceReject
			if err := json.Unmarshal(data, &msg); err != nil {
				return nil, fmt.Errorf("reject: %w", err)
			}
			logger.Warn("choice rejected", "seq", msg.Seq, "code", msg.Code, "reason", msg.Reason)
			retry, err := p.rejected(ctx, msg)
			if err != nil {
				return nil, err
			}
			if err := send(retry); err != nil {
				return nil, err
			}
		case proto.TypeEvents:
			var msg proto.EventsMessage
			if err := json.Unmarshal(data, &msg); err == nil {
				for _, e := range msg.Events {
					logger.Debug("event", "line", e.Line())
				}
			}
		case proto.TypeOutcome:
			var msg proto.OutcomeMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return nil, fmt.Errorf("outcome: %w", err)
			}
			conn.Close(websocket.StatusNormalClosure, "done")
			if msg.Error != "" {
				return msg.Outcome, errors.New(msg.Error)
			}
			return msg.Outcome, nil
		case proto.TypeError:
			var msg proto.ErrorMessage
			if err := json.Unmarshal(data, &msg); err == nil {
				logger.Warn("server error", "code", msg.Code, "err", msg.Error)
			}
		}

		msg, err := p.next(ctx)
		if err != nil {
			return nil, err
		}
		if err := send(msg); err != nil {
			return nil, err
		}
	}
}
