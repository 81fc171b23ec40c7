package battle_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"skirmish/catalog"
	"skirmish/internal/battle"
	"skirmish/internal/battle/mocks"
	"skirmish/internal/journal"
	battlelog "skirmish/logging/battle"
	"skirmish/logging/sinks"
)

func oneTurnBattle(t *testing.T, sink *sinks.MemorySink) *battle.Battle {
	t.Helper()
	format := battle.DefaultFormat()
	format.TurnLimit = 1
	format.DecisionTimeout = 20 * time.Millisecond
	format.MaxResubmits = 2
	teams := [2]battle.Team{
		{Name: "one", Roster: []battle.RosterEntry{{Species: "blastoise", Moves: []string{"tackle", "scald"}}}},
		{Name: "two", Roster: []battle.RosterEntry{{Species: "venusaur", Moves: []string{"tackle"}}}},
	}
	b, err := battle.New(format, catalog.MustBuiltin(), teams, "run", battle.Options{Publisher: sink})
	if err != nil {
		t.Fatalf("failed to build battle: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	return b
}

func TestRunFillsDefaultsOnTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := sinks.NewMemorySink()
	b := oneTurnBattle(t, sink)

	slow := mocks.NewMockDecisionSource(ctrl)
	slow.EXPECT().Decide(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ battle.Request) ([]battle.Choice, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	fast := mocks.NewMockDecisionSource(ctrl)
	fast.EXPECT().Decide(gomock.Any(), gomock.Any()).Return([]battle.Choice{{Kind: battle.ChoiceMove, Move: "tackle"}}, nil)

	out, err := b.Run(context.Background(), [2]battle.DecisionSource{slow, fast})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out.Result != battle.ResultDraw || out.Reason != battle.ReasonTurnLimit {
		t.Fatalf("expected a turn-limit draw, got %+v", out)
	}

	timeouts := sink.OfType(battlelog.EventDecisionTimeout)
	if len(timeouts) != 1 {
		t.Fatalf("expected one timeout event, got %d", len(timeouts))
	}
	payload, ok := timeouts[0].Payload.(battlelog.TimeoutPayload)
	if !ok || len(payload.Slots) != 1 || payload.Policy != string(battle.PolicyFirstLegal) {
		t.Fatalf("unexpected timeout payload %+v", timeouts[0].Payload)
	}

	var defaults, moves int
	for _, e := range b.Journal().Events() {
		switch {
		case e.Kind == journal.KindDefault && e.Value == string(battle.ChoiceMove):
			if e.Side != "p1" {
				t.Fatalf("unexpected default for %s", e.Side)
			}
			defaults++
		case e.Kind == journal.KindMove && e.Effect == "tackle":
			moves++
		}
	}
	if defaults != 1 {
		t.Fatalf("expected one default choice for p1, got %d", defaults)
	}
	if moves != 2 {
		t.Fatalf("expected both sides to use tackle, got %d", moves)
	}
}

type acknowledgingSource struct {
	*mocks.MockDecisionSource
	ack *mocks.MockAcknowledger
}

func (s acknowledgingSource) Acknowledge(req battle.Request) {
	s.ack.Acknowledge(req)
}

func TestRunFeedsRejectionsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	b := oneTurnBattle(t, sinks.NewMemorySink())

	decisions := mocks.NewMockDecisionSource(ctrl)
	acks := mocks.NewMockAcknowledger(ctrl)
	gomock.InOrder(
		decisions.EXPECT().Decide(gomock.Any(), gomock.Any()).Return([]battle.Choice{{Kind: battle.ChoiceMove, Move: "hydropump"}}, nil),
		acks.EXPECT().Acknowledge(gomock.Cond(func(req battle.Request) bool {
			return len(req.Rejections) == 1 && req.Rejections[0].Code == battle.CodeUnknownMove && !req.Wait
		})),
		decisions.EXPECT().Decide(gomock.Any(), gomock.Cond(func(req battle.Request) bool {
			return len(req.Rejections) == 1
		})).Return([]battle.Choice{{Kind: battle.ChoiceMove, Move: "scald"}}, nil),
		acks.EXPECT().Acknowledge(gomock.Cond(func(req battle.Request) bool {
			return req.Wait && len(req.Rejections) == 0
		})),
	)
	other := mocks.NewMockDecisionSource(ctrl)
	other.EXPECT().Decide(gomock.Any(), gomock.Any()).Return([]battle.Choice{{Kind: battle.ChoiceMove, Move: "tackle"}}, nil)

	if _, err := b.Run(context.Background(), [2]battle.DecisionSource{acknowledgingSource{decisions, acks}, other}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var scald bool
	for _, e := range b.Journal().Events() {
		if e.Kind == journal.KindMove && e.Effect == "scald" {
			scald = true
		}
		if e.Kind == journal.KindDefault && e.Value != string(battle.ChoiceTeam) {
			t.Fatalf("no default expected once the resubmission was accepted")
		}
	}
	if !scald {
		t.Fatalf("expected the resubmitted move to run")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	b := oneTurnBattle(t, sinks.NewMemorySink())
	ctx, cancel := context.WithCancel(context.Background())

	blocking := mocks.NewMockDecisionSource(ctrl)
	blocking.EXPECT().Decide(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ battle.Request) ([]battle.Choice, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}).AnyTimes()

	_, err := b.Run(ctx, [2]battle.DecisionSource{blocking, blocking})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if b.Ended() {
		t.Fatalf("cancelling the run must not end the battle")
	}
}
