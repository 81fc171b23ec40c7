// Command selfplay runs computer-versus-computer battles and prints their
// outcomes and log checksums.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"skirmish/catalog"
	"skirmish/internal/ai"
	"skirmish/internal/battle"
)

//go:embed teams.yaml
var defaultTeams []byte

type options struct {
	battles  int
	seed     string
	policies [2]ai.Policy
	format   string
	turns    int
	parallel int
	verify   bool
}

type result struct {
	seed    string
	outcome *battle.Outcome
	err     error
}

func main() {
	var (
		opts      options
		teamsPath string
		p1, p2    string
	)
	flag.IntVar(&opts.battles, "n", 20, "number of battles")
	flag.StringVar(&opts.seed, "seed", "selfplay", "root seed; battle i uses <seed>-<i>")
	flag.StringVar(&p1, "p1", string(ai.PolicyRandom), "policy for p1")
	flag.StringVar(&p2, "p2", string(ai.PolicyGreedy), "policy for p2")
	flag.StringVar(&opts.format, "format", "singles", "singles or doubles")
	flag.IntVar(&opts.turns, "turns", 300, "turn limit")
	flag.IntVar(&opts.parallel, "parallel", runtime.GOMAXPROCS(0), "battles run at once")
	flag.BoolVar(&opts.verify, "verify", false, "replay every battle and compare checksums")
	flag.StringVar(&teamsPath, "teams", "", "YAML file with two teams (default: built-in)")
	flag.Parse()
	opts.policies = [2]ai.Policy{ai.Policy(p1), ai.Policy(p2)}

	raw := defaultTeams
	if teamsPath != "" {
		data, err := os.ReadFile(teamsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read teams: %v\n", err)
			os.Exit(1)
		}
		raw = data
	}
	teams, err := decodeTeams(bytes.NewReader(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Stdout, catalog.MustBuiltin(), teams, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func decodeTeams(r io.Reader) ([2]battle.Team, error) {
	var teams []battle.Team
	if err := yaml.NewDecoder(r).Decode(&teams); err != nil {
		return [2]battle.Team{}, fmt.Errorf("decode teams: %w", err)
	}
	if len(teams) != 2 {
		return [2]battle.Team{}, fmt.Errorf("expected two teams, got %d", len(teams))
	}
	return [2]battle.Team{teams[0], teams[1]}, nil
}

func formatFor(opts options) (battle.Format, error) {
	var f battle.Format
	switch opts.format {
	case "singles":
		f = battle.DefaultFormat()
	case "doubles":
		f = battle.DoublesFormat()
	default:
		return battle.Format{}, fmt.Errorf("unknown format %q", opts.format)
	}
	f.TurnLimit = opts.turns
	// Computer sides answer immediately.
	f.DecisionTimeout = 0
	return f, nil
}

func play(ctx context.Context, dex catalog.Dex, format battle.Format, teams [2]battle.Team, seed string, policies [2]ai.Policy) (*battle.Outcome, error) {
	b, err := battle.New(format, dex, teams, seed, battle.Options{})
	if err != nil {
		return nil, err
	}
	var sources [2]battle.DecisionSource
	for i, policy := range policies {
		agent, err := ai.New(ai.Config{Policy: policy, Seed: fmt.Sprintf("%s/p%d", seed, i+1), Dex: dex})
		if err != nil {
			return nil, err
		}
		sources[i] = agent
	}
	return b.Run(ctx, sources)
}

func run(ctx context.Context, w io.Writer, dex catalog.Dex, teams [2]battle.Team, opts options) error {
	format, err := formatFor(opts)
	if err != nil {
		return err
	}
	results := make([]result, opts.battles)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.parallel, 1))
	for i := range results {
		seed := fmt.Sprintf("%s-%d", opts.seed, i)
		g.Go(func() error {
			out, err := play(gctx, dex, format, teams, seed, opts.policies)
			if err == nil && opts.verify {
				again, rerr := play(gctx, dex, format, teams, seed, opts.policies)
				switch {
				case rerr != nil:
					err = rerr
				case again.Checksum != out.Checksum:
					err = fmt.Errorf("replay diverged: %s != %s", again.Checksum, out.Checksum)
				}
			}
			results[i] = result{seed: seed, outcome: out, err: err}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	wins := map[string]int{}
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(w, "%s\terror\t%v\n", r.seed, r.err)
			continue
		}
		out := r.outcome
		key := string(out.Result)
		if out.WinnerName != "" {
			key = out.WinnerName
		}
		wins[key]++
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\tturns=%d\t%s\n", r.seed, out.Result, out.WinnerName, out.Reason, out.Turns, out.Checksum)
	}
	fmt.Fprintf(w, "p1=%d p2=%d draw=%d error=%d\n", wins["p1"], wins["p2"], wins[string(battle.ResultDraw)], failed+wins[string(battle.ResultInternalError)])
	if failed > 0 {
		return fmt.Errorf("%d battles failed", failed)
	}
	return nil
}
