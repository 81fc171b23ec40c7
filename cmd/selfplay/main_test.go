package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"skirmish/catalog"
	"skirmish/internal/ai"
)

func TestDefaultTeamsDecode(t *testing.T) {
	teams, err := decodeTeams(bytes.NewReader(defaultTeams))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if teams[0].Name != "red" || len(teams[1].Roster) != 3 {
		t.Fatalf("unexpected teams %+v", teams)
	}
	if _, err := decodeTeams(strings.NewReader("- name: solo\n")); err == nil {
		t.Fatalf("expected a single team to be refused")
	}
}

func TestRunVerifiesReplays(t *testing.T) {
	teams, err := decodeTeams(bytes.NewReader(defaultTeams))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, format := range []string{"singles", "doubles"} {
		t.Run(format, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), &out, catalog.MustBuiltin(), teams, options{
				battles:  4,
				seed:     "test",
				policies: [2]ai.Policy{ai.PolicyRandom, ai.PolicyGreedy},
				format:   format,
				turns:    150,
				parallel: 2,
				verify:   true,
			})
			if err != nil {
				t.Fatalf("run: %v\n%s", err, out.String())
			}
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			if len(lines) != 5 || !strings.HasPrefix(lines[4], "p1=") {
				t.Fatalf("unexpected report:\n%s", out.String())
			}
			if !strings.HasSuffix(lines[4], "error=0") {
				t.Fatalf("unexpected failures:\n%s", out.String())
			}
		})
	}
}
