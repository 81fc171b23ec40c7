package host

import (
	"errors"
	"testing"
	"time"

	"skirmish/internal/battle/state"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestTokensRoundTrip(t *testing.T) {
	tokens, err := NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	signed, err := tokens.Issue("battle-1", state.SideTwo)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, side, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != "battle-1" || side != state.SideTwo {
		t.Fatalf("expected battle-1/p2, got %s/%s", id, side)
	}
}

func TestTokensRejectForeignAndExpired(t *testing.T) {
	tokens, _ := NewTokens(testSecret, time.Minute)
	other, _ := NewTokens([]byte("ffffffffffffffffffffffffffffffff"), time.Minute)
	signed, _ := other.Issue("battle-1", state.SideOne)
	if _, _, err := tokens.Verify(signed); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for foreign signature, got %v", err)
	}

	signed, _ = tokens.Issue("battle-1", state.SideOne)
	tokens.now = func() time.Time { return time.Now().Add(time.Hour) }
	if _, _, err := tokens.Verify(signed); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for expired token, got %v", err)
	}
	if _, err := NewTokens([]byte("short"), 0); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}
