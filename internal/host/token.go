package host

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"skirmish/internal/battle/state"
)

// ErrBadToken reports a seat token that fails verification.
var ErrBadToken = errors.New("host: invalid seat token")

const tokenIssuer = "skirmish"

// SeatClaims bind a token to one side of one battle.
type SeatClaims struct {
	Side string `json:"side"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HMAC-signed seat tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a signer. A zero ttl issues tokens without expiry.
func NewTokens(secret []byte, ttl time.Duration) (*Tokens, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("host: seat secret must be at least 16 bytes, got %d", len(secret))
	}
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for side of battleID.
func (t *Tokens) Issue(battleID string, side state.SideID) (string, error) {
	now := t.now()
	claims := SeatClaims{
		Side: side.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			Subject:  battleID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("host: sign seat token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the battle id and side.
func (t *Tokens) Verify(token string) (string, state.SideID, error) {
	claims := &SeatClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", state.NoSide, fmt.Errorf("%w: %w", ErrBadToken, err)
	}
	var side state.SideID
	switch claims.Side {
	case state.SideOne.String():
		side = state.SideOne
	case state.SideTwo.String():
		side = state.SideTwo
	default:
		return "", state.NoSide, fmt.Errorf("%w: side %q", ErrBadToken, claims.Side)
	}
	if claims.Subject == "" {
		return "", state.NoSide, fmt.Errorf("%w: missing battle", ErrBadToken)
	}
	return claims.Subject, side, nil
}
