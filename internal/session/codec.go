package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidSessionToken = errors.New("invalid session token")

// Codec signs session ids into the session cookie value so a client cannot
// guess or forge another user's session id.
type Codec struct {
	key []byte
	now func() time.Time
}

func NewCodec(key []byte) *Codec {
	return &Codec{key: key, now: time.Now}
}

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (c *Codec) Encode(sessionID string, expiresAt time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := t.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry and returns the session id.
func (c *Codec) Decode(token string) (string, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidSessionToken, err)
	}
	if cl.SessionID == "" {
		return "", errInvalidSessionToken
	}
	return cl.SessionID, nil
}

func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}
