package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pong_server/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("token required")
	ErrInvalidToken = errors.New("invalid token")
)

// GuestPrefix marks identities generated for connections without a valid token.
const GuestPrefix = "guest-"

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator maps bearer tokens issued by the account service to usernames.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verify returns the username carried by a valid HS256 token.
func (a *Authenticator) Verify(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Username == "" {
		return "", ErrInvalidToken
	}
	return c.Username, nil
}

// Resolve never fails: a missing or invalid token yields a guest identity so
// casual play keeps working when credentials are lost mid-session. The guest
// is stable across a session's streams: a rejected token always maps to the
// same guest, and a tokenless client may present the guest id it was handed
// on its first stream.
func (a *Authenticator) Resolve(token, guest string) string {
	name, err := a.Verify(token)
	if err == nil {
		return name
	}
	if !errors.Is(err, ErrMissingToken) {
		g := guestFor(token)
		logger.Warn("token rejected, using guest identity", "guest", g, "error", err)
		return g
	}
	if IsGuest(guest) && validGuest(guest) {
		return guest
	}
	return GuestIdentity()
}

// Issue signs a token for username. Used by tests and local tooling; real
// tokens come from the account service.
func (a *Authenticator) Issue(username string, ttl time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return t.SignedString(a.secret)
}

// guestNamespace scopes the name-based uuids derived from rejected tokens.
var guestNamespace = uuid.MustParse("6f1c2b0e-3d5a-4c8e-9b7f-2a4d6e8f0c11")

func GuestIdentity() string {
	return guestName(uuid.New())
}

func guestFor(token string) string {
	return guestName(uuid.NewSHA1(guestNamespace, []byte(token)))
}

func guestName(id uuid.UUID) string {
	return GuestPrefix + strings.ReplaceAll(id.String(), "-", "")[:8]
}

func IsGuest(identity string) bool {
	return strings.HasPrefix(identity, GuestPrefix)
}

// validGuest accepts only the shape GuestIdentity produces.
func validGuest(identity string) bool {
	hex := strings.TrimPrefix(identity, GuestPrefix)
	if len(hex) != 8 {
		return false
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
