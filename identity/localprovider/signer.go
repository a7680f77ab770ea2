package localprovider

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims are carried in local session tokens.
type sessionClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

const (
	purposeRecovery     = "recovery"
	purposeConfirmEmail = "confirm_email"
)

// hmacSigner signs and verifies session tokens with HMAC-SHA256.
type hmacSigner struct {
	secret []byte
	now    func() time.Time
}

func (h *hmacSigner) Sign(claims sessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signedToken, nil
}

func (h *hmacSigner) Parse(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(h.now),
		jwt.WithExpirationRequired(),
	)
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

// revokedSessions remembers invalidated session IDs until the token would have expired anyway.
type revokedSessions struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

func newRevokedSessions() *revokedSessions {
	return &revokedSessions{revoked: make(map[string]time.Time)}
}

func (c *revokedSessions) Add(id string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[id] = exp
}

func (c *revokedSessions) IsRevoked(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[id]
	return exists
}

// Cleanup removes entries whose tokens have expired.
func (c *revokedSessions) Cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, id)
		}
	}
}
