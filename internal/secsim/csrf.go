package secsim

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
)

// Tokens issues and verifies per-session CSRF tokens: 32 random bytes, hex
// encoded, compared in constant time. One token is live at a time; issuing a
// new one invalidates the previous.
type Tokens struct {
	mu      sync.Mutex
	current string
}

// NewTokens returns an empty token issuer.
func NewTokens() *Tokens {
	return &Tokens{}
}

// Issue generates and remembers a fresh token.
func (t *Tokens) Issue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("secsim: token entropy: %w", err)
	}
	tok := hex.EncodeToString(buf)

	t.mu.Lock()
	t.current = tok
	t.mu.Unlock()
	return tok, nil
}

// Valid reports whether token matches the currently issued one.
func (t *Tokens) Valid(token string) bool {
	t.mu.Lock()
	current := t.current
	t.mu.Unlock()

	if current == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(token)) == 1
}
