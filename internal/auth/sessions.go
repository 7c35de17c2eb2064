package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

const tokenBytes = 20

// Sessions is the set of admin bearer tokens issued since process start.
// Tokens never expire and are not tied to a user.
type Sessions struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	now    func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Issue creates a random hex token and records it as valid.
func (s *Sessions) Issue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	tok := hex.EncodeToString(buf)

	s.mu.Lock()
	s.tokens[tok] = s.now().UTC()
	s.mu.Unlock()

	return tok, nil
}

func (s *Sessions) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.RLock()
	_, ok := s.tokens[token]
	s.mu.RUnlock()
	return ok
}

// IssuedAt reports when token was handed out.
func (s *Sessions) IssuedAt(token string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[token]
	return t, ok
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
