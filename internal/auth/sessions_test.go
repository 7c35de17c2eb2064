package auth

import (
	"encoding/hex"
	"sync"
	"testing"
)

func TestSessions_IssueThenValid(t *testing.T) {
	s := NewSessions()

	tok, err := s.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(tok) != 2*tokenBytes {
		t.Fatalf("token len=%d want=%d", len(tok), 2*tokenBytes)
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("token not hex: %q", tok)
	}
	if !s.Valid(tok) {
		t.Fatalf("issued token rejected")
	}
	if _, ok := s.IssuedAt(tok); !ok {
		t.Fatalf("issued-at missing")
	}
}

func TestSessions_RejectsUnknown(t *testing.T) {
	s := NewSessions()
	if _, err := s.Issue(); err != nil {
		t.Fatalf("issue: %v", err)
	}

	for _, tok := range []string{"", "abc", "Bearer x", "0000000000000000000000000000000000000000"} {
		if s.Valid(tok) {
			t.Fatalf("never-issued token %q accepted", tok)
		}
	}
}

func TestSessions_ConcurrentIssue(t *testing.T) {
	s := NewSessions()

	const n = 50
	var wg sync.WaitGroup
	toks := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := s.Issue()
			if err != nil {
				t.Errorf("issue: %v", err)
				return
			}
			toks[i] = tok
		}(i)
	}
	wg.Wait()

	if s.Len() != n {
		t.Fatalf("len=%d want=%d", s.Len(), n)
	}
	for _, tok := range toks {
		if !s.Valid(tok) {
			t.Fatalf("token %q lost", tok)
		}
	}
}
