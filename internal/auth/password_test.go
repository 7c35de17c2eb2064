package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordVerifier_Plaintext(t *testing.T) {
	v, err := NewPasswordVerifier("s3cret", "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := v.Verify("s3cret"); err != nil {
		t.Fatalf("verify correct: %v", err)
	}
	for _, bad := range []string{"", "s3cre", "s3cret ", "S3CRET"} {
		if err := v.Verify(bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("verify %q: err=%v want ErrInvalidCredentials", bad, err)
		}
	}
}

func TestPasswordVerifier_Hash(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	v, err := NewPasswordVerifier("ignored", string(h))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := v.Verify("hunter2"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := v.Verify("ignored"); err == nil {
		t.Fatalf("plaintext must be ignored when a hash is configured")
	}
}

func TestPasswordVerifier_Misconfigured(t *testing.T) {
	if _, err := NewPasswordVerifier("", ""); !errors.Is(err, ErrNoAdminPassword) {
		t.Fatalf("err=%v want ErrNoAdminPassword", err)
	}
	if _, err := NewPasswordVerifier("", "not-a-bcrypt-hash"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}

func TestPasswordVerifier_LengthLimit(t *testing.T) {
	if _, err := NewPasswordVerifier(strings.Repeat("a", MaxPasswordBytes+1), ""); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("err=%v want ErrPasswordTooLong", err)
	}

	full := strings.Repeat("k", MaxPasswordBytes)
	v, err := NewPasswordVerifier(full, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := v.Verify(full); err != nil {
		t.Fatalf("verify exact: %v", err)
	}
	if err := v.Verify(full + "suffix"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("input sharing the first %d bytes must not match: err=%v", MaxPasswordBytes, err)
	}
}
