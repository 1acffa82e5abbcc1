package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}
	if err := VerifyPassword(hash, "s3cret-pw"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(hash, "wrong-pw"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatal("expected different hashes for the same password")
	}
	if err := VerifyPassword(second, "same-password"); err != nil {
		t.Fatalf("second hash failed verification: %v", err)
	}
}

func TestVerifyAgainstOtherPasswordsHash(t *testing.T) {
	other, err := HashPassword("other-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := VerifyPassword(other, "s3cret-pw"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"plain":        "not-a-hash",
		"wrong scheme": "$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"bad base64":   "$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
		"bad version":  "$argon2id$v=12$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	}
	for name, encoded := range cases {
		err := VerifyPassword(encoded, "whatever")
		if !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%s: expected ErrMalformedHash, got %v", name, err)
		}
		if errors.Is(err, ErrPasswordMismatch) {
			t.Fatalf("%s: malformed hash must not be reported as mismatch", name)
		}
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestVerifySurvivesParameterChange(t *testing.T) {
	// A hash produced under older cost parameters must still verify, because
	// the encoded form self-describes them.
	salt := []byte("0123456789abcdef")
	legacy := argon2.IDKey([]byte("pw"), salt, 2, 32*1024, 1, 32)
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 32*1024, 2, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(legacy),
	)
	if err := VerifyPassword(encoded, "pw"); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if err := VerifyPassword(encoded, "other"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}
