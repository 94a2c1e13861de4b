package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	dErrors "ingestgate/pkg/domain-errors"
)

// ErrMismatch is returned by Verify when the secret does not match.
var ErrMismatch = errors.New("secret mismatch")

// Generate creates a cryptographically secure random secret.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateKeyID creates the public half of an API key.
func GenerateKeyID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate key id: %w", err)
	}
	return "pk_" + hex.EncodeToString(buf), nil
}

// Hash creates a bcrypt hash of secret at the default cost.
func Hash(secret string) (string, error) {
	return HashWithCost(secret, bcrypt.DefaultCost)
}

func HashWithCost(secret string, cost int) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext secret against a bcrypt hash.
func Verify(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("could not verify secret: %w", err)
	}
	return nil
}

var dummy = sync.OnceValue(func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("ingestgate-unknown-key"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("secrets: dummy hash: %v", err))
	}
	return string(h)
})

// DummyHash is a default-cost hash that matches no issued secret. Verify
// against it when a key id is unknown so the caller spends the same time as
// for a wrong secret.
func DummyHash() string {
	return dummy()
}
