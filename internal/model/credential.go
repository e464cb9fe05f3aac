package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Role is the privilege tier bound to a credential. The set is closed:
// admin satisfies every requirement, read satisfies only read.
type Role string

const (
	RoleRead  Role = "read"
	RoleAdmin Role = "admin"
)

// ParseRole converts a string into a Role, rejecting anything outside
// the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleRead:
		return RoleRead, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Satisfies reports whether a credential holding role r may perform an
// operation that requires the given role.
func (r Role) Satisfies(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == RoleRead && required == RoleRead
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleRead || r == RoleAdmin
}

// Credential is an issued access token record. The raw secret is never
// stored; only a SHA-256 hash and a short prefix for identification are
// persisted. Revocation is terminal: a revoked credential never becomes
// active again.
type Credential struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	KeyHash   string     `json:"-" db:"key_hash"` // SHA-256 hash, never expose
	KeyPrefix string     `json:"key_prefix" db:"key_prefix"`
	Role      Role       `json:"role" db:"role"`
	Revoked   bool       `json:"revoked" db:"revoked"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty" db:"last_used"`
}

const (
	// SecretPrefix is the fixed, recognizable prefix on every issued secret.
	SecretPrefix = "sk_live_"

	// secretBytes is the entropy of the random suffix. Hex-encoded this
	// yields 64 characters after the prefix.
	secretBytes = 32

	// DisplayPrefixLen is how much of the secret is retained for display
	// and audit. It covers the fixed prefix plus 12 hex characters, which
	// identifies a key without authenticating anything.
	DisplayPrefixLen = 20
)

// GenerateSecret returns a new high-entropy secret of the form
// "sk_live_" + 64 hex characters.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return SecretPrefix + hex.EncodeToString(buf), nil
}

// HashSecret returns the hex-encoded SHA-256 hash of a raw secret.
// Hashing is deterministic: the same secret always maps to the same hash.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// DisplayPrefix extracts the non-secret prefix stored alongside the hash.
// The caller must have validated the secret's shape first.
func DisplayPrefix(secret string) string {
	return secret[:DisplayPrefixLen]
}

// WellFormedSecret reports whether a presented token has the expected
// shape: the fixed prefix followed by exactly 64 hex characters. Tokens
// failing this check are rejected before any storage lookup.
func WellFormedSecret(secret string) bool {
	if len(secret) != len(SecretPrefix)+secretBytes*2 {
		return false
	}
	if !strings.HasPrefix(secret, SecretPrefix) {
		return false
	}
	_, err := hex.DecodeString(secret[len(SecretPrefix):])
	return err == nil
}
