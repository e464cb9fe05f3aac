package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/store"
)

var (
	// ErrUnauthenticated covers every credential failure: missing,
	// malformed, unknown, and revoked tokens all surface this same
	// error so callers cannot tell them apart. Internal logs carry the
	// specific reason.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the credential is valid but its role does not
	// satisfy the operation's requirement.
	ErrForbidden = errors.New("forbidden")
)

// AuthContext identifies the authenticated caller for the rest of the
// request.
type AuthContext struct {
	CredentialID string
	Role         model.Role
}

// Authenticator verifies presented bearer tokens against the credential
// store.
type Authenticator struct {
	store  *store.Store
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator over the given store.
func NewAuthenticator(st *store.Store, logger *slog.Logger) *Authenticator {
	return &Authenticator{store: st, logger: logger}
}

// Verify checks a raw token and returns the caller's auth context.
// Malformed tokens fail before any storage lookup. Unknown and revoked
// tokens take the same code path after the hash lookup, and the stored
// hash is compared in constant time, so neither the error nor the
// timing reveals which case occurred. On success the last-used marker
// is updated asynchronously; the verify call never waits on it.
func (a *Authenticator) Verify(ctx context.Context, rawToken string) (*AuthContext, error) {
	if rawToken == "" || !model.WellFormedSecret(rawToken) {
		a.logger.Debug("auth rejected", "reason", "malformed token")
		return nil, ErrUnauthenticated
	}

	hash := model.HashSecret(rawToken)
	cred, err := a.store.LookupCredentialByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Debug("auth rejected", "reason", "unknown token", "prefix", rawToken[:model.DisplayPrefixLen])
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("credential lookup: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(cred.KeyHash), []byte(hash)) != 1 {
		a.logger.Debug("auth rejected", "reason", "hash mismatch", "credential", cred.ID)
		return nil, ErrUnauthenticated
	}
	if cred.Revoked {
		a.logger.Debug("auth rejected", "reason", "revoked", "credential", cred.ID)
		return nil, ErrUnauthenticated
	}

	// Last-used update is fire and forget.
	go func(id string) {
		if err := a.store.TouchCredential(context.Background(), id); err != nil {
			a.logger.Debug("touch credential failed", "credential", id, "error", err)
		}
	}(cred.ID)

	return &AuthContext{CredentialID: cred.ID, Role: cred.Role}, nil
}

// Authorize enforces the role hierarchy for a required privilege level.
// It is pure and touches no storage: admin satisfies anything, read
// satisfies only read.
func Authorize(ac *AuthContext, required model.Role) error {
	if ac == nil || !ac.Role.Satisfies(required) {
		return ErrForbidden
	}
	return nil
}
