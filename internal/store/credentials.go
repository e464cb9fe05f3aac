package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/guildsight/guildsight/internal/model"
)

const insertCredentialQuery = `INSERT INTO credentials
	(id, name, key_hash, key_prefix, role, revoked, created_at)
	VALUES
	(:id, :name, :key_hash, :key_prefix, :role, :revoked, :created_at)`

// IssueCredential generates a new secret, persists its hash and display
// prefix under a fresh id, and returns the record together with the
// plaintext secret. The plaintext is returned exactly once; no read path
// can recover it afterwards. An id or hash collision returns ErrConflict
// rather than overwriting; the caller retries with a new secret.
func (s *Store) IssueCredential(ctx context.Context, name string, role model.Role) (*model.Credential, string, error) {
	cred, secret, err := newCredential(name, role)
	if err != nil {
		return nil, "", err
	}

	if _, err := sqlx.NamedExecContext(ctx, s.db, insertCredentialQuery, cred); err != nil {
		if isUniqueViolation(err) {
			return nil, "", ErrConflict
		}
		return nil, "", fmt.Errorf("insert credential: %w", err)
	}
	return cred, secret, nil
}

// newCredential builds an unsaved credential record and its plaintext secret.
func newCredential(name string, role model.Role) (*model.Credential, string, error) {
	if !role.Valid() {
		return nil, "", fmt.Errorf("invalid role %q", role)
	}

	secret, err := model.GenerateSecret()
	if err != nil {
		return nil, "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, "", fmt.Errorf("generate credential id: %w", err)
	}

	return &model.Credential{
		ID:        id.String(),
		Name:      name,
		KeyHash:   model.HashSecret(secret),
		KeyPrefix: model.DisplayPrefix(secret),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}, secret, nil
}

// LookupCredentialByHash finds a credential by the SHA-256 hash of its
// secret. Returns ErrNotFound when no record matches.
func (s *Store) LookupCredentialByHash(ctx context.Context, hash string) (*model.Credential, error) {
	var cred model.Credential
	if err := s.db.GetContext(ctx, &cred, "SELECT * FROM credentials WHERE key_hash = ?", hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup credential by hash: %w", err)
	}
	return &cred, nil
}

// GetCredential returns a credential by id, ErrNotFound if absent.
func (s *Store) GetCredential(ctx context.Context, id string) (*model.Credential, error) {
	var cred model.Credential
	if err := s.db.GetContext(ctx, &cred, "SELECT * FROM credentials WHERE id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &cred, nil
}

// RevokeCredential marks a credential revoked and returns the record.
// Revocation is terminal and idempotent: revoking an already-revoked
// credential succeeds and returns it unchanged. Records are never
// deleted, so the audit trail survives revocation.
func (s *Store) RevokeCredential(ctx context.Context, id string) (*model.Credential, error) {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET revoked = 1 WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("revoke credential: %w", err)
	}
	// Zero rows updated means either an unknown id or an already-revoked
	// record; the follow-up read distinguishes the two.
	return s.GetCredential(ctx, id)
}

// ListCredentials returns all credentials newest first, as a secret-free
// projection: neither the plaintext nor the stored hash is selected.
func (s *Store) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	var creds []model.Credential
	const q = `SELECT id, name, key_prefix, role, revoked, created_at, last_used
		FROM credentials ORDER BY created_at DESC, id DESC`
	if err := s.db.SelectContext(ctx, &creds, q); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// TouchCredential sets the last-used timestamp for a credential.
func (s *Store) TouchCredential(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET last_used = ? WHERE id = ?", now, id)
	if err != nil {
		return fmt.Errorf("touch credential: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch credential rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureBootstrapAdmin issues a first admin credential if and only if no
// credential exists yet. It is safe to call on every startup: after the
// first run it is a no-op returning (nil, "", nil). The count and insert
// run in one transaction so concurrent startups cannot both bootstrap.
func (s *Store) EnsureBootstrapAdmin(ctx context.Context) (*model.Credential, string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("begin bootstrap tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM credentials"); err != nil {
		return nil, "", fmt.Errorf("count credentials: %w", err)
	}
	if count > 0 {
		return nil, "", nil
	}

	cred, secret, err := newCredential("bootstrap admin", model.RoleAdmin)
	if err != nil {
		return nil, "", err
	}
	if _, err := sqlx.NamedExecContext(ctx, tx, insertCredentialQuery, cred); err != nil {
		if isUniqueViolation(err) {
			return nil, "", ErrConflict
		}
		return nil, "", fmt.Errorf("insert bootstrap credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit bootstrap tx: %w", err)
	}
	return cred, secret, nil
}
