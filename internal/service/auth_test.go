package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/store"
)

func newTestAuth(t *testing.T) (*Authenticator, *store.Store) {
	t.Helper()
	st, err := store.NewStore("") // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthenticator(st, logger), st
}

func TestVerifyValidToken(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	cred, secret, err := st.IssueCredential(ctx, "reader", model.RoleRead)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}

	ac, err := auth.Verify(ctx, secret)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ac.CredentialID != cred.ID {
		t.Errorf("CredentialID = %q, want %q", ac.CredentialID, cred.ID)
	}
	if ac.Role != model.RoleRead {
		t.Errorf("Role = %q, want read", ac.Role)
	}
}

func TestVerifyFailuresAreIndistinguishable(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	_, revokedSecret, err := st.IssueCredential(ctx, "to revoke", model.RoleRead)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	revoked, err := st.LookupCredentialByHash(ctx, model.HashSecret(revokedSecret))
	if err != nil {
		t.Fatalf("LookupCredentialByHash: %v", err)
	}
	if _, err := st.RevokeCredential(ctx, revoked.ID); err != nil {
		t.Fatalf("RevokeCredential: %v", err)
	}

	unknown, _ := model.GenerateSecret()
	tokens := map[string]string{
		"missing":   "",
		"malformed": "not-a-token",
		"bad shape": model.SecretPrefix + "short",
		"unknown":   unknown,
		"revoked":   revokedSecret,
	}
	for name, token := range tokens {
		_, err := auth.Verify(ctx, token)
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("%s token: err = %v, want ErrUnauthenticated", name, err)
		}
		// The externally observable error must be identical in every case.
		if err.Error() != ErrUnauthenticated.Error() {
			t.Errorf("%s token: error text %q leaks the failure reason", name, err.Error())
		}
	}
}

func TestVerifyAfterRevoke(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	cred, secret, err := st.IssueCredential(ctx, "reader", model.RoleRead)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	if _, err := auth.Verify(ctx, secret); err != nil {
		t.Fatalf("Verify before revoke: %v", err)
	}

	if _, err := st.RevokeCredential(ctx, cred.ID); err != nil {
		t.Fatalf("RevokeCredential: %v", err)
	}
	if _, err := auth.Verify(ctx, secret); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Verify after revoke: err = %v, want ErrUnauthenticated", err)
	}
}

func TestVerifyUpdatesLastUsed(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	cred, secret, err := st.IssueCredential(ctx, "reader", model.RoleRead)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	if _, err := auth.Verify(ctx, secret); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// The touch is asynchronous; poll for it.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := st.GetCredential(ctx, cred.ID)
		if err != nil {
			t.Fatalf("GetCredential: %v", err)
		}
		if got.LastUsed != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("last-used timestamp was never set")
}

func TestVerifyRejectsWrongPrefixWithoutLookup(t *testing.T) {
	auth, _ := newTestAuth(t)

	token := "sk_test_" + strings.Repeat("a", 64)
	if _, err := auth.Verify(context.Background(), token); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("err = %v, want ErrUnauthenticated", err)
	}
}

func TestAuthorize(t *testing.T) {
	admin := &AuthContext{CredentialID: "a", Role: model.RoleAdmin}
	reader := &AuthContext{CredentialID: "r", Role: model.RoleRead}

	if err := Authorize(admin, model.RoleAdmin); err != nil {
		t.Errorf("admin→admin: %v", err)
	}
	if err := Authorize(admin, model.RoleRead); err != nil {
		t.Errorf("admin→read: %v", err)
	}
	if err := Authorize(reader, model.RoleRead); err != nil {
		t.Errorf("read→read: %v", err)
	}
	if err := Authorize(reader, model.RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Errorf("read→admin: err = %v, want ErrForbidden", err)
	}
	if err := Authorize(nil, model.RoleRead); !errors.Is(err, ErrForbidden) {
		t.Errorf("nil context: err = %v, want ErrForbidden", err)
	}
}
