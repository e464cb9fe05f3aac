package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/guildsight/guildsight/internal/model"
	"github.com/guildsight/guildsight/internal/server/middleware"
	"github.com/guildsight/guildsight/internal/store"
)

// AdminHandler manages API credentials: issuing, listing, revoking, and
// per-credential usage summaries.
type AdminHandler struct {
	store *store.Store
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(st *store.Store) *AdminHandler {
	return &AdminHandler{store: st}
}

// createCredentialRequest is the expected payload for CreateCredential.
type createCredentialRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// createCredentialResponse carries the new record plus the plaintext
// secret. The secret appears here and nowhere else: it is not stored
// and cannot be shown again.
type createCredentialResponse struct {
	Credential *model.Credential `json:"credential"`
	Secret     string            `json:"secret"`
}

// CreateCredential issues a new API credential.
// POST /api/v1/admin/credentials
func (h *AdminHandler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cred, secret, err := h.store.IssueCredential(r.Context(), req.Name, role)
	if err != nil {
		writeStoreError(w, err, "Credential not found")
		return
	}

	writeJSON(w, http.StatusCreated, createCredentialResponse{
		Credential: cred,
		Secret:     secret,
	})
}

// ListCredentials returns all credentials, newest first, without
// secrets or hashes.
// GET /api/v1/admin/credentials
func (h *AdminHandler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.store.ListCredentials(r.Context())
	if err != nil {
		writeStoreError(w, err, "Credential not found")
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: creds,
		Meta:     &model.ResponseMeta{Count: len(creds)},
	})
}

// RevokeCredential permanently disables a credential and returns the
// updated record. Revoking an already-revoked credential succeeds.
// A caller cannot revoke the credential it is authenticated with.
// DELETE /api/v1/admin/credentials/{id}
func (h *AdminHandler) RevokeCredential(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if ac := middleware.GetAuthContext(r.Context()); ac != nil && ac.CredentialID == id {
		writeError(w, http.StatusBadRequest, "Cannot revoke the credential used for this request")
		return
	}

	cred, err := h.store.RevokeCredential(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Credential not found")
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

// CredentialUsage summarizes one credential's request history over a
// trailing window of days (default 7).
// GET /api/v1/admin/credentials/{id}/usage
func (h *AdminHandler) CredentialUsage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	days, err := queryInt(r, "days", defaultUsageDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Resolve the credential first so an unknown id is a 404 rather
	// than an all-zero summary.
	if _, err := h.store.GetCredential(r.Context(), id); err != nil {
		writeStoreError(w, err, "Credential not found")
		return
	}

	usage, err := h.store.CredentialUsageStats(r.Context(), id, days, time.Now().UTC())
	if err != nil {
		writeStoreError(w, err, "Credential not found")
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
