package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/calendar-bridge/internal/directory"
)

// DirectoryReader is the read-only slice of the account store the admin
// surface needs.
type DirectoryReader interface {
	GetByUsername(ctx context.Context, username string, kind directory.Kind) (directory.Account, error)
	GetByUniqueID(ctx context.Context, uniqueID string) (directory.Account, error)
	Search(ctx context.Context, q string) ([]directory.Account, error)
	ResourcesForOwner(ctx context.Context, ownerUsername string) ([]directory.Account, error)
}

// GUIDResolver resolves an account's remote GUID, caching as a side effect.
type GUIDResolver interface {
	AccountGUID(ctx context.Context, account directory.Account) (string, error)
}

// DirectoryHandler exposes account lookups for operators debugging identity
// and sharding problems.
type DirectoryHandler struct {
	accounts  DirectoryReader
	guids     GUIDResolver
	responder responder
}

// NewDirectoryHandler wires the account endpoints.
func NewDirectoryHandler(accounts DirectoryReader, guids GUIDResolver, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{accounts: accounts, guids: guids, responder: newResponder(logger)}
}

type accountResponse struct {
	UniqueID    string `json:"unique_id"`
	Username    string `json:"username"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Node        string `json:"node"`
	Login       string `json:"login"`
	Eligible    bool   `json:"eligible"`
}

func toAccountResponse(account directory.Account) accountResponse {
	return accountResponse{
		UniqueID:    account.UniqueID,
		Username:    account.Username,
		Kind:        string(account.Kind),
		DisplayName: account.Name(),
		Email:       account.EmailAddress(),
		Node:        account.NodeID(),
		Login:       account.LoginID(),
		Eligible:    account.Eligible(),
	}
}

// Lookup serves account queries. Exactly one of username, q or owner selects
// the lookup mode.
func (h *DirectoryHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	switch {
	case query.Get("username") != "":
		kind := directory.KindUser
		if query.Get("kind") == string(directory.KindResource) {
			kind = directory.KindResource
		}
		account, err := h.accounts.GetByUsername(ctx, query.Get("username"), kind)
		if err != nil {
			h.responder.handleServiceError(ctx, w, err)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, toAccountResponse(account))

	case query.Get("owner") != "":
		resources, err := h.accounts.ResourcesForOwner(ctx, query.Get("owner"))
		if err != nil {
			h.responder.handleServiceError(ctx, w, err)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, toAccountList(resources))

	case query.Get("q") != "":
		accounts, err := h.accounts.Search(ctx, query.Get("q"))
		if err != nil {
			h.responder.handleServiceError(ctx, w, err)
			return
		}
		h.responder.writeJSON(ctx, w, http.StatusOK, toAccountList(accounts))

	default:
		h.responder.writeError(ctx, w, http.StatusBadRequest, errMissingUsername)
	}
}

// GUID resolves and returns the remote GUID for an account.
func (h *DirectoryHandler) GUID(w http.ResponseWriter, r *http.Request, uniqueID string) {
	ctx := r.Context()

	account, err := h.accounts.GetByUniqueID(ctx, uniqueID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	guid, err := h.guids.AccountGUID(ctx, account)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, map[string]string{"guid": guid})
}

func toAccountList(accounts []directory.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toAccountResponse(account))
	}
	return out
}
