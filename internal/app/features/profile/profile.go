// Package profile provides self-service account endpoints: viewing the
// signed-in user, renaming, changing the password, and deleting the
// account.
package profile

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	errorsfeature "github.com/jwagner/imagevault/internal/app/features/errors"
	"github.com/jwagner/imagevault/internal/app/system/accounts"
	"github.com/jwagner/imagevault/internal/app/system/auth"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/jsonutil"
)

// Handler provides profile handlers.
type Handler struct {
	accounts   *accounts.Service
	sessionMgr *auth.SessionManager
	errLog     *errorsfeature.ErrorLogger
}

// NewHandler creates a new profile Handler.
func NewHandler(accounts *accounts.Service, sessionMgr *auth.SessionManager, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{accounts: accounts, sessionMgr: sessionMgr, errLog: errLog}
}

// Routes returns a chi.Router with profile routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Get("/", h.show)
	r.Put("/username", h.rename)
	r.Put("/password", h.changePassword)
	r.Delete("/", h.deleteAccount)
	return r
}

type profileResponse struct {
	ID                 string `json:"id"`
	Username           string `json:"username"`
	RootFolderID       string `json:"root_folder_id"`
	SharedRootFolderID string `json:"shared_root_folder_id"`
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	jsonutil.OK(w, profileResponse{
		ID:                 actor.ID,
		Username:           actor.Username,
		RootFolderID:       actor.RootFolderID,
		SharedRootFolderID: actor.SharedRootFolderID,
	})
}

type renameRequest struct {
	Username string `json:"username"`
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.accounts.Rename(r.Context(), actor.ID, req.Username); err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Unknown {
			h.errLog.Log(r, "failed to rename account", err)
		}
		jsonutil.Fail(w, err)
		return
	}
	jsonutil.OK(w, map[string]string{"username": req.Username})
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	if err := h.accounts.UpdatePassword(r.Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Unknown {
			h.errLog.Log(r, "failed to change password", err)
		}
		jsonutil.Fail(w, err)
		return
	}
	jsonutil.OK(w, map[string]string{"status": "password updated"})
}

type deleteRequest struct {
	Password string `json:"password"`
}

// deleteAccount removes the account after re-verifying the password, then
// ends the session.
func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	if _, err := h.accounts.Authenticate(r.Context(), actor.Username, req.Password); err != nil {
		jsonutil.Unauthorized(w, "invalid credentials")
		return
	}
	if err := h.accounts.Delete(r.Context(), actor.ID); err != nil {
		h.errLog.Log(r, "failed to delete account", err)
		jsonutil.Fail(w, err)
		return
	}

	h.sessionMgr.SignOut(w, r)
	jsonutil.OK(w, map[string]string{"status": "account deleted"})
}
