// Package shares provides folder sharing endpoints.
package shares

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	errorsfeature "github.com/jwagner/imagevault/internal/app/features/errors"
	"github.com/jwagner/imagevault/internal/app/system/auth"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/jsonutil"
	"github.com/jwagner/imagevault/internal/app/system/sharing"
)

// Handler provides sharing handlers.
type Handler struct {
	sharing *sharing.Service
	errLog  *errorsfeature.ErrorLogger
}

// NewHandler creates a new shares Handler.
func NewHandler(sharing *sharing.Service, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{sharing: sharing, errLog: errLog}
}

// Routes returns a chi.Router with sharing routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Get("/{folderID}/candidates", h.candidates)
	r.Post("/{folderID}/share", h.share)
	r.Post("/{folderID}/unshare", h.unshare)
	return r
}

type shareRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	folderID := chi.URLParam(r, "folderID")

	candidates, err := h.sharing.ListShareCandidates(r.Context(), actor.ID, folderID)
	if err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Unknown {
			h.errLog.Log(r, "failed to list share candidates", err)
		}
		jsonutil.Fail(w, err)
		return
	}
	jsonutil.OK(w, map[string][]sharing.Candidate{"candidates": candidates})
}

func (h *Handler) share(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.sharing.ShareFolder, "failed to share folder", "shared")
}

func (h *Handler) unshare(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.sharing.UnshareFolder, "failed to unshare folder", "unshared")
}

// mutate is the shared request plumbing of share and unshare.
func (h *Handler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, callerID, folderID, targetUserID string) error,
	logMsg, status string,
) {
	actor, _ := auth.CurrentUser(r)
	folderID := chi.URLParam(r, "folderID")

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	if err := op(r.Context(), actor.ID, folderID, req.UserID); err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Inconsistent || k == fault.Unknown {
			h.errLog.Log(r, logMsg, err)
		}
		jsonutil.Fail(w, err)
		return
	}
	jsonutil.OK(w, map[string]string{"status": status})
}
