// Package folders provides folder create and delete endpoints.
package folders

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	errorsfeature "github.com/jwagner/imagevault/internal/app/features/errors"
	"github.com/jwagner/imagevault/internal/app/system/auth"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/hierarchy"
	"github.com/jwagner/imagevault/internal/app/system/jsonutil"
)

// Handler provides folder management handlers.
type Handler struct {
	hier   *hierarchy.Service
	errLog *errorsfeature.ErrorLogger
}

// NewHandler creates a new folders Handler.
func NewHandler(hier *hierarchy.Service, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{hier: hier, errLog: errLog}
}

// Routes returns a chi.Router with folder routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Post("/", h.create)
	r.Delete("/{folderID}", h.delete)
	return r
}

type createRequest struct {
	ParentID string `json:"parent_id"`
	Name     string `json:"name"`
}

type createResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
	OwnerID  string `json:"owner_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	created, err := h.hier.CreateFolder(r.Context(), actor.ID, req.ParentID, req.Name)
	if err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Inconsistent || k == fault.Unknown {
			h.errLog.Log(r, "failed to create folder", err)
		}
		jsonutil.Fail(w, err)
		return
	}

	jsonutil.Created(w, createResponse{
		ID:       created.ID,
		Name:     created.Name,
		ParentID: *created.ParentID,
		OwnerID:  created.OwnerID,
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	folderID := chi.URLParam(r, "folderID")

	if err := h.hier.DeleteFolder(r.Context(), actor.ID, folderID); err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Inconsistent || k == fault.Unknown {
			h.errLog.Log(r, "failed to delete folder", err)
		}
		jsonutil.Fail(w, err)
		return
	}
	jsonutil.OK(w, map[string]string{"status": "deleted"})
}
