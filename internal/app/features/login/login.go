// Package login provides the sign-in endpoint.
package login

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

// Handler provides the login handler.
type Handler struct {
	accounts   *accounts.Service
	sessionMgr *auth.SessionManager
	errLog     *errorsfeature.ErrorLogger
}

// NewHandler creates a new login Handler.
func NewHandler(accounts *accounts.Service, sessionMgr *auth.SessionManager, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{accounts: accounts, sessionMgr: sessionMgr, errLog: errLog}
}

// Routes returns a chi.Router with the login route mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.login)
	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID                 string `json:"id"`
	Username           string `json:"username"`
	RootFolderID       string `json:"root_folder_id"`
	SharedRootFolderID string `json:"shared_root_folder_id"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	u, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		// Failed credentials are a 401 at the HTTP surface, not a 403.
		if fault.KindOf(err) == fault.PermissionDenied {
			jsonutil.Unauthorized(w, "invalid credentials")
			return
		}
		h.errLog.Log(r, "login failed", err)
		jsonutil.Fail(w, err)
		return
	}

	if err := h.sessionMgr.SignIn(w, r, u.ID); err != nil {
		h.errLog.Log(r, "failed to establish session", err)
		jsonutil.InternalError(w, "failed to establish session")
		return
	}

	jsonutil.OK(w, loginResponse{
		ID:                 u.ID,
		Username:           u.Username,
		RootFolderID:       u.RootFolderID,
		SharedRootFolderID: u.SharedRootFolderID,
	})
}
