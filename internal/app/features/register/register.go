// Package register provides the account registration endpoint.
package register

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	errorsfeature "github.com/jwagner/imagevault/internal/app/features/errors"
	"github.com/jwagner/imagevault/internal/app/system/accounts"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/jsonutil"
)

// Handler provides the registration handler.
type Handler struct {
	accounts *accounts.Service
	errLog   *errorsfeature.ErrorLogger
}

// NewHandler creates a new register Handler.
func NewHandler(accounts *accounts.Service, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{accounts: accounts, errLog: errLog}
}

// Routes returns a chi.Router with the registration route mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.register)
	return r
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID                 string `json:"id"`
	Username           string `json:"username"`
	RootFolderID       string `json:"root_folder_id"`
	SharedRootFolderID string `json:"shared_root_folder_id"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonutil.BadRequest(w, "invalid JSON body")
		return
	}

	u, err := h.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Inconsistent || k == fault.Unknown {
			h.errLog.Log(r, "registration failed", err)
		}
		jsonutil.Fail(w, err)
		return
	}

	jsonutil.Created(w, registerResponse{
		ID:                 u.ID,
		Username:           u.Username,
		RootFolderID:       u.RootFolderID,
		SharedRootFolderID: u.SharedRootFolderID,
	})
}
