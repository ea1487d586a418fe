// Package logout provides the sign-out endpoint.
package logout

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jwagner/imagevault/internal/app/system/auth"
	"github.com/jwagner/imagevault/internal/app/system/jsonutil"
)

// Handler provides the logout handler.
type Handler struct {
	sessionMgr *auth.SessionManager
}

// NewHandler creates a new logout Handler.
func NewHandler(sessionMgr *auth.SessionManager) *Handler {
	return &Handler{sessionMgr: sessionMgr}
}

// Routes returns a chi.Router with the logout route mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.logout)
	return r
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessionMgr.SignOut(w, r)
	jsonutil.OK(w, map[string]string{"status": "signed out"})
}
