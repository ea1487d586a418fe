// Package browse provides read-only folder navigation: paginated child
// listings and root-to-folder path resolution.
package browse

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	errorsfeature "github.com/jwagner/imagevault/internal/app/features/errors"
	"github.com/jwagner/imagevault/internal/app/system/auth"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/jsonutil"
	"github.com/jwagner/imagevault/internal/app/system/listing"
)

// Handler provides browse handlers.
type Handler struct {
	listing *listing.Service
	errLog  *errorsfeature.ErrorLogger
}

// NewHandler creates a new browse Handler.
func NewHandler(listing *listing.Service, errLog *errorsfeature.ErrorLogger) *Handler {
	return &Handler{listing: listing, errLog: errLog}
}

// Routes returns a chi.Router with browse routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Get("/path", h.resolvePath)
	r.Get("/{folderID}", h.listChildren)
	return r
}

// FolderRow is one subfolder in a listing response.
type FolderRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	DisplaySize string `json:"display_size"`
	OwnerID     string `json:"owner_id"`
	OwnerName   string `json:"owner_name"`
}

// ImageRow is one image in a listing response.
type ImageRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	DisplaySize string `json:"display_size"`
}

// ListResponse is one page of a folder's children.
type ListResponse struct {
	Subfolders []FolderRow `json:"subfolders"`
	Images     []ImageRow  `json:"images"`
	Offset     int         `json:"offset"`
	Total      int         `json:"total"`
	HasMore    bool        `json:"has_more"`
}

// PathSegment is one folder on a resolved path.
type PathSegment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *Handler) listChildren(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.listing.ListChildren(r.Context(), folderID, offset, limit)
	if err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Unknown {
			h.errLog.Log(r, "failed to list folder children", err)
		}
		jsonutil.Fail(w, err)
		return
	}

	resp := ListResponse{
		Subfolders: make([]FolderRow, 0, len(page.Subfolders)),
		Images:     make([]ImageRow, 0, len(page.Images)),
		Offset:     page.Offset,
		Total:      page.Total,
		HasMore:    page.HasMore,
	}
	for _, f := range page.Subfolders {
		resp.Subfolders = append(resp.Subfolders, FolderRow{
			ID:          f.ID,
			Name:        f.Name,
			Size:        f.Size,
			DisplaySize: FormatFileSize(f.Size),
			OwnerID:     f.OwnerID,
			OwnerName:   f.OwnerName,
		})
	}
	for _, img := range page.Images {
		resp.Images = append(resp.Images, ImageRow{
			ID:          img.ID,
			Name:        img.Name,
			Size:        img.Size,
			DisplaySize: FormatFileSize(img.Size),
		})
	}
	jsonutil.OK(w, resp)
}

// resolvePath validates a comma-separated id sequence from a root down to a
// target folder, returning the folder names along the way for breadcrumbs.
func (h *Handler) resolvePath(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	var ids []string
	if raw != "" {
		ids = strings.Split(raw, ",")
	}

	path, err := h.listing.ResolvePath(r.Context(), ids)
	if err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Unknown {
			h.errLog.Log(r, "failed to resolve path", err)
		}
		jsonutil.Fail(w, err)
		return
	}

	segments := make([]PathSegment, 0, len(path))
	for _, f := range path {
		segments = append(segments, PathSegment{ID: f.ID, Name: f.Name})
	}
	jsonutil.OK(w, map[string][]PathSegment{"path": segments})
}
