// Package images provides chunked upload, download, and image delete
// endpoints.
package images

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	errorsfeature "github.com/jwagner/imagevault/internal/app/features/errors"
	"github.com/jwagner/imagevault/internal/app/system/auth"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/hierarchy"
	"github.com/jwagner/imagevault/internal/app/system/jsonutil"
	"github.com/jwagner/imagevault/internal/app/system/uploads"
)

const maxChunkSize = 32 << 20 // 32MB

// Handler provides image handlers.
type Handler struct {
	hier      *hierarchy.Service
	assembler *uploads.Assembler
	blobs     storage.Store
	errLog    *errorsfeature.ErrorLogger
	logger    *zap.Logger
}

// NewHandler creates a new images Handler.
func NewHandler(
	hier *hierarchy.Service,
	assembler *uploads.Assembler,
	blobs storage.Store,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		hier:      hier,
		assembler: assembler,
		blobs:     blobs,
		errLog:    errLog,
		logger:    logger,
	}
}

// Routes returns a chi.Router with image routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Post("/{folderID}/chunk", h.chunk)
	r.Post("/{folderID}/finalize", h.finalize)
	r.Post("/{folderID}/abort", h.abort)
	r.Get("/{imageID}/download", h.download)
	r.Delete("/{folderID}/{imageID}", h.delete)
	return r
}

// ImageRow is one committed image in a finalize response.
type ImageRow struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// chunk accepts one raw chunk in the request body. The target file name
// and zero-based chunk index arrive as query parameters.
func (h *Handler) chunk(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	folderID := chi.URLParam(r, "folderID")

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		jsonutil.BadRequest(w, "missing name parameter")
		return
	}
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil || index < 0 {
		jsonutil.BadRequest(w, "index must be a non-negative integer")
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxChunkSize)
	if err := h.assembler.AcceptChunk(r.Context(), actor.ID, folderID, name, index, body); err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Unknown {
			h.errLog.Log(r, "failed to accept chunk", err)
		}
		jsonutil.Fail(w, err)
		return
	}
	jsonutil.OK(w, map[string]string{"status": "accepted"})
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	folderID := chi.URLParam(r, "folderID")

	committed, err := h.assembler.FinalizeUpload(r.Context(), actor.ID, folderID)
	rows := make([]ImageRow, 0, len(committed))
	for _, img := range committed {
		rows = append(rows, ImageRow{ID: img.ID, Name: img.Name, Size: img.Size, ContentType: img.ContentType})
	}
	if err != nil {
		// Files committed before the failure stay committed; report both.
		h.errLog.LogWithFields(r, "finalize failed partway", err,
			zap.Int("committed", len(committed)))
		status := fault.HTTPStatus(fault.KindOf(err))
		jsonutil.JSON(w, status, map[string]any{
			"error":  err.Error(),
			"images": rows,
		})
		return
	}
	jsonutil.OK(w, map[string]any{"images": rows})
}

func (h *Handler) abort(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	h.assembler.Abort(actor.ID, chi.URLParam(r, "folderID"))
	jsonutil.OK(w, map[string]string{"status": "aborted"})
}

// download streams the image content with its user-visible filename in the
// Content-Disposition header. Names never contain quotes or backslashes,
// so the header cannot be broken out of.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "imageID")

	img, err := h.hier.Images().GetByID(r.Context(), imageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			jsonutil.Fail(w, fault.New(fault.NotFound, "image %s not found", imageID))
			return
		}
		h.errLog.Log(r, "failed to load image record", err)
		jsonutil.Fail(w, fault.Wrap(fault.IOFailure, err, "loading image %s", imageID))
		return
	}

	reader, err := h.blobs.Get(r.Context(), img.ID)
	if err != nil {
		h.errLog.Log(r, "failed to read image content", err)
		jsonutil.Fail(w, fault.Wrap(fault.IOFailure, err, "reading content of %s", imageID))
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.Name))
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream image",
			zap.String("image_id", img.ID),
			zap.Error(err))
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentUser(r)
	folderID := chi.URLParam(r, "folderID")
	imageID := chi.URLParam(r, "imageID")

	if err := h.hier.DeleteImage(r.Context(), actor.ID, folderID, imageID); err != nil {
		if k := fault.KindOf(err); k == fault.IOFailure || k == fault.Inconsistent || k == fault.Unknown {
			h.errLog.Log(r, "failed to delete image", err)
		}
		jsonutil.Fail(w, err)
		return
	}
	jsonutil.OK(w, map[string]string{"status": "deleted"})
}
