// Package uploads assembles chunked uploads into committed images.
//
// Chunks for one (caller, folder) pair accumulate in a staging directory on
// local disk; finalizing moves each staged file into the content store,
// inserts its image record, and attaches it to the folder. Staged bytes are
// invisible to every query until finalized. Sessions for different pairs
// are fully independent.
package uploads

import (
	"context"
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/jwagner/imagevault/internal/app/store/folder"
	"github.com/jwagner/imagevault/internal/app/store/image"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/hierarchy"
	"github.com/jwagner/imagevault/internal/app/system/names"
	"github.com/jwagner/imagevault/internal/app/system/txn"
	"github.com/jwagner/imagevault/internal/domain/models"
)

// Assembler stages upload chunks and commits them on finalize.
type Assembler struct {
	db          *mongo.Database
	folders     *folder.Store
	images      *image.Store
	blobs       storage.Store
	hier        *hierarchy.Service
	logger      *zap.Logger
	stagingRoot string

	mu       sync.Mutex
	sessions map[string]*session
}

// session is the staging state for one (caller, folder) pair. Its mutex
// serializes chunk appends and finalization for that pair only.
type session struct {
	mu    sync.Mutex
	dir   string
	order []string // staged file names in first-chunk arrival order
	files map[string]string
}

// New creates an assembler that stages chunks under stagingRoot.
func New(db *mongo.Database, blobs storage.Store, hier *hierarchy.Service, stagingRoot string, logger *zap.Logger) *Assembler {
	return &Assembler{
		db:          db,
		folders:     folder.New(db),
		images:      image.New(db),
		blobs:       blobs,
		hier:        hier,
		logger:      logger,
		stagingRoot: stagingRoot,
		sessions:    make(map[string]*session),
	}
}

func sessionKey(callerID, folderID string) string {
	return callerID + "/" + folderID
}

// AcceptChunk appends one chunk to the staged file named fileName. Chunk 0
// validates the name, checks sibling uniqueness, and creates (or resets)
// the staged file; later chunks append in arrival order.
func (a *Assembler) AcceptChunk(ctx context.Context, callerID, folderID, fileName string, chunkIndex int, r io.Reader) error {
	// Canonical form up front so chunk 0 and later chunks key the same
	// staged file.
	fileName = strings.TrimSpace(fileName)

	f, err := a.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fault.New(fault.NotFound, "folder %s not found", folderID)
		}
		return fault.Wrap(fault.IOFailure, err, "loading folder %s", folderID)
	}
	if f.OwnerID != callerID {
		return fault.New(fault.PermissionDenied, "folder %s is not owned by the caller", folderID)
	}

	if chunkIndex == 0 {
		if _, err := names.Validate(fileName); err != nil {
			return err
		}
		exists, err := a.images.NameExistsAmong(ctx, f.ImageIDs, fileName)
		if err != nil {
			return fault.Wrap(fault.IOFailure, err, "checking sibling image names in %s", folderID)
		}
		if exists {
			return fault.New(fault.Conflict, "image %q already exists in %s", fileName, folderID)
		}
	}

	sess, err := a.getOrCreate(callerID, folderID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	path, staged := sess.files[fileName]
	if chunkIndex == 0 {
		if !staged {
			path = filepath.Join(sess.dir, uuid.New().String()+filepath.Ext(fileName))
			sess.files[fileName] = path
			sess.order = append(sess.order, fileName)
		}
		// A repeated chunk 0 restarts the file.
		out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return fault.Wrap(fault.IOFailure, err, "creating staging file for %q", fileName)
		}
		defer out.Close()
		if _, err := io.Copy(out, r); err != nil {
			return fault.Wrap(fault.IOFailure, err, "writing chunk 0 of %q", fileName)
		}
		return nil
	}

	if !staged {
		return fault.New(fault.InvalidArgument, "chunk %d of %q arrived before chunk 0", chunkIndex, fileName)
	}
	out, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fault.Wrap(fault.IOFailure, err, "opening staging file for %q", fileName)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fault.Wrap(fault.IOFailure, err, "appending chunk %d of %q", chunkIndex, fileName)
	}
	return nil
}

// FinalizeUpload commits every staged file of the session: mint the id from
// a fresh UUID plus the file extension, move the bytes into the content
// store, insert the image record, and attach it to the folder. Each file's
// commit stands alone; a failure stops the batch after the files already
// committed. The combined committed size is propagated up the ancestor
// chain once, and the staging directory is removed regardless of outcome.
// With nothing staged it commits nothing and returns no error.
func (a *Assembler) FinalizeUpload(ctx context.Context, callerID, folderID string) ([]models.Image, error) {
	sess := a.take(callerID, folderID)
	if sess == nil {
		return nil, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	defer func() {
		if err := os.RemoveAll(sess.dir); err != nil {
			a.logger.Warn("failed to remove staging directory",
				zap.String("dir", sess.dir),
				zap.Error(err))
		}
	}()

	if len(sess.order) == 0 {
		return nil, nil
	}

	if _, err := a.folders.GetByID(ctx, folderID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.New(fault.NotFound, "folder %s not found", folderID)
		}
		return nil, fault.Wrap(fault.IOFailure, err, "loading folder %s", folderID)
	}

	var committed []models.Image
	var total int64
	var failure error
	for _, name := range sess.order {
		img, err := a.commitFile(ctx, folderID, name, sess.files[name])
		if err != nil {
			failure = err
			break
		}
		committed = append(committed, *img)
		total += img.Size
	}

	if total > 0 {
		if err := a.hier.PropagateSize(ctx, folderID, total); err != nil {
			return committed, err
		}
	}
	return committed, failure
}

// Abort drops the session's staged bytes without committing anything.
// Aborting a pair with no session is a no-op.
func (a *Assembler) Abort(callerID, folderID string) {
	sess := a.take(callerID, folderID)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := os.RemoveAll(sess.dir); err != nil {
		a.logger.Warn("failed to remove staging directory",
			zap.String("dir", sess.dir),
			zap.Error(err))
	}
}

// commitFile moves one staged file into the content store and records it.
// The content write comes first; the record insert and the folder attach
// run inside one transaction, and any failure after the content write
// removes both the record and the stored object, so nothing unreferenced
// survives a partial commit.
func (a *Assembler) commitFile(ctx context.Context, folderID, name, path string) (*models.Image, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "opening staged file %q", name)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "sizing staged file %q", name)
	}

	ext := strings.ToLower(filepath.Ext(name))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	id := uuid.New().String() + ext

	if err := a.blobs.Put(ctx, id, in, &storage.PutOptions{ContentType: contentType}); err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "storing content of %q", name)
	}
	img := &models.Image{ID: id, Name: name, Size: info.Size(), ContentType: contentType}
	err = txn.Run(ctx, a.db, a.logger, func(ctx context.Context) error {
		if err := a.images.Insert(ctx, img); err != nil {
			return fault.Wrap(fault.IOFailure, err, "recording image %q", name)
		}
		if err := a.folders.PushImage(ctx, folderID, id); err != nil {
			return fault.Wrap(fault.IOFailure, err, "attaching image %q to %s", name, folderID)
		}
		return nil
	})
	if err != nil {
		// On a standalone deployment the transaction degrades to plain
		// writes, so the record may have landed before the attach failed.
		// Remove it and the stored object either way.
		if derr := a.images.Delete(ctx, id); derr != nil {
			a.logger.Warn("failed to clean up record after commit failure",
				zap.String("image_id", id),
				zap.Error(derr))
		}
		if derr := a.blobs.Delete(ctx, id); derr != nil {
			a.logger.Warn("failed to clean up content after commit failure",
				zap.String("image_id", id),
				zap.Error(derr))
		}
		return nil, err
	}
	return img, nil
}

// getOrCreate returns the session for the pair, creating its staging
// directory on first use.
func (a *Assembler) getOrCreate(callerID, folderID string) (*session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := sessionKey(callerID, folderID)
	if sess, ok := a.sessions[key]; ok {
		return sess, nil
	}
	dir := filepath.Join(a.stagingRoot, callerID, folderID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "creating staging directory for %s", key)
	}
	sess := &session{dir: dir, files: make(map[string]string)}
	a.sessions[key] = sess
	return sess, nil
}

// take removes and returns the pair's session, or nil if none exists.
// Removing it under the registry lock keeps late chunks from appending to
// a session that is being finalized or aborted; they start a fresh one.
func (a *Assembler) take(callerID, folderID string) *session {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := sessionKey(callerID, folderID)
	sess := a.sessions[key]
	delete(a.sessions, key)
	return sess
}
