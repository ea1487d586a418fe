// Package hierarchy implements the per-user folder trees: folder creation,
// cascading deletion, image removal, and incremental size aggregation.
//
// All mutations are owner-only. Deletion detaches the subtree from its
// parent first, so a reader that races the cascade sees either the whole
// subtree or none of it from the parent's point of view, never a half
// deleted one.
package hierarchy

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/jwagner/imagevault/internal/app/store/folder"
	"github.com/jwagner/imagevault/internal/app/store/image"
	userstore "github.com/jwagner/imagevault/internal/app/store/users"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/names"
	"github.com/jwagner/imagevault/internal/app/system/txn"
	"github.com/jwagner/imagevault/internal/domain/models"
)

// Service mutates the folder hierarchy and keeps aggregate sizes consistent.
type Service struct {
	db      *mongo.Database
	folders *folder.Store
	images  *image.Store
	users   *userstore.Store
	blobs   storage.Store
	logger  *zap.Logger
}

// New creates a hierarchy service over the given database and content store.
func New(db *mongo.Database, blobs storage.Store, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		folders: folder.New(db),
		images:  image.New(db),
		users:   userstore.New(db),
		blobs:   blobs,
		logger:  logger,
	}
}

// Folders exposes the underlying folder store for read paths.
func (s *Service) Folders() *folder.Store { return s.folders }

// Images exposes the underlying image store for read paths.
func (s *Service) Images() *image.Store { return s.images }

// CreateFolder creates an empty folder under parentID. The caller must own
// the parent, the name must be free of reserved characters, and no sibling
// folder may already carry it.
func (s *Service) CreateFolder(ctx context.Context, callerID, parentID, name string) (*models.Folder, error) {
	name, err := names.Validate(name)
	if err != nil {
		return nil, err
	}

	parent, err := s.folders.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.New(fault.NotFound, "folder %s not found", parentID)
		}
		return nil, fault.Wrap(fault.IOFailure, err, "loading folder %s", parentID)
	}
	if parent.OwnerID != callerID {
		return nil, fault.New(fault.PermissionDenied, "folder %s is not owned by the caller", parentID)
	}

	exists, err := s.folders.NameExistsAmong(ctx, parent.SubfolderIDs, name)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "checking sibling names in %s", parentID)
	}
	if exists {
		return nil, fault.New(fault.Conflict, "folder %q already exists in %s", name, parentID)
	}

	created := &models.Folder{
		ID:       uuid.New().String(),
		Name:     name,
		OwnerID:  parent.OwnerID,
		ParentID: &parent.ID,
	}
	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		if err := s.folders.Insert(ctx, created); err != nil {
			return err
		}
		return s.folders.PushSubfolder(ctx, parent.ID, created.ID)
	})
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "creating folder %q under %s", name, parentID)
	}
	return created, nil
}

// DeleteFolder removes a folder and everything beneath it: owned subtree
// records, image records, stored content, and any sharing edges pointing at
// subtree folders. Roots are refused; delete the account instead.
func (s *Service) DeleteFolder(ctx context.Context, callerID, folderID string) error {
	f, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fault.New(fault.NotFound, "folder %s not found", folderID)
		}
		return fault.Wrap(fault.IOFailure, err, "loading folder %s", folderID)
	}
	if f.IsRoot() {
		return fault.New(fault.InvalidArgument, "root folders cannot be deleted")
	}
	if f.OwnerID != callerID {
		return fault.New(fault.PermissionDenied, "folder %s is not owned by the caller", folderID)
	}

	// Detach before cascading so readers of the parent never see a
	// partially deleted subtree.
	if err := s.folders.PullSubfolder(ctx, *f.ParentID, f.ID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fault.Wrap(fault.IOFailure, err, "detaching folder %s from %s", f.ID, *f.ParentID)
	}
	if f.Size != 0 {
		if err := s.PropagateSize(ctx, *f.ParentID, -f.Size); err != nil {
			return err
		}
	}
	return s.deleteTree(ctx, f)
}

// DeleteRoot tears down one of a user's root folders during account
// deletion. It bypasses the root guard and the owner check; callers are
// responsible for having authenticated the account owner. A missing root is
// tolerated so a previously interrupted teardown can be re-run.
func (s *Service) DeleteRoot(ctx context.Context, rootID string) error {
	f, err := s.folders.GetByID(ctx, rootID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return fault.Wrap(fault.IOFailure, err, "loading root %s", rootID)
	}
	return s.deleteTree(ctx, f)
}

// DeleteImage removes one image from a folder: the membership entry, the
// image record, the stored content, and the size contribution up the parent
// chain.
func (s *Service) DeleteImage(ctx context.Context, callerID, folderID, imageID string) error {
	f, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fault.New(fault.NotFound, "folder %s not found", folderID)
		}
		return fault.Wrap(fault.IOFailure, err, "loading folder %s", folderID)
	}
	if f.OwnerID != callerID {
		return fault.New(fault.PermissionDenied, "folder %s is not owned by the caller", folderID)
	}
	if !f.HasImage(imageID) {
		return fault.New(fault.NotFound, "image %s not found in folder %s", imageID, folderID)
	}

	img, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fault.New(fault.Inconsistent, "folder %s references missing image %s", folderID, imageID)
		}
		return fault.Wrap(fault.IOFailure, err, "loading image %s", imageID)
	}

	if err := s.folders.PullImage(ctx, folderID, imageID); err != nil {
		return fault.Wrap(fault.IOFailure, err, "detaching image %s from %s", imageID, folderID)
	}
	if img.Size != 0 {
		if err := s.PropagateSize(ctx, folderID, -img.Size); err != nil {
			return err
		}
	}
	if err := s.images.Delete(ctx, imageID); err != nil {
		return fault.Wrap(fault.IOFailure, err, "deleting image record %s", imageID)
	}
	if err := s.blobs.Delete(ctx, imageID); err != nil {
		// The record is gone; orphaned content is logged, not fatal.
		s.logger.Warn("failed to delete image content",
			zap.String("image_id", imageID),
			zap.Error(err))
	}
	return nil
}

// PropagateSize adds delta to folderID and every ancestor up to the root.
// Each step is an atomic $inc, so concurrent walks over shared ancestors
// cannot lose updates. A broken parent chain mid-walk leaves already
// incremented ancestors in place and reports Inconsistent.
func (s *Service) PropagateSize(ctx context.Context, folderID string, delta int64) error {
	id := folderID
	for {
		f, err := s.folders.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return fault.New(fault.Inconsistent, "size walk hit missing folder %s (started at %s)", id, folderID)
			}
			return fault.Wrap(fault.IOFailure, err, "size walk loading %s", id)
		}
		if err := s.folders.IncrementSize(ctx, id, delta); err != nil {
			return fault.Wrap(fault.IOFailure, err, "size walk incrementing %s", id)
		}
		if f.ParentID == nil {
			return nil
		}
		id = *f.ParentID
	}
}

// deleteTree deletes root's owned subtree bottom-up: collect with a
// worklist, then remove images, sharing edges, and folder records in
// reverse collection order so no surviving folder ever references a deleted
// child.
func (s *Service) deleteTree(ctx context.Context, root *models.Folder) error {
	collected := []*models.Folder{root}
	queue := []*models.Folder{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		children, err := s.folders.GetByIDs(ctx, cur.SubfolderIDs)
		if err != nil {
			return fault.Wrap(fault.IOFailure, err, "loading children of %s", cur.ID)
		}
		for i := range children {
			ch := &children[i]
			// A shared root's subfolder list also carries overlay
			// entries for folders owned by other users; the cascade
			// follows only true ownership edges.
			if ch.ParentID == nil || *ch.ParentID != cur.ID || ch.OwnerID != cur.OwnerID {
				continue
			}
			collected = append(collected, ch)
			queue = append(queue, ch)
		}
	}

	for _, f := range collected {
		if err := s.unshareAll(ctx, f); err != nil {
			return err
		}
		if err := s.deleteImages(ctx, f); err != nil {
			return err
		}
	}
	for i := len(collected) - 1; i >= 0; i-- {
		if err := s.folders.Delete(ctx, collected[i].ID); err != nil {
			return fault.Wrap(fault.IOFailure, err, "deleting folder record %s", collected[i].ID)
		}
	}
	return nil
}

// unshareAll removes the overlay entries other users hold for f. A
// recipient whose account vanished mid-way is tolerated.
func (s *Service) unshareAll(ctx context.Context, f *models.Folder) error {
	for _, userID := range f.SharedWithUserIDs {
		u, err := s.users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				s.logger.Warn("share recipient no longer exists",
					zap.String("folder_id", f.ID),
					zap.String("user_id", userID))
				continue
			}
			return fault.Wrap(fault.IOFailure, err, "loading share recipient %s", userID)
		}
		err = s.folders.PullSubfolder(ctx, u.SharedRootFolderID, f.ID)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return fault.Wrap(fault.IOFailure, err, "removing share of %s from %s", f.ID, u.SharedRootFolderID)
		}
	}
	return nil
}

// deleteImages removes f's image records in one batch, then the stored
// content per image. Content-store failures are logged and skipped; the
// records are already gone and re-running cannot recover them.
func (s *Service) deleteImages(ctx context.Context, f *models.Folder) error {
	if len(f.ImageIDs) == 0 {
		return nil
	}
	if err := s.images.DeleteMany(ctx, f.ImageIDs); err != nil {
		return fault.Wrap(fault.IOFailure, err, "deleting image records of %s", f.ID)
	}
	for _, id := range f.ImageIDs {
		if err := s.blobs.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to delete image content",
				zap.String("image_id", id),
				zap.Error(err))
		}
	}
	return nil
}
