// Package sharing maintains the cross-user sharing overlay.
//
// A share is a pair of records kept in step: the folder's share set gains
// the recipient's user id, and the recipient's shared root gains an overlay
// subfolder entry for the folder. Both are written inside a transaction;
// finding only one side of the pair later is reported as Inconsistent and
// never silently repaired.
package sharing

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/jwagner/imagevault/internal/app/store/folder"
	userstore "github.com/jwagner/imagevault/internal/app/store/users"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/txn"
	"github.com/jwagner/imagevault/internal/domain/models"
)

// Service mutates and queries sharing edges.
type Service struct {
	db      *mongo.Database
	folders *folder.Store
	users   *userstore.Store
	logger  *zap.Logger
}

// New creates a sharing service over the given database.
func New(db *mongo.Database, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		folders: folder.New(db),
		users:   userstore.New(db),
		logger:  logger,
	}
}

// Candidate is one row of a share-candidate listing: a user the folder
// could be (or already is) shared with.
type Candidate struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Shared   bool   `json:"shared"`
}

// ShareFolder shares the caller's folder with the target user. Roots cannot
// be shared, a folder cannot be shared with its owner, and sharing twice
// with the same user is a conflict.
func (s *Service) ShareFolder(ctx context.Context, callerID, folderID, targetUserID string) error {
	f, target, err := s.loadEdge(ctx, callerID, folderID, targetUserID)
	if err != nil {
		return err
	}

	sharedRoot, err := s.folders.GetByID(ctx, target.SharedRootFolderID)
	if err != nil {
		return fault.Wrap(fault.IOFailure, err, "loading shared root of %s", target.ID)
	}
	inSet := f.SharedWith(target.ID)
	inOverlay := sharedRoot.HasSubfolder(f.ID)
	if inSet != inOverlay {
		return fault.New(fault.Inconsistent,
			"one-sided share between folder %s and user %s (set=%t overlay=%t)", f.ID, target.ID, inSet, inOverlay)
	}
	if inSet {
		return fault.New(fault.Conflict, "folder %s is already shared with %s", f.ID, target.ID)
	}

	// Both writes are set-valued, so two racing shares of the same edge
	// that slip past the checks above converge on one entry per side.
	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		if err := s.folders.AddSharedUser(ctx, f.ID, target.ID); err != nil {
			return err
		}
		return s.folders.AddSubfolder(ctx, target.SharedRootFolderID, f.ID)
	})
	if err != nil {
		return fault.Wrap(fault.IOFailure, err, "sharing folder %s with %s", f.ID, target.ID)
	}
	return nil
}

// UnshareFolder removes an existing share of the caller's folder from the
// target user.
func (s *Service) UnshareFolder(ctx context.Context, callerID, folderID, targetUserID string) error {
	f, target, err := s.loadEdge(ctx, callerID, folderID, targetUserID)
	if err != nil {
		return err
	}

	sharedRoot, err := s.folders.GetByID(ctx, target.SharedRootFolderID)
	if err != nil {
		return fault.Wrap(fault.IOFailure, err, "loading shared root of %s", target.ID)
	}
	inSet := f.SharedWith(target.ID)
	inOverlay := sharedRoot.HasSubfolder(f.ID)
	if inSet != inOverlay {
		return fault.New(fault.Inconsistent,
			"one-sided share between folder %s and user %s (set=%t overlay=%t)", f.ID, target.ID, inSet, inOverlay)
	}
	if !inSet {
		return fault.New(fault.Conflict, "folder %s is not shared with %s", f.ID, target.ID)
	}

	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		if err := s.folders.RemoveSharedUser(ctx, f.ID, target.ID); err != nil {
			return err
		}
		return s.folders.PullSubfolder(ctx, target.SharedRootFolderID, f.ID)
	})
	if err != nil {
		return fault.Wrap(fault.IOFailure, err, "unsharing folder %s from %s", f.ID, target.ID)
	}
	return nil
}

// ListShareCandidates returns every other user, in username order, with a
// flag marking those the folder is already shared with.
func (s *Service) ListShareCandidates(ctx context.Context, callerID, folderID string) ([]Candidate, error) {
	f, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.New(fault.NotFound, "folder %s not found", folderID)
		}
		return nil, fault.Wrap(fault.IOFailure, err, "loading folder %s", folderID)
	}
	if f.OwnerID != callerID {
		return nil, fault.New(fault.PermissionDenied, "folder %s is not owned by the caller", folderID)
	}

	others, err := s.users.ListExcept(ctx, callerID)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "listing users")
	}
	candidates := make([]Candidate, 0, len(others))
	for _, u := range others {
		candidates = append(candidates, Candidate{
			UserID:   u.ID,
			Username: u.Username,
			Shared:   f.SharedWith(u.ID),
		})
	}
	return candidates, nil
}

// SeverInboundForUser removes every share pointing at the user: each
// sharing folder's share set entry and the matching overlay entry in the
// user's shared root. Run during account deletion before the shared root
// is torn down, so owners are not left holding edges to a vanished user.
func (s *Service) SeverInboundForUser(ctx context.Context, u *models.User) error {
	shared, err := s.folders.ListSharedWithUser(ctx, u.ID)
	if err != nil {
		return fault.Wrap(fault.IOFailure, err, "listing folders shared with %s", u.ID)
	}
	for _, f := range shared {
		if err := s.folders.RemoveSharedUser(ctx, f.ID, u.ID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return fault.Wrap(fault.IOFailure, err, "removing %s from share set of %s", u.ID, f.ID)
		}
		err := s.folders.PullSubfolder(ctx, u.SharedRootFolderID, f.ID)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return fault.Wrap(fault.IOFailure, err, "removing overlay of %s from %s", f.ID, u.SharedRootFolderID)
		}
	}
	return nil
}

// loadEdge loads and validates the two endpoints of a share mutation.
func (s *Service) loadEdge(ctx context.Context, callerID, folderID, targetUserID string) (*models.Folder, *models.User, error) {
	f, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, fault.New(fault.NotFound, "folder %s not found", folderID)
		}
		return nil, nil, fault.Wrap(fault.IOFailure, err, "loading folder %s", folderID)
	}
	if f.OwnerID != callerID {
		return nil, nil, fault.New(fault.PermissionDenied, "folder %s is not owned by the caller", folderID)
	}
	if f.IsRoot() {
		return nil, nil, fault.New(fault.InvalidArgument, "root folders cannot be shared")
	}
	if targetUserID == callerID {
		return nil, nil, fault.New(fault.InvalidArgument, "a folder cannot be shared with its owner")
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, fault.New(fault.NotFound, "user %s not found", targetUserID)
		}
		return nil, nil, fault.Wrap(fault.IOFailure, err, "loading user %s", targetUserID)
	}
	return f, target, nil
}
