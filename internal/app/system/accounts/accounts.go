// Package accounts manages user registration, credentials, and account
// deletion.
//
// Registration creates the user record and its two root folders ("Home"
// and "Shared With Me") together; deletion severs sharing edges in both
// directions, tears down both root trees, and only then removes the user
// record, so an interruption leaves a state teardown can be re-run from.
package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwagner/imagevault/internal/app/store/folder"
	userstore "github.com/jwagner/imagevault/internal/app/store/users"
	"github.com/jwagner/imagevault/internal/app/system/fault"
	"github.com/jwagner/imagevault/internal/app/system/hierarchy"
	"github.com/jwagner/imagevault/internal/app/system/names"
	"github.com/jwagner/imagevault/internal/app/system/sharing"
	"github.com/jwagner/imagevault/internal/app/system/txn"
	"github.com/jwagner/imagevault/internal/domain/models"
)

// Root folder names every account starts with.
const (
	RootFolderName       = "Home"
	SharedRootFolderName = "Shared With Me"
)

const minPasswordLength = 8

// Service manages accounts.
type Service struct {
	db      *mongo.Database
	users   *userstore.Store
	folders *folder.Store
	hier    *hierarchy.Service
	shares  *sharing.Service
	logger  *zap.Logger
}

// New creates an accounts service.
func New(db *mongo.Database, hier *hierarchy.Service, shares *sharing.Service, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		users:   userstore.New(db),
		folders: folder.New(db),
		hier:    hier,
		shares:  shares,
		logger:  logger,
	}
}

// Users exposes the underlying user store for read paths.
func (s *Service) Users() *userstore.Store { return s.users }

// Register creates a user with both root folders. Usernames share the
// reserved-character rules of folder and image names and are unique after
// case folding.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username, err := names.Validate(username)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fault.New(fault.InvalidArgument, "password must be at least %d characters", minPasswordLength)
	}
	exists, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "checking username %q", username)
	}
	if exists {
		return nil, fault.New(fault.Conflict, "username %q is taken", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fault.Wrap(fault.IOFailure, err, "hashing password")
	}

	u := &models.User{
		ID:                 uuid.New().String(),
		Username:           username,
		PasswordHash:       string(hash),
		RootFolderID:       uuid.New().String(),
		SharedRootFolderID: uuid.New().String(),
	}
	err = txn.Run(ctx, s.db, s.logger, func(ctx context.Context) error {
		for _, f := range []*models.Folder{
			{ID: u.RootFolderID, Name: RootFolderName, OwnerID: u.ID},
			{ID: u.SharedRootFolderID, Name: SharedRootFolderName, OwnerID: u.ID},
		} {
			if err := s.folders.Insert(ctx, f); err != nil {
				return err
			}
		}
		return s.users.Insert(ctx, u)
	})
	if err != nil {
		// The unique index wins races the earlier existence check missed.
		if mongo.IsDuplicateKeyError(err) {
			return nil, fault.New(fault.Conflict, "username %q is taken", username)
		}
		return nil, fault.Wrap(fault.IOFailure, err, "creating account %q", username)
	}
	return u, nil
}

// Authenticate verifies a username/password pair. Unknown usernames and
// wrong passwords report the same PermissionDenied so callers cannot
// enumerate accounts.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.New(fault.PermissionDenied, "invalid credentials")
		}
		return nil, fault.Wrap(fault.IOFailure, err, "loading user %q", username)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fault.New(fault.PermissionDenied, "invalid credentials")
	}
	return u, nil
}

// Rename changes the user's username.
func (s *Service) Rename(ctx context.Context, userID, username string) error {
	username, err := names.Validate(username)
	if err != nil {
		return err
	}
	err = s.users.UpdateUsername(ctx, userID, username)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fault.New(fault.NotFound, "user %s not found", userID)
		}
		if mongo.IsDuplicateKeyError(err) {
			return fault.New(fault.Conflict, "username %q is taken", username)
		}
		return fault.Wrap(fault.IOFailure, err, "renaming user %s", userID)
	}
	return nil
}

// UpdatePassword replaces the user's password after verifying the current
// one.
func (s *Service) UpdatePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fault.New(fault.NotFound, "user %s not found", userID)
		}
		return fault.Wrap(fault.IOFailure, err, "loading user %s", userID)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return fault.New(fault.PermissionDenied, "invalid credentials")
	}
	if len(next) < minPasswordLength {
		return fault.New(fault.InvalidArgument, "password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fault.Wrap(fault.IOFailure, err, "hashing password")
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return fault.Wrap(fault.IOFailure, err, "updating password of %s", userID)
	}
	return nil
}

// Delete removes the account: inbound shares are severed first, then the
// owned tree (whose teardown notifies recipients of outbound shares), then
// the shared root, then the user record. Each stage is idempotent, so a
// partially deleted account can be deleted again.
func (s *Service) Delete(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fault.New(fault.NotFound, "user %s not found", userID)
		}
		return fault.Wrap(fault.IOFailure, err, "loading user %s", userID)
	}

	if err := s.shares.SeverInboundForUser(ctx, u); err != nil {
		return err
	}
	if err := s.hier.DeleteRoot(ctx, u.RootFolderID); err != nil {
		return err
	}
	if err := s.hier.DeleteRoot(ctx, u.SharedRootFolderID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return fault.Wrap(fault.IOFailure, err, "deleting user record %s", userID)
	}
	return nil
}
