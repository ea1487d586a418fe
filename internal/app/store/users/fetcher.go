// internal/app/store/users/fetcher.go
package userstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/jwagner/imagevault/internal/app/system/auth"
	"github.com/jwagner/imagevault/internal/app/system/timeouts"
	"github.com/jwagner/imagevault/internal/domain/models"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each
// request, so renames and account deletions take effect immediately.
type Fetcher struct {
	users  *mongo.Collection
	logger *zap.Logger
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		users:  db.Collection("users"),
		logger: logger,
	}
}

// FetchUser retrieves a user by ID and returns nil if the user is not found
// or if any error occurs, which invalidates the session.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":                   1,
		"username":              1,
		"root_folder_id":        1,
		"shared_root_folder_id": 1,
	})
	err := f.users.FindOne(ctx, bson.M{"_id": userID}, proj).Decode(&u)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			f.logger.Warn("failed to fetch session user",
				zap.String("user_id", userID),
				zap.Error(err))
		}
		return nil
	}

	return &auth.SessionUser{
		ID:                 u.ID,
		Username:           u.Username,
		RootFolderID:       u.RootFolderID,
		SharedRootFolderID: u.SharedRootFolderID,
	}
}
