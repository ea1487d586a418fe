// Package folder provides storage for folder records.
//
// Membership lists and sizes are mutated with MongoDB update operators
// ($push, $pull, $addToSet, $inc) so each per-record edit is atomic; two
// concurrent size-propagation walks over overlapping ancestors cannot lose
// an update. Lookups pass through mongo.ErrNoDocuments unchanged; services
// translate it into the fault taxonomy.
package folder

import (
	"context"
	"time"

	"github.com/jwagner/imagevault/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store provides access to the folders collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new folder store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("folders")}
}

// Insert persists a new folder record. The caller supplies the id;
// timestamps and empty membership lists are filled in here.
func (s *Store) Insert(ctx context.Context, f *models.Folder) error {
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	if f.SubfolderIDs == nil {
		f.SubfolderIDs = []string{}
	}
	if f.ImageIDs == nil {
		f.ImageIDs = []string{}
	}
	if f.SharedWithUserIDs == nil {
		f.SharedWithUserIDs = []string{}
	}
	_, err := s.c.InsertOne(ctx, f)
	return err
}

// GetByID retrieves a folder by id.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	var f models.Folder
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByIDs retrieves multiple folders. The result carries no particular
// order; callers that need insertion order re-sort by their id list.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]models.Folder, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var folders []models.Folder
	if err := cur.All(ctx, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// Delete removes a folder record.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// PushSubfolder appends childID to the parent's subfolder list.
func (s *Store) PushSubfolder(ctx context.Context, parentID, childID string) error {
	return s.update(ctx, parentID, bson.M{
		"$push": bson.M{"subfolder_ids": childID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// AddSubfolder adds childID to the parent's subfolder list at most once.
// $addToSet keeps the set semantics even under concurrent share calls;
// sharing uses this for the overlay entry in a recipient's shared root,
// where the id may already be present.
func (s *Store) AddSubfolder(ctx context.Context, parentID, childID string) error {
	return s.update(ctx, parentID, bson.M{
		"$addToSet": bson.M{"subfolder_ids": childID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// PullSubfolder removes childID from the parent's subfolder list. Removing
// an id that is not present is a no-op, not an error.
func (s *Store) PullSubfolder(ctx context.Context, parentID, childID string) error {
	return s.update(ctx, parentID, bson.M{
		"$pull": bson.M{"subfolder_ids": childID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// PushImage appends imageID to the folder's image list.
func (s *Store) PushImage(ctx context.Context, folderID, imageID string) error {
	return s.update(ctx, folderID, bson.M{
		"$push": bson.M{"image_ids": imageID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// PullImage removes imageID from the folder's image list.
func (s *Store) PullImage(ctx context.Context, folderID, imageID string) error {
	return s.update(ctx, folderID, bson.M{
		"$pull": bson.M{"image_ids": imageID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// AddSharedUser records that the folder is shared with userID. $addToSet
// keeps the set semantics even under concurrent share calls.
func (s *Store) AddSharedUser(ctx context.Context, folderID, userID string) error {
	return s.update(ctx, folderID, bson.M{
		"$addToSet": bson.M{"shared_with_user_ids": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveSharedUser removes userID from the folder's share set.
func (s *Store) RemoveSharedUser(ctx context.Context, folderID, userID string) error {
	return s.update(ctx, folderID, bson.M{
		"$pull": bson.M{"shared_with_user_ids": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// IncrementSize atomically adds delta (which may be negative) to the
// folder's aggregate size. This is the only way sizes change.
func (s *Store) IncrementSize(ctx context.Context, id string, delta int64) error {
	return s.update(ctx, id, bson.M{
		"$inc": bson.M{"size": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
}

// ListSharedWithUser returns every folder whose share set contains userID.
// Backed by the shared_with_user_ids index; used when severing a user's
// inbound shares during account deletion.
func (s *Store) ListSharedWithUser(ctx context.Context, userID string) ([]models.Folder, error) {
	cur, err := s.c.Find(ctx, bson.M{"shared_with_user_ids": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var folders []models.Folder
	if err := cur.All(ctx, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// NameExistsAmong reports whether any folder whose id is in ids carries the
// given name (case-sensitive exact match). Used for sibling uniqueness.
func (s *Store) NameExistsAmong(ctx context.Context, ids []string, name string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}
	count, err := s.c.CountDocuments(ctx, bson.M{
		"_id":  bson.M{"$in": ids},
		"name": name,
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// update applies a single-document update and surfaces a missing target as
// mongo.ErrNoDocuments so callers can classify it.
func (s *Store) update(ctx context.Context, id string, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
