// Package image provides storage for image records.
package image

import (
	"context"
	"time"

	"github.com/jwagner/imagevault/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store provides access to the images collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new image store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("images")}
}

// Insert persists a new image record. The caller supplies the id, which
// doubles as the content-store object key.
func (s *Store) Insert(ctx context.Context, img *models.Image) error {
	img.CreatedAt = time.Now().UTC()
	_, err := s.c.InsertOne(ctx, img)
	return err
}

// GetByID retrieves an image by id.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Image, error) {
	var img models.Image
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&img); err != nil {
		return nil, err
	}
	return &img, nil
}

// GetByIDs retrieves multiple images; order is not significant.
func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]models.Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var images []models.Image
	if err := cur.All(ctx, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// Delete removes an image record.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// DeleteMany removes a batch of image records in one round trip; used by
// cascading folder deletion.
func (s *Store) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

// NameExistsAmong reports whether any image whose id is in ids carries the
// given name (case-sensitive exact match). Used for sibling uniqueness
// within a folder.
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
