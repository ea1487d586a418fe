package models

import "time"

// Image is a committed upload. The ID is a UUID plus the original file
// extension so it doubles as the content-store object key; Name is the
// user-visible filename, unique among sibling images in the containing
// folder and echoed in download headers. Size is immutable once committed.
type Image struct {
	ID          string `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Size        int64  `bson:"size" json:"size"`
	ContentType string `bson:"content_type" json:"content_type"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
