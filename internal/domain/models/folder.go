package models

import "time"

// Folder is a node in the per-user ownership tree.
//
// Two distinct relations hang off a folder and must never be conflated:
//
//   - ParentID is the ownership edge. Every folder has exactly one parent
//     chain terminating at a root (ParentID == nil). Size aggregation and
//     cascading deletion follow only this relation.
//   - SubfolderIDs of a user's shared root may additionally reference
//     folders owned by other users. Those entries are overlay edges created
//     by sharing: the referenced folder's ParentID is untouched and its
//     size never counts toward the referencing tree.
//
// Size is the aggregate byte count of every image in this folder and all of
// its owned-tree descendants. It is maintained incrementally ($inc walks up
// the parent chain) rather than recomputed.
type Folder struct {
	ID       string  `bson:"_id" json:"id"`
	Name     string  `bson:"name" json:"name"` // unique among sibling folders
	OwnerID  string  `bson:"owner_id" json:"owner_id"`
	ParentID *string `bson:"parent_id,omitempty" json:"parent_id,omitempty"` // nil only for the two per-user roots
	Size     int64   `bson:"size" json:"size"`

	SubfolderIDs      []string `bson:"subfolder_ids" json:"subfolder_ids"` // insertion order
	ImageIDs          []string `bson:"image_ids" json:"image_ids"`         // insertion order
	SharedWithUserIDs []string `bson:"shared_with_user_ids" json:"shared_with_user_ids"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsRoot reports whether the folder is one of a user's two root folders.
// Roots are deleted only through account deletion.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

// SharedWith reports whether the folder is currently shared with the user.
func (f *Folder) SharedWith(userID string) bool {
	for _, id := range f.SharedWithUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasSubfolder reports whether id appears in SubfolderIDs.
func (f *Folder) HasSubfolder(id string) bool {
	for _, sid := range f.SubfolderIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// HasImage reports whether id appears in ImageIDs.
func (f *Folder) HasImage(id string) bool {
	for _, iid := range f.ImageIDs {
		if iid == id {
			return true
		}
	}
	return false
}
