package models

import "time"

// User represents an account in the identity directory.
//
// Every user owns exactly two root folders, created atomically at
// registration: RootFolderID ("Home") holds the user's own tree, and
// SharedRootFolderID ("Shared With Me") collects folders other users have
// shared with them. Both live exactly as long as the user record.
type User struct {
	ID         string `bson:"_id" json:"id"`
	Username   string `bson:"username" json:"username"`
	UsernameCI string `bson:"username_ci" json:"-"` // folded for case/diacritic-insensitive uniqueness

	PasswordHash string `bson:"password_hash" json:"-"` // bcrypt hash (never in JSON)

	RootFolderID       string `bson:"root_folder_id" json:"root_folder_id"`
	SharedRootFolderID string `bson:"shared_root_folder_id" json:"shared_root_folder_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
