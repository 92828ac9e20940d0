package models

import "time"

// Folder is a node in a user's folder tree. ParentID is nil for root-level
// folders. FullPath is denormalized: it is rewritten on every rename or move
// and cascaded to all descendants, so reads never walk the ancestor chain.
type Folder struct {
	ID       string
	OwnerID  string
	ParentID *string
	Name     string

	// FullPath is "/" + Name at root, otherwise parent.FullPath + "/" + Name.
	FullPath string

	CreatedAt time.Time
	UpdatedAt time.Time
}
