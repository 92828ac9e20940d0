// Package models defines server-side data models persisted in the database.
package models

import "time"

// DefaultStorageQuota is the storage allowance for newly created users (1 GiB).
const DefaultStorageQuota int64 = 1073741824

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an authenticated principal. Permission flags gate what valet keys
// may be issued on the user's behalf.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string

	CanCreate bool
	CanRead   bool
	CanWrite  bool

	// StorageQuota is the allowance in bytes; StorageUsed is a cached
	// aggregate that is reconciled from file records before any
	// quota-sensitive decision, never trusted on its own.
	StorageQuota int64
	StorageUsed  int64

	CreatedAt time.Time
}

// RemainingStorage returns the unreconciled free space in bytes.
func (u *User) RemainingStorage() int64 {
	return u.StorageQuota - u.StorageUsed
}
