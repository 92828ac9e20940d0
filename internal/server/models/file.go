package models

import "time"

// Upload lifecycle states. A record is created PENDING when an upload URL is
// issued and becomes COMPLETED only after the confirm step verifies the
// object exists in the store.
const (
	UploadStatusPending   = "PENDING"
	UploadStatusUploading = "UPLOADING"
	UploadStatusCompleted = "COMPLETED"
	UploadStatusFailed    = "FAILED"
)

// File is the metadata record for an object stored in the external blob
// store. The bytes themselves never pass through this service.
type File struct {
	ID       string
	OwnerID  string
	FolderID *string

	FileName     string
	OriginalName string

	// ObjectKey locates the object in the blob store. It is always
	// server-generated, never client-chosen.
	ObjectKey string

	FileSize    int64
	ContentType string

	UploadedAt   time.Time
	LastModified time.Time

	// Public sharing. PublicToken is unique when set; possession of the
	// token is the only credential for anonymous access.
	IsPublic             bool
	PublicToken          *string
	PublicTokenCreatedAt *time.Time

	// Trash fields. Reserved schema: no restore operation is exposed yet.
	IsDeleted        bool
	DeletedAt        *time.Time
	OriginalFolderID *string

	// Resumable-upload fields. Reserved schema: continuation is not
	// exposed yet.
	UploadSessionID *string
	UploadProgress  int64
	UploadStatus    string
}
