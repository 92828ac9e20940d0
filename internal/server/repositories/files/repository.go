// Package files provides persistence for file metadata records. The blob
// content itself lives in object storage; rows here track names, sizes,
// upload state and public link tokens.
package files

import (
	"context"
	"time"

	"github.com/valetdrive/valetdrive/internal/server/models"
)

// ListFilter narrows and orders file listings.
type ListFilter struct {
	OwnerID string

	// FolderID is applied only when InFolder is set. A nil FolderID with
	// InFolder selects root-level files.
	FolderID *string
	InFolder bool

	// Status filters on upload_status when non-empty.
	Status string

	// Query is a case-insensitive substring match on file_name.
	Query string

	// SortBy is one of "name", "size", "date". Unknown values fall back
	// to "name".
	SortBy   string
	SortDesc bool

	Limit  int
	Offset int
}

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)
	GetByPublicToken(ctx context.Context, token string) (*models.File, error)
	List(ctx context.Context, filter ListFilter) ([]*models.File, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	ListByIDsAndOwner(ctx context.Context, ownerID string, ids []string) ([]*models.File, error)
	SumCompletedSize(ctx context.Context, ownerID string) (int64, error)
	MarkCompleted(ctx context.Context, id string, size int64, contentType string) error
	MarkFailed(ctx context.Context, id string) error
	Rename(ctx context.Context, id string, fileName string) error
	Move(ctx context.Context, id string, folderID *string) error
	SetPublicToken(ctx context.Context, id string, token *string, isPublic bool, createdAt *time.Time) error
	Delete(ctx context.Context, id string) error
}
