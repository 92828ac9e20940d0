// Package folders provides persistence for the folder tree. Every folder
// row carries a denormalized full_path so listings and search never walk
// the tree at read time.
package folders

import (
	"context"

	"github.com/valetdrive/valetdrive/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, folder *models.Folder) (*models.Folder, error)
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	ListByParent(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Folder, error)
	Search(ctx context.Context, ownerID string, query string) ([]*models.Folder, error)
	ExistsByName(ctx context.Context, ownerID string, parentID *string, name string, excludeID string) (bool, error)
	Rename(ctx context.Context, id string, name string, fullPath string) error
	Move(ctx context.Context, id string, parentID *string, fullPath string) error
	UpdateFullPath(ctx context.Context, id string, fullPath string) error
	Delete(ctx context.Context, id string) error
}
