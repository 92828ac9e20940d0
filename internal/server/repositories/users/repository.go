// Package users provides persistence for user accounts, their permission
// flags and storage accounting fields.
package users

import (
	"context"

	"github.com/valetdrive/valetdrive/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdatePermissions(ctx context.Context, id string, canCreate, canRead, canWrite bool) error
	UpdateQuota(ctx context.Context, id string, quota int64) error
	UpdateStorageUsed(ctx context.Context, id string, used int64) error
}
