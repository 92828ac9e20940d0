package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/valetdrive/valetdrive/internal/logging"
	"github.com/valetdrive/valetdrive/internal/server/repositories/repomanager"
)

// QuotaService tracks per-user storage consumption. The cached
// users.storage_used aggregate is never trusted for admission decisions:
// it is recomputed from completed file records first.
type QuotaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewQuotaService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *QuotaService {
	return &QuotaService{db: db, repomanager: rm, logger: logger}
}

// Reconcile recomputes the owner's usage from completed uploads and writes
// it back to the user record. Returns the fresh total.
func (s *QuotaService) Reconcile(ctx context.Context, ownerID string) (int64, error) {
	fileRepo := s.repomanager.Files(s.db)
	userRepo := s.repomanager.Users(s.db)

	used, err := fileRepo.SumCompletedSize(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("error computing storage usage: %w", err)
	}

	if err := userRepo.UpdateStorageUsed(ctx, ownerID, used); err != nil {
		return 0, fmt.Errorf("error updating storage usage: %w", err)
	}

	return used, nil
}

// HasSpace reports whether the owner can store size more bytes. Usage is
// reconciled before the comparison.
func (s *QuotaService) HasSpace(ctx context.Context, ownerID string, quota int64, size int64) (bool, error) {
	used, err := s.Reconcile(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return used+size <= quota, nil
}

// StorageInfo returns reconciled usage figures for the owner.
func (s *QuotaService) StorageInfo(ctx context.Context, ownerID string) (*StorageInfo, error) {
	userRepo := s.repomanager.Users(s.db)

	user, err := userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	used, err := s.Reconcile(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	info := &StorageInfo{
		Used:      used,
		Quota:     user.StorageQuota,
		Remaining: user.StorageQuota - used,
	}
	if user.StorageQuota > 0 {
		info.UsedPercent = float64(used) / float64(user.StorageQuota) * 100
	}
	return info, nil
}
