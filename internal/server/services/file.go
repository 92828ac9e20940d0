package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valetdrive/valetdrive/internal/common"
	"github.com/valetdrive/valetdrive/internal/logging"
	"github.com/valetdrive/valetdrive/internal/server/events"
	"github.com/valetdrive/valetdrive/internal/server/models"
	"github.com/valetdrive/valetdrive/internal/server/objectstore"
	"github.com/valetdrive/valetdrive/internal/server/repositories/files"
	"github.com/valetdrive/valetdrive/internal/server/repositories/repomanager"
)

const listAllBatchSize = 200

// FileService manages file metadata and the two-phase upload flow: a
// PENDING record plus a valet key first, a COMPLETED record only after
// the object's presence in the store is verified.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gateway     objectstore.Gateway
	valet       *ValetKeyService
	quota       *QuotaService
	publisher   events.Publisher
	logger      logging.Logger
}

func NewFileService(db *sql.DB, rm repomanager.RepositoryManager, gateway objectstore.Gateway,
	valet *ValetKeyService, quota *QuotaService, publisher events.Publisher, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: rm,
		gateway:     gateway,
		valet:       valet,
		quota:       quota,
		publisher:   publisher,
		logger:      logger,
	}
}

func validateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: file name is empty", common.ErrInvalidInput)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: file name contains path separators", common.ErrInvalidInput)
	}
	return nil
}

func (s *FileService) getOwnedFile(ctx context.Context, fileID string, ownerID string) (*models.File, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, common.ErrAccessDenied
	}
	return file, nil
}

func (s *FileService) getUser(ctx context.Context, ownerID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, ownerID)
}

func (s *FileService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn(ctx, "event publish failed", "type", event.Type, "error", err)
	}
}

// RequestUpload admits a new upload: quota is reconciled and checked, a
// PENDING record is written, and a valet key for the PUT is issued. The
// declared size is what the quota admits; the record turns COMPLETED only
// via ConfirmUpload.
func (s *FileService) RequestUpload(ctx context.Context, ownerID string, folderID *string,
	fileName string, size int64, contentType string) (*UploadTicket, error) {

	user, err := s.getUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !user.CanCreate || !user.CanWrite {
		return nil, common.ErrPermissionDenied
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: file size must be positive", common.ErrInvalidInput)
	}

	folderPath := ""
	if folderID != nil {
		folder, err := getOwnedFolder(ctx, s.repomanager.Folders(s.db), ownerID, *folderID)
		if err != nil {
			return nil, err
		}
		folderPath = folder.FullPath
	}

	ok, err := s.quota.HasSpace(ctx, ownerID, user.StorageQuota, size)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrQuotaExceeded
	}

	if strings.TrimSpace(fileName) == "" {
		fileName = fmt.Sprintf("unnamed_%d", time.Now().UnixMilli())
	} else if err := validateFileName(fileName); err != nil {
		return nil, err
	}

	key := BuildObjectKey(ownerID, folderPath, fileName)

	uploadURL, err := s.valet.IssueUploadURL(ctx, user, key, contentType)
	if err != nil {
		return nil, err
	}

	file := &models.File{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		FolderID:     folderID,
		FileName:     fileName,
		OriginalName: fileName,
		ObjectKey:    key,
		FileSize:     size,
		ContentType:  contentType,
		UploadStatus: models.UploadStatusPending,
	}

	created, err := s.repomanager.Files(s.db).Create(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("error creating file record: %w", err)
	}

	s.publish(ctx, events.Event{
		Type: events.TypeUploadRequested, OwnerID: ownerID, FileID: created.ID,
		ObjectKey: key, Size: size,
	})

	return &UploadTicket{
		File:             created,
		UploadURL:        uploadURL,
		ExpiresInMinutes: int(s.valet.config.UploadURLTTL.Minutes()),
	}, nil
}

// ConfirmUpload finalizes a pending upload after verifying the object is
// actually in the store. A missing object means the client never finished
// the PUT: the stale PENDING record is removed and the upload must be
// requested again. Confirming an already completed file is a no-op.
func (s *FileService) ConfirmUpload(ctx context.Context, ownerID string, fileID string, contentType string) (*models.File, error) {
	file, err := s.getOwnedFile(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}
	if file.UploadStatus == models.UploadStatusCompleted {
		return file, nil
	}

	fileRepo := s.repomanager.Files(s.db)

	exists, err := s.gateway.Exists(ctx, file.ObjectKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		// mark first so a failed cleanup leaves a diagnosable FAILED row
		// instead of a record that still looks in-flight
		if err := fileRepo.MarkFailed(ctx, fileID); err != nil {
			s.logger.Warn(ctx, "marking upload failed", "file_id", fileID, "error", err)
		}
		if err := fileRepo.Delete(ctx, fileID); err != nil {
			s.logger.Warn(ctx, "stale record cleanup failed", "file_id", fileID, "error", err)
		}
		return nil, fmt.Errorf("%w: upload failed, object not found", common.ErrUpstreamStorage)
	}

	if err := fileRepo.MarkCompleted(ctx, fileID, file.FileSize, contentType); err != nil {
		return nil, fmt.Errorf("error completing upload: %w", err)
	}

	if _, err := s.quota.Reconcile(ctx, ownerID); err != nil {
		s.logger.Warn(ctx, "quota reconcile after upload failed", "owner_id", ownerID, "error", err)
	}

	s.publish(ctx, events.Event{
		Type: events.TypeUploadConfirmed, OwnerID: ownerID, FileID: fileID,
		ObjectKey: file.ObjectKey, Size: file.FileSize,
	})

	return fileRepo.GetByID(ctx, fileID)
}

// Get returns one owned file record.
func (s *FileService) Get(ctx context.Context, ownerID string, fileID string) (*models.File, error) {
	return s.getOwnedFile(ctx, fileID, ownerID)
}

// DownloadURL issues a valet key for the file's object.
func (s *FileService) DownloadURL(ctx context.Context, ownerID string, fileID string) (*DownloadTicket, error) {
	user, err := s.getUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	file, err := s.getOwnedFile(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}

	url, err := s.valet.IssueDownloadURL(ctx, user, file)
	if err != nil {
		return nil, err
	}

	return &DownloadTicket{
		DownloadURL:      url,
		ExpiresInMinutes: int(s.valet.config.DownloadURLTTL.Minutes()),
	}, nil
}

// Delete removes the object from the store first, then the record. A
// record is never deleted while its blob might still exist.
func (s *FileService) Delete(ctx context.Context, ownerID string, fileID string) error {
	user, err := s.getUser(ctx, ownerID)
	if err != nil {
		return err
	}
	if !user.CanWrite {
		return common.ErrPermissionDenied
	}

	file, err := s.getOwnedFile(ctx, fileID, ownerID)
	if err != nil {
		return err
	}

	if err := s.gateway.Delete(ctx, file.ObjectKey); err != nil {
		return fmt.Errorf("error deleting object %s: %w", file.ObjectKey, err)
	}

	if err := s.repomanager.Files(s.db).Delete(ctx, fileID); err != nil {
		return fmt.Errorf("error deleting file record: %w", err)
	}

	if _, err := s.quota.Reconcile(ctx, ownerID); err != nil {
		s.logger.Warn(ctx, "quota reconcile after delete failed", "owner_id", ownerID, "error", err)
	}

	s.publish(ctx, events.Event{
		Type: events.TypeFileDeleted, OwnerID: ownerID, FileID: fileID, ObjectKey: file.ObjectKey,
	})

	return nil
}

// Rename changes the display name. The object key is immutable, so no
// object-store call is involved.
func (s *FileService) Rename(ctx context.Context, ownerID string, fileID string, newName string) (*models.File, error) {
	user, err := s.getUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !user.CanWrite {
		return nil, common.ErrPermissionDenied
	}
	if err := validateFileName(newName); err != nil {
		return nil, err
	}

	file, err := s.getOwnedFile(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}

	fileRepo := s.repomanager.Files(s.db)
	if err := fileRepo.Rename(ctx, fileID, newName); err != nil {
		return nil, err
	}

	file.FileName = newName
	return file, nil
}

// Move reassigns the file to another folder (nil for the root).
func (s *FileService) Move(ctx context.Context, ownerID string, fileID string, folderID *string) (*models.File, error) {
	user, err := s.getUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !user.CanWrite {
		return nil, common.ErrPermissionDenied
	}

	file, err := s.getOwnedFile(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}

	if folderID != nil {
		if _, err := getOwnedFolder(ctx, s.repomanager.Folders(s.db), ownerID, *folderID); err != nil {
			return nil, err
		}
	}

	if err := s.repomanager.Files(s.db).Move(ctx, fileID, folderID); err != nil {
		return nil, err
	}

	file.FolderID = folderID
	return file, nil
}

// ListAll returns every completed file of the owner, fetched in fixed-size
// batches so a huge account cannot produce one unbounded query.
func (s *FileService) ListAll(ctx context.Context, ownerID string) ([]*models.File, error) {
	fileRepo := s.repomanager.Files(s.db)

	var all []*models.File
	offset := 0
	for {
		batch, err := fileRepo.List(ctx, files.ListFilter{
			OwnerID: ownerID,
			Status:  models.UploadStatusCompleted,
			SortBy:  "name",
			Limit:   listAllBatchSize,
			Offset:  offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < listAllBatchSize {
			return all, nil
		}
		offset += listAllBatchSize
	}
}

// Search matches completed files by name across all folders.
func (s *FileService) Search(ctx context.Context, ownerID string, query string) ([]*models.File, error) {
	return s.repomanager.Files(s.db).List(ctx, files.ListFilter{
		OwnerID: ownerID,
		Status:  models.UploadStatusCompleted,
		Query:   query,
		SortBy:  "name",
	})
}

// BulkDelete removes the owned subset of ids and reports which records
// actually went away. Foreign and unknown ids are skipped without error.
func (s *FileService) BulkDelete(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	user, err := s.getUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !user.CanWrite {
		return nil, common.ErrPermissionDenied
	}

	owned, err := s.repomanager.Files(s.db).ListByIDsAndOwner(ctx, ownerID, ids)
	if err != nil {
		return nil, err
	}

	fileRepo := s.repomanager.Files(s.db)
	deleted := make([]string, 0, len(owned))
	for _, file := range owned {
		if err := s.gateway.Delete(ctx, file.ObjectKey); err != nil {
			s.logger.Warn(ctx, "bulk delete: object removal failed", "object_key", file.ObjectKey, "error", err)
			continue
		}
		if err := fileRepo.Delete(ctx, file.ID); err != nil {
			s.logger.Warn(ctx, "bulk delete: record removal failed", "file_id", file.ID, "error", err)
			continue
		}
		deleted = append(deleted, file.ID)
		s.publish(ctx, events.Event{
			Type: events.TypeFileDeleted, OwnerID: ownerID, FileID: file.ID, ObjectKey: file.ObjectKey,
		})
	}

	if _, err := s.quota.Reconcile(ctx, ownerID); err != nil {
		s.logger.Warn(ctx, "quota reconcile after bulk delete failed", "owner_id", ownerID, "error", err)
	}

	return deleted, nil
}

// BulkMove moves the owned subset of ids into folderID (nil for the root)
// and reports which records moved.
func (s *FileService) BulkMove(ctx context.Context, ownerID string, ids []string, folderID *string) ([]string, error) {
	user, err := s.getUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !user.CanWrite {
		return nil, common.ErrPermissionDenied
	}

	if folderID != nil {
		if _, err := getOwnedFolder(ctx, s.repomanager.Folders(s.db), ownerID, *folderID); err != nil {
			return nil, err
		}
	}

	owned, err := s.repomanager.Files(s.db).ListByIDsAndOwner(ctx, ownerID, ids)
	if err != nil {
		return nil, err
	}

	fileRepo := s.repomanager.Files(s.db)
	moved := make([]string, 0, len(owned))
	for _, file := range owned {
		if err := fileRepo.Move(ctx, file.ID, folderID); err != nil {
			s.logger.Warn(ctx, "bulk move failed", "file_id", file.ID, "error", err)
			continue
		}
		moved = append(moved, file.ID)
	}

	return moved, nil
}
