package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/valetdrive/valetdrive/internal/common"
	"github.com/valetdrive/valetdrive/internal/logging"
	"github.com/valetdrive/valetdrive/internal/server/events"
	"github.com/valetdrive/valetdrive/internal/server/models"
	"github.com/valetdrive/valetdrive/internal/server/repositories/repomanager"
)

// PublicLinkService manages anonymous share links. Possession of the
// token is the only credential: resolving it requires no account.
type PublicLinkService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	valet       *ValetKeyService
	publisher   events.Publisher
	logger      logging.Logger
}

func NewPublicLinkService(db *sql.DB, rm repomanager.RepositoryManager, valet *ValetKeyService,
	publisher events.Publisher, logger logging.Logger) *PublicLinkService {
	return &PublicLinkService{db: db, repomanager: rm, valet: valet, publisher: publisher, logger: logger}
}

func (s *PublicLinkService) getOwnedFile(ctx context.Context, ownerID string, fileID string) (*models.File, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, common.ErrAccessDenied
	}
	return file, nil
}

// Generate issues a share token for a completed file. Generating twice
// returns the existing token unchanged.
func (s *PublicLinkService) Generate(ctx context.Context, ownerID string, fileID string) (string, error) {
	file, err := s.getOwnedFile(ctx, ownerID, fileID)
	if err != nil {
		return "", err
	}
	if file.UploadStatus != models.UploadStatusCompleted {
		return "", fmt.Errorf("%w: file upload is not completed", common.ErrInvalidInput)
	}

	if file.IsPublic && file.PublicToken != nil {
		return *file.PublicToken, nil
	}

	token := uuid.NewString()
	now := time.Now()
	if err := s.repomanager.Files(s.db).SetPublicToken(ctx, fileID, &token, true, &now); err != nil {
		return "", fmt.Errorf("error creating public link: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type: events.TypeLinkCreated, OwnerID: ownerID, FileID: fileID,
	}); err != nil {
		s.logger.Warn(ctx, "event publish failed", "type", events.TypeLinkCreated, "error", err)
	}

	return token, nil
}

// Revoke clears the share token. Revoking an unshared file is a no-op.
func (s *PublicLinkService) Revoke(ctx context.Context, ownerID string, fileID string) error {
	file, err := s.getOwnedFile(ctx, ownerID, fileID)
	if err != nil {
		return err
	}
	if !file.IsPublic && file.PublicToken == nil {
		return nil
	}

	if err := s.repomanager.Files(s.db).SetPublicToken(ctx, fileID, nil, false, nil); err != nil {
		return fmt.Errorf("error revoking public link: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type: events.TypeLinkRevoked, OwnerID: ownerID, FileID: fileID,
	}); err != nil {
		s.logger.Warn(ctx, "event publish failed", "type", events.TypeLinkRevoked, "error", err)
	}

	return nil
}

// Resolve returns the metadata behind a share token.
func (s *PublicLinkService) Resolve(ctx context.Context, token string) (*models.File, error) {
	return s.repomanager.Files(s.db).GetByPublicToken(ctx, token)
}

// DownloadURL resolves a share token and issues an anonymous valet key.
func (s *PublicLinkService) DownloadURL(ctx context.Context, token string) (*DownloadTicket, error) {
	file, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	url, err := s.valet.IssuePublicDownloadURL(ctx, file)
	if err != nil {
		return nil, err
	}
	return &DownloadTicket{
		DownloadURL:      url,
		ExpiresInMinutes: int(s.valet.config.PublicDownloadURLTTL.Minutes()),
	}, nil
}
