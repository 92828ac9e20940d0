package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valetdrive/valetdrive/internal/common"
	sc "github.com/valetdrive/valetdrive/internal/server/config"
	"github.com/valetdrive/valetdrive/internal/server/models"
	"github.com/valetdrive/valetdrive/internal/server/objectstore"
)

// ValetKeyService issues short-lived presigned URLs scoped to a single
// object and verb. Clients transfer bytes directly against the store;
// this server only hands out the keys.
type ValetKeyService struct {
	gateway objectstore.Gateway
	config  *sc.Config
}

func NewValetKeyService(gateway objectstore.Gateway, config *sc.Config) *ValetKeyService {
	return &ValetKeyService{gateway: gateway, config: config}
}

// BuildObjectKey derives a collision-free object key for a new upload.
// folderPath is the folder's denormalized path, or "" for the root. The
// key embeds a millisecond timestamp and a random suffix so repeated
// uploads of the same name never clash.
func BuildObjectKey(ownerID string, folderPath string, fileName string) string {
	now := time.Now().UnixMilli()
	if fileName == "" {
		fileName = fmt.Sprintf("unnamed_%d", now)
	}

	ext := path.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	rand8 := uuid.New().String()[:8]

	return fmt.Sprintf("user-%s%s/%s_%d_%s%s", ownerID, folderPath, base, now, rand8, ext)
}

// IssueUploadURL authorizes a single PUT of key. Either the create or the
// write permission suffices: issuing the key is cheaper than the full
// upload admission check done by the file service.
func (s *ValetKeyService) IssueUploadURL(ctx context.Context, user *models.User, key string, contentType string) (string, error) {
	if !user.CanCreate && !user.CanWrite {
		return "", common.ErrPermissionDenied
	}

	return s.gateway.PresignUpload(ctx, key, contentType, s.config.UploadURLTTL)
}

// IssueDownloadURL authorizes a GET of the file's object. The object's
// presence is verified first so clients never receive a key to a blob
// that was lost or never uploaded.
func (s *ValetKeyService) IssueDownloadURL(ctx context.Context, user *models.User, file *models.File) (string, error) {
	if !user.CanRead {
		return "", common.ErrPermissionDenied
	}

	exists, err := s.gateway.Exists(ctx, file.ObjectKey)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", common.ErrNotFound
	}

	return s.gateway.PresignDownload(ctx, file.ObjectKey, file.FileName, s.config.DownloadURLTTL)
}

// IssuePublicDownloadURL authorizes an anonymous GET via a public link.
// Public links get a longer lifetime than authenticated downloads.
func (s *ValetKeyService) IssuePublicDownloadURL(ctx context.Context, file *models.File) (string, error) {
	exists, err := s.gateway.Exists(ctx, file.ObjectKey)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", common.ErrNotFound
	}

	return s.gateway.PresignDownload(ctx, file.ObjectKey, file.FileName, s.config.PublicDownloadURLTTL)
}
