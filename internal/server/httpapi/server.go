// Package httpapi exposes the metadata service over REST. Handlers stay
// thin: they bind the request, call a service and render the result. All
// byte transfer happens directly between clients and the object store
// using the issued valet keys.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valetdrive/valetdrive/internal/logging"
	"github.com/valetdrive/valetdrive/internal/server/models"
	"github.com/valetdrive/valetdrive/internal/server/services"
)

// UserService is the account surface the API needs.
type UserService interface {
	Register(ctx context.Context, username string, password string) (*models.User, error)
	Login(ctx context.Context, username string, password string) (string, *models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, actorID string) ([]*models.User, error)
	UpdatePermissions(ctx context.Context, actorID string, targetID string, canCreate, canRead, canWrite bool) error
	UpdateQuota(ctx context.Context, actorID string, targetID string, quota int64) error
}

// FolderService is the folder-tree surface the API needs.
type FolderService interface {
	Create(ctx context.Context, ownerID string, parentID *string, name string) (*models.Folder, error)
	Metadata(ctx context.Context, ownerID string, folderID string) (*services.FolderMetadata, error)
	ListAll(ctx context.Context, ownerID string) ([]*models.Folder, error)
	Tree(ctx context.Context, ownerID string) ([]*services.FolderNode, error)
	Search(ctx context.Context, ownerID string, query string) ([]*models.Folder, error)
	Contents(ctx context.Context, ownerID string, folderID *string, sortBy string, sortDesc bool, page int, pageSize int) (*services.FolderContents, error)
	Rename(ctx context.Context, ownerID string, folderID string, newName string) (*models.Folder, error)
	Move(ctx context.Context, ownerID string, folderID string, newParentID *string) (*models.Folder, error)
	Delete(ctx context.Context, ownerID string, folderID string, recursive bool) error
}

// FileService is the file-metadata surface the API needs.
type FileService interface {
	RequestUpload(ctx context.Context, ownerID string, folderID *string, fileName string, size int64, contentType string) (*services.UploadTicket, error)
	ConfirmUpload(ctx context.Context, ownerID string, fileID string, contentType string) (*models.File, error)
	Get(ctx context.Context, ownerID string, fileID string) (*models.File, error)
	DownloadURL(ctx context.Context, ownerID string, fileID string) (*services.DownloadTicket, error)
	Delete(ctx context.Context, ownerID string, fileID string) error
	Rename(ctx context.Context, ownerID string, fileID string, newName string) (*models.File, error)
	Move(ctx context.Context, ownerID string, fileID string, folderID *string) (*models.File, error)
	ListAll(ctx context.Context, ownerID string) ([]*models.File, error)
	Search(ctx context.Context, ownerID string, query string) ([]*models.File, error)
	BulkDelete(ctx context.Context, ownerID string, ids []string) ([]string, error)
	BulkMove(ctx context.Context, ownerID string, ids []string, folderID *string) ([]string, error)
}

// LinkService is the public-sharing surface the API needs.
type LinkService interface {
	Generate(ctx context.Context, ownerID string, fileID string) (string, error)
	Revoke(ctx context.Context, ownerID string, fileID string) error
	Resolve(ctx context.Context, token string) (*models.File, error)
	DownloadURL(ctx context.Context, token string) (*services.DownloadTicket, error)
}

// QuotaService is the storage-accounting surface the API needs.
type QuotaService interface {
	StorageInfo(ctx context.Context, ownerID string) (*services.StorageInfo, error)
}

// Server wires the REST routes to the services and owns the listener.
type Server struct {
	addr      string
	secretKey []byte
	logger    logging.Logger

	users   UserService
	folders FolderService
	files   FileService
	links   LinkService
	quota   QuotaService

	engine *gin.Engine
}

func NewServer(addr string, secretKey []byte, logger logging.Logger,
	users UserService, folders FolderService, files FileService,
	links LinkService, quota QuotaService) *Server {

	s := &Server{
		addr:      addr,
		secretKey: secretKey,
		logger:    logger,
		users:     users,
		folders:   folders,
		files:     files,
		links:     links,
		quota:     quota,
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)

	// anonymous access by share token only
	s.engine.GET("/public/:token", s.handleResolveLink)
	s.engine.GET("/public/:token/download", s.handlePublicDownload)

	authed := api.Group("", s.authRequired())

	authed.GET("/me", s.handleMe)
	authed.GET("/storage", s.handleStorageInfo)

	authed.POST("/folders", s.handleCreateFolder)
	authed.GET("/folders", s.handleListFolders)
	authed.GET("/folders/tree", s.handleFolderTree)
	authed.GET("/folders/search", s.handleSearchFolders)
	authed.GET("/folders/contents", s.handleFolderContents)
	authed.GET("/folders/:id", s.handleGetFolder)
	authed.PATCH("/folders/:id/rename", s.handleRenameFolder)
	authed.PATCH("/folders/:id/move", s.handleMoveFolder)
	authed.DELETE("/folders/:id", s.handleDeleteFolder)

	authed.POST("/files/upload-request", s.handleRequestUpload)
	authed.POST("/files/bulk-delete", s.handleBulkDelete)
	authed.POST("/files/bulk-move", s.handleBulkMove)
	authed.GET("/files", s.handleListFiles)
	authed.GET("/files/search", s.handleSearchFiles)
	authed.GET("/files/:id", s.handleGetFile)
	authed.POST("/files/:id/confirm", s.handleConfirmUpload)
	authed.GET("/files/:id/download", s.handleFileDownload)
	authed.PATCH("/files/:id/rename", s.handleRenameFile)
	authed.PATCH("/files/:id/move", s.handleMoveFile)
	authed.DELETE("/files/:id", s.handleDeleteFile)
	authed.POST("/files/:id/share", s.handleGenerateLink)
	authed.DELETE("/files/:id/share", s.handleRevokeLink)

	admin := authed.Group("/admin")
	admin.GET("/users", s.handleAdminListUsers)
	admin.PATCH("/users/:id/permissions", s.handleAdminUpdatePermissions)
	admin.PATCH("/users/:id/quota", s.handleAdminUpdateQuota)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
