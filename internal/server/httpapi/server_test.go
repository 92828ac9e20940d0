package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/valetdrive/valetdrive/internal/logging"
	"github.com/valetdrive/valetdrive/internal/server/auth"
	"github.com/valetdrive/valetdrive/internal/server/models"
	"github.com/valetdrive/valetdrive/internal/server/services"
)

// -------- stub services --------

type stubUsers struct {
	register          func(ctx context.Context, username, password string) (*models.User, error)
	login             func(ctx context.Context, username, password string) (string, *models.User, error)
	getByID           func(ctx context.Context, id string) (*models.User, error)
	list              func(ctx context.Context, actorID string) ([]*models.User, error)
	updatePermissions func(ctx context.Context, actorID, targetID string, canCreate, canRead, canWrite bool) error
	updateQuota       func(ctx context.Context, actorID, targetID string, quota int64) error
}

func (s *stubUsers) Register(ctx context.Context, username, password string) (*models.User, error) {
	return s.register(ctx, username, password)
}
func (s *stubUsers) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	return s.login(ctx, username, password)
}
func (s *stubUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByID(ctx, id)
}
func (s *stubUsers) List(ctx context.Context, actorID string) ([]*models.User, error) {
	return s.list(ctx, actorID)
}
func (s *stubUsers) UpdatePermissions(ctx context.Context, actorID, targetID string, canCreate, canRead, canWrite bool) error {
	return s.updatePermissions(ctx, actorID, targetID, canCreate, canRead, canWrite)
}
func (s *stubUsers) UpdateQuota(ctx context.Context, actorID, targetID string, quota int64) error {
	return s.updateQuota(ctx, actorID, targetID, quota)
}

type stubFolders struct {
	create   func(ctx context.Context, ownerID string, parentID *string, name string) (*models.Folder, error)
	metadata func(ctx context.Context, ownerID, folderID string) (*services.FolderMetadata, error)
	listAll  func(ctx context.Context, ownerID string) ([]*models.Folder, error)
	tree     func(ctx context.Context, ownerID string) ([]*services.FolderNode, error)
	search   func(ctx context.Context, ownerID, query string) ([]*models.Folder, error)
	contents func(ctx context.Context, ownerID string, folderID *string, sortBy string, sortDesc bool, page, pageSize int) (*services.FolderContents, error)
	rename   func(ctx context.Context, ownerID, folderID, newName string) (*models.Folder, error)
	move     func(ctx context.Context, ownerID, folderID string, newParentID *string) (*models.Folder, error)
	del      func(ctx context.Context, ownerID, folderID string, recursive bool) error
}

func (s *stubFolders) Create(ctx context.Context, ownerID string, parentID *string, name string) (*models.Folder, error) {
	return s.create(ctx, ownerID, parentID, name)
}
func (s *stubFolders) Metadata(ctx context.Context, ownerID, folderID string) (*services.FolderMetadata, error) {
	return s.metadata(ctx, ownerID, folderID)
}
func (s *stubFolders) ListAll(ctx context.Context, ownerID string) ([]*models.Folder, error) {
	return s.listAll(ctx, ownerID)
}
func (s *stubFolders) Tree(ctx context.Context, ownerID string) ([]*services.FolderNode, error) {
	return s.tree(ctx, ownerID)
}
func (s *stubFolders) Search(ctx context.Context, ownerID, query string) ([]*models.Folder, error) {
	return s.search(ctx, ownerID, query)
}
func (s *stubFolders) Contents(ctx context.Context, ownerID string, folderID *string, sortBy string, sortDesc bool, page, pageSize int) (*services.FolderContents, error) {
	return s.contents(ctx, ownerID, folderID, sortBy, sortDesc, page, pageSize)
}
func (s *stubFolders) Rename(ctx context.Context, ownerID, folderID, newName string) (*models.Folder, error) {
	return s.rename(ctx, ownerID, folderID, newName)
}
func (s *stubFolders) Move(ctx context.Context, ownerID, folderID string, newParentID *string) (*models.Folder, error) {
	return s.move(ctx, ownerID, folderID, newParentID)
}
func (s *stubFolders) Delete(ctx context.Context, ownerID, folderID string, recursive bool) error {
	return s.del(ctx, ownerID, folderID, recursive)
}

type stubFiles struct {
	requestUpload func(ctx context.Context, ownerID string, folderID *string, fileName string, size int64, contentType string) (*services.UploadTicket, error)
	confirmUpload func(ctx context.Context, ownerID, fileID, contentType string) (*models.File, error)
	get           func(ctx context.Context, ownerID, fileID string) (*models.File, error)
	downloadURL   func(ctx context.Context, ownerID, fileID string) (*services.DownloadTicket, error)
	del           func(ctx context.Context, ownerID, fileID string) error
	rename        func(ctx context.Context, ownerID, fileID, newName string) (*models.File, error)
	move          func(ctx context.Context, ownerID, fileID string, folderID *string) (*models.File, error)
	listAll       func(ctx context.Context, ownerID string) ([]*models.File, error)
	search        func(ctx context.Context, ownerID, query string) ([]*models.File, error)
	bulkDelete    func(ctx context.Context, ownerID string, ids []string) ([]string, error)
	bulkMove      func(ctx context.Context, ownerID string, ids []string, folderID *string) ([]string, error)
}

func (s *stubFiles) RequestUpload(ctx context.Context, ownerID string, folderID *string, fileName string, size int64, contentType string) (*services.UploadTicket, error) {
	return s.requestUpload(ctx, ownerID, folderID, fileName, size, contentType)
}
func (s *stubFiles) ConfirmUpload(ctx context.Context, ownerID, fileID, contentType string) (*models.File, error) {
	return s.confirmUpload(ctx, ownerID, fileID, contentType)
}
func (s *stubFiles) Get(ctx context.Context, ownerID, fileID string) (*models.File, error) {
	return s.get(ctx, ownerID, fileID)
}
func (s *stubFiles) DownloadURL(ctx context.Context, ownerID, fileID string) (*services.DownloadTicket, error) {
	return s.downloadURL(ctx, ownerID, fileID)
}
func (s *stubFiles) Delete(ctx context.Context, ownerID, fileID string) error {
	return s.del(ctx, ownerID, fileID)
}
func (s *stubFiles) Rename(ctx context.Context, ownerID, fileID, newName string) (*models.File, error) {
	return s.rename(ctx, ownerID, fileID, newName)
}
func (s *stubFiles) Move(ctx context.Context, ownerID, fileID string, folderID *string) (*models.File, error) {
	return s.move(ctx, ownerID, fileID, folderID)
}
func (s *stubFiles) ListAll(ctx context.Context, ownerID string) ([]*models.File, error) {
	return s.listAll(ctx, ownerID)
}
func (s *stubFiles) Search(ctx context.Context, ownerID, query string) ([]*models.File, error) {
	return s.search(ctx, ownerID, query)
}
func (s *stubFiles) BulkDelete(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	return s.bulkDelete(ctx, ownerID, ids)
}
func (s *stubFiles) BulkMove(ctx context.Context, ownerID string, ids []string, folderID *string) ([]string, error) {
	return s.bulkMove(ctx, ownerID, ids, folderID)
}

type stubLinks struct {
	generate    func(ctx context.Context, ownerID, fileID string) (string, error)
	revoke      func(ctx context.Context, ownerID, fileID string) error
	resolve     func(ctx context.Context, token string) (*models.File, error)
	downloadURL func(ctx context.Context, token string) (*services.DownloadTicket, error)
}

func (s *stubLinks) Generate(ctx context.Context, ownerID, fileID string) (string, error) {
	return s.generate(ctx, ownerID, fileID)
}
func (s *stubLinks) Revoke(ctx context.Context, ownerID, fileID string) error {
	return s.revoke(ctx, ownerID, fileID)
}
func (s *stubLinks) Resolve(ctx context.Context, token string) (*models.File, error) {
	return s.resolve(ctx, token)
}
func (s *stubLinks) DownloadURL(ctx context.Context, token string) (*services.DownloadTicket, error) {
	return s.downloadURL(ctx, token)
}

type stubQuota struct {
	storageInfo func(ctx context.Context, ownerID string) (*services.StorageInfo, error)
}

func (s *stubQuota) StorageInfo(ctx context.Context, ownerID string) (*services.StorageInfo, error) {
	return s.storageInfo(ctx, ownerID)
}

// -------- helpers --------

const testSecret = "test-secret"

type apiEnv struct {
	server  *Server
	users   *stubUsers
	folders *stubFolders
	files   *stubFiles
	links   *stubLinks
	quota   *stubQuota
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	env := &apiEnv{
		users:   &stubUsers{},
		folders: &stubFolders{},
		files:   &stubFiles{},
		links:   &stubLinks{},
		quota:   &stubQuota{},
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	env.server = NewServer(":0", []byte(testSecret), logger,
		env.users, env.folders, env.files, env.links, env.quota)

	return env
}

func (e *apiEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, []byte(testSecret), time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode error: %v (body %s)", err, rec.Body.String())
	}
}
