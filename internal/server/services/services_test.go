package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/valetdrive/valetdrive/internal/common"
	"github.com/valetdrive/valetdrive/internal/dbx"
	"github.com/valetdrive/valetdrive/internal/logging"
	sc "github.com/valetdrive/valetdrive/internal/server/config"
	"github.com/valetdrive/valetdrive/internal/server/events"
	"github.com/valetdrive/valetdrive/internal/server/models"
	"github.com/valetdrive/valetdrive/internal/server/repositories/files"
	"github.com/valetdrive/valetdrive/internal/server/repositories/folders"
	"github.com/valetdrive/valetdrive/internal/server/repositories/repomanager"
	"github.com/valetdrive/valetdrive/internal/server/repositories/users"
)

// -------- test fakes --------

type fakeUsersRepo struct {
	users.Repository
	byID map[string]*models.User
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.CreatedAt = time.Now()
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	var result []*models.User
	for _, u := range f.byID {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (f *fakeUsersRepo) UpdatePermissions(ctx context.Context, id string, canCreate, canRead, canWrite bool) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.CanCreate, u.CanRead, u.CanWrite = canCreate, canRead, canWrite
	return nil
}

func (f *fakeUsersRepo) UpdateQuota(ctx context.Context, id string, quota int64) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.StorageQuota = quota
	return nil
}

func (f *fakeUsersRepo) UpdateStorageUsed(ctx context.Context, id string, used int64) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.StorageUsed = used
	return nil
}

type fakeFoldersRepo struct {
	folders.Repository
	byID map[string]*models.Folder
}

func newFakeFoldersRepo() *fakeFoldersRepo {
	return &fakeFoldersRepo{byID: map[string]*models.Folder{}}
}

func (f *fakeFoldersRepo) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	folder.CreatedAt = time.Now()
	folder.UpdatedAt = folder.CreatedAt
	f.byID[folder.ID] = folder
	return folder, nil
}

func (f *fakeFoldersRepo) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	folder, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return folder, nil
}

func (f *fakeFoldersRepo) ListByParent(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error) {
	var result []*models.Folder
	for _, folder := range f.byID {
		if folder.OwnerID == ownerID && sameParent(folder.ParentID, parentID) {
			result = append(result, folder)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (f *fakeFoldersRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.Folder, error) {
	var result []*models.Folder
	for _, folder := range f.byID {
		if folder.OwnerID == ownerID {
			result = append(result, folder)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullPath < result[j].FullPath })
	return result, nil
}

func (f *fakeFoldersRepo) Search(ctx context.Context, ownerID string, query string) ([]*models.Folder, error) {
	var result []*models.Folder
	for _, folder := range f.byID {
		if folder.OwnerID == ownerID && strings.Contains(strings.ToLower(folder.Name), strings.ToLower(query)) {
			result = append(result, folder)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullPath < result[j].FullPath })
	return result, nil
}

func (f *fakeFoldersRepo) ExistsByName(ctx context.Context, ownerID string, parentID *string, name string, excludeID string) (bool, error) {
	for _, folder := range f.byID {
		if folder.OwnerID == ownerID && sameParent(folder.ParentID, parentID) && folder.Name == name && folder.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFoldersRepo) Rename(ctx context.Context, id string, name string, fullPath string) error {
	folder, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	folder.Name = name
	folder.FullPath = fullPath
	folder.UpdatedAt = time.Now()
	return nil
}

func (f *fakeFoldersRepo) Move(ctx context.Context, id string, parentID *string, fullPath string) error {
	folder, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	folder.ParentID = parentID
	folder.FullPath = fullPath
	folder.UpdatedAt = time.Now()
	return nil
}

func (f *fakeFoldersRepo) UpdateFullPath(ctx context.Context, id string, fullPath string) error {
	folder, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	folder.FullPath = fullPath
	folder.UpdatedAt = time.Now()
	return nil
}

func (f *fakeFoldersRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeFilesRepo struct {
	files.Repository
	byID map[string]*models.File

	deleteErr error
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{byID: map[string]*models.File{}}
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	file.UploadedAt = time.Now()
	file.LastModified = file.UploadedAt
	f.byID[file.ID] = file
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	file, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return file, nil
}

func (f *fakeFilesRepo) GetByPublicToken(ctx context.Context, token string) (*models.File, error) {
	for _, file := range f.byID {
		if file.IsPublic && file.PublicToken != nil && *file.PublicToken == token {
			return file, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeFilesRepo) matches(file *models.File, filter files.ListFilter) bool {
	if file.OwnerID != filter.OwnerID {
		return false
	}
	if filter.InFolder && !sameParent(file.FolderID, filter.FolderID) {
		return false
	}
	if filter.Status != "" && file.UploadStatus != filter.Status {
		return false
	}
	if filter.Query != "" && !strings.Contains(strings.ToLower(file.FileName), strings.ToLower(filter.Query)) {
		return false
	}
	return true
}

func (f *fakeFilesRepo) List(ctx context.Context, filter files.ListFilter) ([]*models.File, error) {
	var result []*models.File
	for _, file := range f.byID {
		if f.matches(file, filter) {
			result = append(result, file)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		var less bool
		switch filter.SortBy {
		case "size":
			less = result[i].FileSize < result[j].FileSize
		case "date":
			less = result[i].UploadedAt.Before(result[j].UploadedAt)
		default:
			less = result[i].FileName < result[j].FileName
		}
		if filter.SortDesc {
			return !less
		}
		return less
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (f *fakeFilesRepo) Count(ctx context.Context, filter files.ListFilter) (int64, error) {
	var count int64
	for _, file := range f.byID {
		if f.matches(file, filter) {
			count++
		}
	}
	return count, nil
}

func (f *fakeFilesRepo) ListByIDsAndOwner(ctx context.Context, ownerID string, ids []string) ([]*models.File, error) {
	var result []*models.File
	for _, id := range ids {
		if file, ok := f.byID[id]; ok && file.OwnerID == ownerID {
			result = append(result, file)
		}
	}
	return result, nil
}

func (f *fakeFilesRepo) SumCompletedSize(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	for _, file := range f.byID {
		if file.OwnerID == ownerID && file.UploadStatus == models.UploadStatusCompleted {
			total += file.FileSize
		}
	}
	return total, nil
}

func (f *fakeFilesRepo) MarkCompleted(ctx context.Context, id string, size int64, contentType string) error {
	file, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	file.UploadStatus = models.UploadStatusCompleted
	file.FileSize = size
	if contentType != "" {
		file.ContentType = contentType
	}
	file.LastModified = time.Now()
	return nil
}

func (f *fakeFilesRepo) MarkFailed(ctx context.Context, id string) error {
	file, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	file.UploadStatus = models.UploadStatusFailed
	return nil
}

func (f *fakeFilesRepo) Rename(ctx context.Context, id string, fileName string) error {
	file, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	file.FileName = fileName
	return nil
}

func (f *fakeFilesRepo) Move(ctx context.Context, id string, folderID *string) error {
	file, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	file.FolderID = folderID
	return nil
}

func (f *fakeFilesRepo) SetPublicToken(ctx context.Context, id string, token *string, isPublic bool, createdAt *time.Time) error {
	file, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	file.PublicToken = token
	file.IsPublic = isPublic
	file.PublicTokenCreatedAt = createdAt
	return nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	u  *fakeUsersRepo
	fo *fakeFoldersRepo
	fi *fakeFilesRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository     { return m.u }
func (m *fakeRepoManager) Folders(db dbx.DBTX) folders.Repository { return m.fo }
func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository     { return m.fi }

type fakeGateway struct {
	objects map[string]bool
	deleted []string

	lastContentType string
	lastFileName    string
	lastExpires     time.Duration

	presignUploadErr   error
	presignDownloadErr error
	existsErr          error
	deleteErr          error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{objects: map[string]bool{}}
}

func (g *fakeGateway) PresignUpload(ctx context.Context, key string, contentType string, expires time.Duration) (string, error) {
	if g.presignUploadErr != nil {
		return "", g.presignUploadErr
	}
	g.lastContentType = contentType
	g.lastExpires = expires
	return "https://store.example/put/" + key, nil
}

func (g *fakeGateway) PresignDownload(ctx context.Context, key string, fileName string, expires time.Duration) (string, error) {
	if g.presignDownloadErr != nil {
		return "", g.presignDownloadErr
	}
	g.lastFileName = fileName
	g.lastExpires = expires
	return "https://store.example/get/" + key, nil
}

func (g *fakeGateway) Exists(ctx context.Context, key string) (bool, error) {
	if g.existsErr != nil {
		return false, g.existsErr
	}
	return g.objects[key], nil
}

func (g *fakeGateway) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for key := range g.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (g *fakeGateway) Delete(ctx context.Context, key string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	delete(g.objects, key)
	g.deleted = append(g.deleted, key)
	return nil
}

type fakePublisher struct {
	published []events.Event
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) Close() {}

// -------- helpers --------

type testEnv struct {
	db   *sql.DB
	mock sqlmock.Sqlmock

	users   *fakeUsersRepo
	folders *fakeFoldersRepo
	files   *fakeFilesRepo

	gateway   *fakeGateway
	publisher *fakePublisher
	cfg       *sc.Config

	quota     *QuotaService
	valet     *ValetKeyService
	folderSvc *FolderService
	fileSvc   *FileService
	linkSvc   *PublicLinkService
	userSvc   *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &sc.Config{}
	cfg.LoadDefaults()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	env := &testEnv{
		db:        db,
		mock:      mock,
		users:     newFakeUsersRepo(),
		folders:   newFakeFoldersRepo(),
		files:     newFakeFilesRepo(),
		gateway:   newFakeGateway(),
		publisher: &fakePublisher{},
		cfg:       cfg,
	}

	rm := &fakeRepoManager{u: env.users, fo: env.folders, fi: env.files}

	env.quota = NewQuotaService(db, rm, logger)
	env.valet = NewValetKeyService(env.gateway, cfg)
	env.folderSvc = NewFolderService(db, rm, env.gateway, env.quota, env.publisher, logger)
	env.fileSvc = NewFileService(db, rm, env.gateway, env.valet, env.quota, env.publisher, logger)
	env.linkSvc = NewPublicLinkService(db, rm, env.valet, env.publisher, logger)
	env.userSvc = NewUserService(db, rm, cfg, logger)

	return env
}

// expectTx queues one begin/commit pair for a transactional operation.
func (e *testEnv) expectTx() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}

// expectTxRollback queues a begin/rollback pair for a failing transaction.
func (e *testEnv) expectTxRollback() {
	e.mock.ExpectBegin()
	e.mock.ExpectRollback()
}

func (e *testEnv) addUser(id string, mutate ...func(*models.User)) *models.User {
	u := &models.User{
		ID:           id,
		Username:     "user-" + id,
		Role:         models.RoleUser,
		CanCreate:    true,
		CanRead:      true,
		CanWrite:     true,
		StorageQuota: models.DefaultStorageQuota,
	}
	for _, m := range mutate {
		m(u)
	}
	e.users.byID[u.ID] = u
	return u
}

func (e *testEnv) addFolder(id, ownerID string, parentID *string, name, fullPath string) *models.Folder {
	f := &models.Folder{ID: id, OwnerID: ownerID, ParentID: parentID, Name: name, FullPath: fullPath}
	e.folders.byID[id] = f
	return f
}

func (e *testEnv) addFile(id, ownerID string, folderID *string, name, key string, size int64, status string) *models.File {
	f := &models.File{
		ID: id, OwnerID: ownerID, FolderID: folderID,
		FileName: name, OriginalName: name, ObjectKey: key,
		FileSize: size, UploadStatus: status,
		UploadedAt: time.Now(),
	}
	e.files.byID[id] = f
	if status == models.UploadStatusCompleted {
		e.gateway.objects[key] = true
	}
	return f
}

func strPtr(s string) *string { return &s }

func eventTypes(published []events.Event) string {
	var types []string
	for _, e := range published {
		types = append(types, e.Type)
	}
	return fmt.Sprint(types)
}
