package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/valetdrive/valetdrive/internal/common"
	"github.com/valetdrive/valetdrive/internal/dbx"
	"github.com/valetdrive/valetdrive/internal/logging"
	"github.com/valetdrive/valetdrive/internal/server/events"
	"github.com/valetdrive/valetdrive/internal/server/models"
	"github.com/valetdrive/valetdrive/internal/server/objectstore"
	"github.com/valetdrive/valetdrive/internal/server/repositories/files"
	"github.com/valetdrive/valetdrive/internal/server/repositories/folders"
	"github.com/valetdrive/valetdrive/internal/server/repositories/repomanager"
)

// RootFolderName is the display name of the implicit root in breadcrumbs.
const RootFolderName = "My Files"

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// FolderService manages a user's folder tree. Structural mutations are
// serialized per owner so denormalized paths stay consistent.
type FolderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gateway     objectstore.Gateway
	quota       *QuotaService
	publisher   events.Publisher
	logger      logging.Logger
	locks       *ownerLocks
}

func NewFolderService(db *sql.DB, rm repomanager.RepositoryManager, gateway objectstore.Gateway,
	quota *QuotaService, publisher events.Publisher, logger logging.Logger) *FolderService {
	return &FolderService{
		db:          db,
		repomanager: rm,
		gateway:     gateway,
		quota:       quota,
		publisher:   publisher,
		logger:      logger,
		locks:       newOwnerLocks(),
	}
}

func validateFolderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: folder name is empty", common.ErrInvalidInput)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: folder name contains path separators", common.ErrInvalidInput)
	}
	return nil
}

// getOwnedFolder loads a folder and verifies ownership.
func getOwnedFolder(ctx context.Context, repo folders.Repository, ownerID string, folderID string) (*models.Folder, error) {
	folder, err := repo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != ownerID {
		return nil, common.ErrAccessDenied
	}
	return folder, nil
}

func childPath(parent *models.Folder, name string) string {
	if parent == nil {
		return "/" + name
	}
	return parent.FullPath + "/" + name
}

// Create adds a folder under parentID (nil for the root). Sibling names
// must be unique within the parent.
func (s *FolderService) Create(ctx context.Context, ownerID string, parentID *string, name string) (*models.Folder, error) {
	if err := validateFolderName(name); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(ownerID)
	defer unlock()

	repo := s.repomanager.Folders(s.db)

	var parent *models.Folder
	if parentID != nil {
		var err error
		parent, err = getOwnedFolder(ctx, repo, ownerID, *parentID)
		if err != nil {
			return nil, err
		}
	}

	exists, err := repo.ExistsByName(ctx, ownerID, parentID, name, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrConflictingName
	}

	folder := &models.Folder{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		ParentID: parentID,
		Name:     name,
		FullPath: childPath(parent, name),
	}

	return repo.Create(ctx, folder)
}

// ListAll returns the owner's entire tree flattened, ordered by path.
func (s *FolderService) ListAll(ctx context.Context, ownerID string) ([]*models.Folder, error) {
	return s.repomanager.Folders(s.db).ListByOwner(ctx, ownerID)
}

// Tree returns the owner's folders as nested nodes. Roots and children
// keep the path ordering of ListAll. A child whose parent row is missing
// surfaces as a root rather than disappearing.
func (s *FolderService) Tree(ctx context.Context, ownerID string) ([]*FolderNode, error) {
	all, err := s.repomanager.Folders(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*FolderNode, len(all))
	for _, folder := range all {
		nodes[folder.ID] = &FolderNode{Folder: folder}
	}

	roots := []*FolderNode{}
	for _, folder := range all {
		node := nodes[folder.ID]
		if folder.ParentID != nil {
			if parent, ok := nodes[*folder.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots, nil
}

// Metadata returns one folder together with its parent summary and the
// counts of its direct subfolders and completed files.
func (s *FolderService) Metadata(ctx context.Context, ownerID string, folderID string) (*FolderMetadata, error) {
	folderRepo := s.repomanager.Folders(s.db)

	folder, err := getOwnedFolder(ctx, folderRepo, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	var parent *models.Folder
	if folder.ParentID != nil {
		parent, err = folderRepo.GetByID(ctx, *folder.ParentID)
		if err != nil {
			return nil, err
		}
	}

	subfolders, err := folderRepo.ListByParent(ctx, ownerID, &folderID)
	if err != nil {
		return nil, err
	}

	fileCount, err := s.repomanager.Files(s.db).Count(ctx, files.ListFilter{
		OwnerID:  ownerID,
		FolderID: &folderID,
		InFolder: true,
		Status:   models.UploadStatusCompleted,
	})
	if err != nil {
		return nil, err
	}

	return &FolderMetadata{
		Folder:         folder,
		Parent:         parent,
		SubfolderCount: int64(len(subfolders)),
		FileCount:      fileCount,
	}, nil
}

// Search matches folder names case-insensitively.
func (s *FolderService) Search(ctx context.Context, ownerID string, query string) ([]*models.Folder, error) {
	return s.repomanager.Folders(s.db).Search(ctx, ownerID, query)
}

// Contents lists a folder: its subfolders plus one page of completed
// files, with breadcrumbs back to the root. A nil folderID lists the root.
func (s *FolderService) Contents(ctx context.Context, ownerID string, folderID *string,
	sortBy string, sortDesc bool, page int, pageSize int) (*FolderContents, error) {

	folderRepo := s.repomanager.Folders(s.db)
	fileRepo := s.repomanager.Files(s.db)

	var folder *models.Folder
	if folderID != nil {
		var err error
		folder, err = getOwnedFolder(ctx, folderRepo, ownerID, *folderID)
		if err != nil {
			return nil, err
		}
	}

	breadcrumbs, err := s.breadcrumbs(ctx, folderRepo, folder)
	if err != nil {
		return nil, err
	}

	subfolders, err := folderRepo.ListByParent(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	entries := make([]SubfolderEntry, 0, len(subfolders))
	for _, sub := range subfolders {
		subID := sub.ID
		count, err := fileRepo.Count(ctx, files.ListFilter{
			OwnerID:  ownerID,
			FolderID: &subID,
			InFolder: true,
			Status:   models.UploadStatusCompleted,
		})
		if err != nil {
			return nil, err
		}
		entries = append(entries, SubfolderEntry{Folder: sub, FileCount: count})
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := files.ListFilter{
		OwnerID:  ownerID,
		FolderID: folderID,
		InFolder: true,
		Status:   models.UploadStatusCompleted,
		SortBy:   sortBy,
		SortDesc: sortDesc,
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	}

	fileList, err := fileRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	countFilter := filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	total, err := fileRepo.Count(ctx, countFilter)
	if err != nil {
		return nil, err
	}

	return &FolderContents{
		Folder:      folder,
		Breadcrumbs: breadcrumbs,
		Subfolders:  entries,
		Files:       fileList,
		TotalFiles:  total,
		Page:        page,
		PageSize:    pageSize,
	}, nil
}

// breadcrumbs walks the ancestor chain up to the root. The visited set
// stops the walk if the tree is corrupted into a cycle.
func (s *FolderService) breadcrumbs(ctx context.Context, repo folders.Repository, folder *models.Folder) ([]Breadcrumb, error) {
	crumbs := []Breadcrumb{{ID: nil, Name: RootFolderName, Path: "/"}}
	if folder == nil {
		return crumbs, nil
	}

	var chain []Breadcrumb
	visited := map[string]bool{}
	cur := folder
	for {
		if visited[cur.ID] {
			return nil, fmt.Errorf("%w: folder tree cycle at %s", common.ErrInternal, cur.ID)
		}
		visited[cur.ID] = true

		id := cur.ID
		chain = append([]Breadcrumb{{ID: &id, Name: cur.Name, Path: cur.FullPath}}, chain...)

		if cur.ParentID == nil {
			break
		}
		parent, err := repo.GetByID(ctx, *cur.ParentID)
		if err != nil {
			return nil, err
		}
		cur = parent
	}

	return append(crumbs, chain...), nil
}

// Rename changes a folder's name and rewrites the denormalized paths of
// the folder and all of its descendants.
func (s *FolderService) Rename(ctx context.Context, ownerID string, folderID string, newName string) (*models.Folder, error) {
	if err := validateFolderName(newName); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(ownerID)
	defer unlock()

	var renamed *models.Folder
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Folders(tx)

		folder, err := getOwnedFolder(ctx, repo, ownerID, folderID)
		if err != nil {
			return err
		}
		if folder.Name == newName {
			renamed = folder
			return nil
		}

		exists, err := repo.ExistsByName(ctx, ownerID, folder.ParentID, newName, folderID)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrConflictingName
		}

		parentPath := strings.TrimSuffix(folder.FullPath, "/"+folder.Name)
		newPath := parentPath + "/" + newName

		if err := repo.Rename(ctx, folderID, newName, newPath); err != nil {
			return err
		}
		if err := cascadePaths(ctx, repo, ownerID, folderID, newPath); err != nil {
			return err
		}

		folder.Name = newName
		folder.FullPath = newPath
		renamed = folder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// Move reparents a folder. The destination must not be the folder itself
// or any of its descendants.
func (s *FolderService) Move(ctx context.Context, ownerID string, folderID string, newParentID *string) (*models.Folder, error) {
	unlock := s.locks.Lock(ownerID)
	defer unlock()

	var moved *models.Folder
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Folders(tx)

		folder, err := getOwnedFolder(ctx, repo, ownerID, folderID)
		if err != nil {
			return err
		}

		if sameParent(folder.ParentID, newParentID) {
			moved = folder
			return nil
		}

		var parent *models.Folder
		if newParentID != nil {
			if *newParentID == folderID {
				return common.ErrCircularReference
			}
			parent, err = getOwnedFolder(ctx, repo, ownerID, *newParentID)
			if err != nil {
				return err
			}
			if err := ensureNotDescendant(ctx, repo, folderID, parent); err != nil {
				return err
			}
		}

		exists, err := repo.ExistsByName(ctx, ownerID, newParentID, folder.Name, folderID)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrConflictingName
		}

		newPath := childPath(parent, folder.Name)

		if err := repo.Move(ctx, folderID, newParentID, newPath); err != nil {
			return err
		}
		if err := cascadePaths(ctx, repo, ownerID, folderID, newPath); err != nil {
			return err
		}

		folder.ParentID = newParentID
		folder.FullPath = newPath
		moved = folder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ensureNotDescendant walks up from target to the root and fails when
// folderID appears on the chain.
func ensureNotDescendant(ctx context.Context, repo folders.Repository, folderID string, target *models.Folder) error {
	visited := map[string]bool{}
	cur := target
	for {
		if cur.ID == folderID {
			return common.ErrCircularReference
		}
		if visited[cur.ID] {
			return fmt.Errorf("%w: folder tree cycle at %s", common.ErrInternal, cur.ID)
		}
		visited[cur.ID] = true

		if cur.ParentID == nil {
			return nil
		}
		parent, err := repo.GetByID(ctx, *cur.ParentID)
		if err != nil {
			return err
		}
		cur = parent
	}
}

// cascadePaths rewrites the full paths of every descendant of rootID
// after the root moved to rootPath.
func cascadePaths(ctx context.Context, repo folders.Repository, ownerID string, rootID string, rootPath string) error {
	all, err := repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	children := map[string][]*models.Folder{}
	for _, f := range all {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f)
		}
	}

	type node struct{ id, path string }
	stack := []node{{rootID, rootPath}}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, ch := range children[n.id] {
			p := n.path + "/" + ch.Name
			if err := repo.UpdateFullPath(ctx, ch.ID, p); err != nil {
				return err
			}
			stack = append(stack, node{ch.ID, p})
		}
	}
	return nil
}

// Delete removes a folder. Without recursive, a non-empty folder is
// rejected. With recursive, the whole subtree goes: blobs are removed
// from the object store first, then the records in one transaction, and
// the owner's quota is reconciled afterwards.
func (s *FolderService) Delete(ctx context.Context, ownerID string, folderID string, recursive bool) error {
	unlock := s.locks.Lock(ownerID)
	defer unlock()

	folderRepo := s.repomanager.Folders(s.db)
	fileRepo := s.repomanager.Files(s.db)

	if _, err := getOwnedFolder(ctx, folderRepo, ownerID, folderID); err != nil {
		return err
	}

	folderIDs, fileRecords, err := s.collectSubtree(ctx, folderRepo, fileRepo, ownerID, folderID)
	if err != nil {
		return err
	}

	if !recursive && (len(folderIDs) > 1 || len(fileRecords) > 0) {
		return common.ErrConflict
	}

	for _, f := range fileRecords {
		if err := s.gateway.Delete(ctx, f.ObjectKey); err != nil {
			return fmt.Errorf("error deleting object %s: %w", f.ObjectKey, err)
		}
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txFolders := s.repomanager.Folders(tx)
		txFiles := s.repomanager.Files(tx)

		for _, f := range fileRecords {
			if err := txFiles.Delete(ctx, f.ID); err != nil {
				return err
			}
		}
		// children before parents
		for i := len(folderIDs) - 1; i >= 0; i-- {
			if err := txFolders.Delete(ctx, folderIDs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error deleting folder: %w", err)
	}

	if _, err := s.quota.Reconcile(ctx, ownerID); err != nil {
		s.logger.Warn(ctx, "quota reconcile after folder delete failed", "owner_id", ownerID, "error", err)
	}

	for _, f := range fileRecords {
		if err := s.publisher.Publish(ctx, events.Event{
			Type: events.TypeFileDeleted, OwnerID: ownerID, FileID: f.ID, ObjectKey: f.ObjectKey,
		}); err != nil {
			s.logger.Warn(ctx, "event publish failed", "type", events.TypeFileDeleted, "error", err)
		}
	}

	return nil
}

// collectSubtree returns the folder ids of the subtree rooted at folderID
// in top-down order, plus every file record inside it.
func (s *FolderService) collectSubtree(ctx context.Context, folderRepo folders.Repository, fileRepo files.Repository,
	ownerID string, folderID string) ([]string, []*models.File, error) {

	all, err := folderRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}

	children := map[string][]*models.Folder{}
	for _, f := range all {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f)
		}
	}

	var folderIDs []string
	var fileRecords []*models.File

	queue := []string{folderID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		folderIDs = append(folderIDs, id)

		fid := id
		inFolder, err := fileRepo.List(ctx, files.ListFilter{OwnerID: ownerID, FolderID: &fid, InFolder: true})
		if err != nil {
			return nil, nil, err
		}
		fileRecords = append(fileRecords, inFolder...)

		for _, ch := range children[id] {
			queue = append(queue, ch.ID)
		}
	}

	return folderIDs, fileRecords, nil
}
