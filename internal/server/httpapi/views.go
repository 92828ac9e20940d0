package httpapi

import (
	"time"

	"github.com/valetdrive/valetdrive/internal/server/models"
	"github.com/valetdrive/valetdrive/internal/server/services"
)

// Response shapes. Models carry internal fields (password hashes, object
// keys are fine to show to the owner, but hashes never), so handlers
// render these views instead of the models themselves.

type userView struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	CanCreate    bool      `json:"can_create"`
	CanRead      bool      `json:"can_read"`
	CanWrite     bool      `json:"can_write"`
	StorageQuota int64     `json:"storage_quota"`
	StorageUsed  int64     `json:"storage_used"`
	CreatedAt    time.Time `json:"created_at"`
}

func toUserView(u *models.User) userView {
	return userView{
		ID:           u.ID,
		Username:     u.Username,
		Role:         u.Role,
		CanCreate:    u.CanCreate,
		CanRead:      u.CanRead,
		CanWrite:     u.CanWrite,
		StorageQuota: u.StorageQuota,
		StorageUsed:  u.StorageUsed,
		CreatedAt:    u.CreatedAt,
	}
}

func toUserViews(users []*models.User) []userView {
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	return views
}

type folderView struct {
	ID        string    `json:"id"`
	ParentID  *string   `json:"parent_id"`
	Name      string    `json:"name"`
	FullPath  string    `json:"full_path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toFolderView(f *models.Folder) folderView {
	return folderView{
		ID:        f.ID,
		ParentID:  f.ParentID,
		Name:      f.Name,
		FullPath:  f.FullPath,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func toFolderViews(folders []*models.Folder) []folderView {
	views := make([]folderView, 0, len(folders))
	for _, f := range folders {
		views = append(views, toFolderView(f))
	}
	return views
}

type fileView struct {
	ID           string     `json:"id"`
	FolderID     *string    `json:"folder_id"`
	FileName     string     `json:"file_name"`
	FileSize     int64      `json:"file_size"`
	ContentType  string     `json:"content_type"`
	UploadStatus string     `json:"upload_status"`
	IsPublic     bool       `json:"is_public"`
	PublicToken  *string    `json:"public_token,omitempty"`
	UploadedAt   time.Time  `json:"uploaded_at"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

func toFileView(f *models.File) fileView {
	v := fileView{
		ID:           f.ID,
		FolderID:     f.FolderID,
		FileName:     f.FileName,
		FileSize:     f.FileSize,
		ContentType:  f.ContentType,
		UploadStatus: f.UploadStatus,
		IsPublic:     f.IsPublic,
		PublicToken:  f.PublicToken,
		UploadedAt:   f.UploadedAt,
	}
	if !f.LastModified.IsZero() {
		lm := f.LastModified
		v.LastModified = &lm
	}
	return v
}

func toFileViews(files []*models.File) []fileView {
	views := make([]fileView, 0, len(files))
	for _, f := range files {
		views = append(views, toFileView(f))
	}
	return views
}

// publicFileView is the anonymous variant: no folder placement, no token.
type publicFileView struct {
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

func toPublicFileView(f *models.File) publicFileView {
	return publicFileView{FileName: f.FileName, FileSize: f.FileSize, ContentType: f.ContentType}
}

type folderNodeView struct {
	folderView
	Children []folderNodeView `json:"children"`
}

func toFolderNodeViews(nodes []*services.FolderNode) []folderNodeView {
	views := make([]folderNodeView, 0, len(nodes))
	for _, node := range nodes {
		views = append(views, folderNodeView{
			folderView: toFolderView(node.Folder),
			Children:   toFolderNodeViews(node.Children),
		})
	}
	return views
}

type folderMetadataView struct {
	Folder         folderView  `json:"folder"`
	Parent         *folderView `json:"parent,omitempty"`
	SubfolderCount int64       `json:"subfolder_count"`
	FileCount      int64       `json:"file_count"`
}

func toFolderMetadataView(m *services.FolderMetadata) folderMetadataView {
	view := folderMetadataView{
		Folder:         toFolderView(m.Folder),
		SubfolderCount: m.SubfolderCount,
		FileCount:      m.FileCount,
	}
	if m.Parent != nil {
		pv := toFolderView(m.Parent)
		view.Parent = &pv
	}
	return view
}

type subfolderView struct {
	folderView
	FileCount int64 `json:"file_count"`
}

type contentsView struct {
	Folder      *folderView           `json:"folder"`
	Breadcrumbs []services.Breadcrumb `json:"breadcrumbs"`
	Subfolders  []subfolderView       `json:"subfolders"`
	Files       []fileView            `json:"files"`
	TotalFiles  int64                 `json:"total_files"`
	Page        int                   `json:"page"`
	PageSize    int                   `json:"page_size"`
}

func toContentsView(c *services.FolderContents) contentsView {
	subs := make([]subfolderView, 0, len(c.Subfolders))
	for _, entry := range c.Subfolders {
		subs = append(subs, subfolderView{folderView: toFolderView(entry.Folder), FileCount: entry.FileCount})
	}

	view := contentsView{
		Breadcrumbs: c.Breadcrumbs,
		Subfolders:  subs,
		Files:       toFileViews(c.Files),
		TotalFiles:  c.TotalFiles,
		Page:        c.Page,
		PageSize:    c.PageSize,
	}
	if c.Folder != nil {
		fv := toFolderView(c.Folder)
		view.Folder = &fv
	}
	return view
}
