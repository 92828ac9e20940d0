package services

import "github.com/valetdrive/valetdrive/internal/server/models"

// Breadcrumb is one segment of the path from the root to a folder. The
// root segment has a nil ID and is rendered as "My Files".
type Breadcrumb struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
	Path string  `json:"path"`
}

// FolderNode is one folder in the nested tree view with its children,
// ordered by path.
type FolderNode struct {
	Folder   *models.Folder `json:"folder"`
	Children []*FolderNode  `json:"children"`
}

// FolderMetadata is one folder with its parent summary and the counts of
// its direct subfolders and completed files.
type FolderMetadata struct {
	Folder         *models.Folder `json:"folder"`
	Parent         *models.Folder `json:"parent"`
	SubfolderCount int64          `json:"subfolder_count"`
	FileCount      int64          `json:"file_count"`
}

// SubfolderEntry pairs a subfolder with the number of completed files
// directly inside it.
type SubfolderEntry struct {
	Folder    *models.Folder `json:"folder"`
	FileCount int64          `json:"file_count"`
}

// FolderContents is a single listing of a folder: its subfolders plus one
// page of its completed files.
type FolderContents struct {
	Folder      *models.Folder   `json:"folder"`
	Breadcrumbs []Breadcrumb     `json:"breadcrumbs"`
	Subfolders  []SubfolderEntry `json:"subfolders"`
	Files       []*models.File   `json:"files"`
	TotalFiles  int64            `json:"total_files"`
	Page        int              `json:"page"`
	PageSize    int              `json:"page_size"`
}

// StorageInfo reports reconciled quota usage for one user.
type StorageInfo struct {
	Used        int64   `json:"used"`
	Quota       int64   `json:"quota"`
	Remaining   int64   `json:"remaining"`
	UsedPercent float64 `json:"used_percent"`
}

// UploadTicket is the response to an upload request: the PENDING metadata
// record plus the valet key the client PUTs the bytes with.
type UploadTicket struct {
	File             *models.File `json:"file"`
	UploadURL        string       `json:"upload_url"`
	ExpiresInMinutes int          `json:"expires_in_minutes"`
}

// DownloadTicket carries a valet key for a GET plus its lifetime.
type DownloadTicket struct {
	DownloadURL      string `json:"download_url"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}
