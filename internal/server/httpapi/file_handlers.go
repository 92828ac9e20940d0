package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/valetdrive/valetdrive/internal/common"
)

type uploadRequest struct {
	FileName    string  `json:"file_name"`
	FolderID    *string `json:"folder_id"`
	FileSize    int64   `json:"file_size"`
	ContentType string  `json:"content_type"`
}

// handleRequestUpload starts the two-phase upload: the response carries
// the PENDING record and the presigned PUT URL the client uploads with.
func (s *Server) handleRequestUpload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	ticket, err := s.files.RequestUpload(c.Request.Context(), s.userID(c), req.FolderID, req.FileName, req.FileSize, req.ContentType)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"file":               toFileView(ticket.File),
		"upload_url":         ticket.UploadURL,
		"object_key":         ticket.File.ObjectKey,
		"expires_in_minutes": ticket.ExpiresInMinutes,
	})
}

// handleConfirmUpload finalizes the two-phase upload. The body is
// optional: clients may report the content type the store observed.
func (s *Server) handleConfirmUpload(c *gin.Context) {
	var req struct {
		ContentType string `json:"content_type"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.abortWithError(c, common.ErrInvalidInput)
			return
		}
	}

	file, err := s.files.ConfirmUpload(c.Request.Context(), s.userID(c), c.Param("id"), req.ContentType)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFileView(file))
}

func (s *Server) handleGetFile(c *gin.Context) {
	file, err := s.files.Get(c.Request.Context(), s.userID(c), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFileView(file))
}

func (s *Server) handleFileDownload(c *gin.Context) {
	ticket, err := s.files.DownloadURL(c.Request.Context(), s.userID(c), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) handleRenameFile(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	file, err := s.files.Rename(c.Request.Context(), s.userID(c), c.Param("id"), req.Name)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFileView(file))
}

func (s *Server) handleMoveFile(c *gin.Context) {
	var req struct {
		FolderID *string `json:"folder_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	file, err := s.files.Move(c.Request.Context(), s.userID(c), c.Param("id"), req.FolderID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFileView(file))
}

func (s *Server) handleDeleteFile(c *gin.Context) {
	if err := s.files.Delete(c.Request.Context(), s.userID(c), c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListFiles(c *gin.Context) {
	files, err := s.files.ListAll(c.Request.Context(), s.userID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": toFileViews(files)})
}

func (s *Server) handleSearchFiles(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	files, err := s.files.Search(c.Request.Context(), s.userID(c), query)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": toFileViews(files)})
}

type bulkRequest struct {
	IDs      []string `json:"ids" binding:"required"`
	FolderID *string  `json:"folder_id"`
}

func (s *Server) handleBulkDelete(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	deleted, err := s.files.BulkDelete(c.Request.Context(), s.userID(c), req.IDs)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "count": len(deleted)})
}

func (s *Server) handleBulkMove(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	moved, err := s.files.BulkMove(c.Request.Context(), s.userID(c), req.IDs, req.FolderID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved, "count": len(moved)})
}
