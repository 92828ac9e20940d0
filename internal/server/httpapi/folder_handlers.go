package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/valetdrive/valetdrive/internal/common"
)

type createFolderRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *string `json:"parent_id"`
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	folder, err := s.folders.Create(c.Request.Context(), s.userID(c), req.ParentID, req.Name)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toFolderView(folder))
}

func (s *Server) handleListFolders(c *gin.Context) {
	folders, err := s.folders.ListAll(c.Request.Context(), s.userID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": toFolderViews(folders)})
}

func (s *Server) handleFolderTree(c *gin.Context) {
	tree, err := s.folders.Tree(c.Request.Context(), s.userID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": toFolderNodeViews(tree)})
}

func (s *Server) handleSearchFolders(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	folders, err := s.folders.Search(c.Request.Context(), s.userID(c), query)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": toFolderViews(folders)})
}

// handleFolderContents lists one folder. No folder_id means the root.
func (s *Server) handleFolderContents(c *gin.Context) {
	var folderID *string
	if id := c.Query("folder_id"); id != "" {
		folderID = &id
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	// newest uploads first unless the client asks otherwise
	sortBy := c.DefaultQuery("sort_by", "date")
	sortDesc := c.DefaultQuery("sort_desc", "true") == "true"

	contents, err := s.folders.Contents(c.Request.Context(), s.userID(c), folderID, sortBy, sortDesc, page, pageSize)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toContentsView(contents))
}

// handleGetFolder returns folder metadata: the folder itself, its parent
// summary and direct-content counts.
func (s *Server) handleGetFolder(c *gin.Context) {
	meta, err := s.folders.Metadata(c.Request.Context(), s.userID(c), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFolderMetadataView(meta))
}

func (s *Server) handleRenameFolder(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	folder, err := s.folders.Rename(c.Request.Context(), s.userID(c), c.Param("id"), req.Name)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFolderView(folder))
}

func (s *Server) handleMoveFolder(c *gin.Context) {
	var req struct {
		ParentID *string `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	folder, err := s.folders.Move(c.Request.Context(), s.userID(c), c.Param("id"), req.ParentID)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFolderView(folder))
}

func (s *Server) handleDeleteFolder(c *gin.Context) {
	recursive := c.Query("recursive") == "true"

	if err := s.folders.Delete(c.Request.Context(), s.userID(c), c.Param("id"), recursive); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
