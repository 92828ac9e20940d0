package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/valetdrive/valetdrive/internal/common"
)

func (s *Server) handleAdminListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context(), s.userID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": toUserViews(users)})
}

func (s *Server) handleAdminUpdatePermissions(c *gin.Context) {
	var req struct {
		CanCreate bool `json:"can_create"`
		CanRead   bool `json:"can_read"`
		CanWrite  bool `json:"can_write"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	err := s.users.UpdatePermissions(c.Request.Context(), s.userID(c), c.Param("id"), req.CanCreate, req.CanRead, req.CanWrite)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminUpdateQuota(c *gin.Context) {
	var req struct {
		StorageQuota int64 `json:"storage_quota"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	err := s.users.UpdateQuota(c.Request.Context(), s.userID(c), c.Param("id"), req.StorageQuota)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
