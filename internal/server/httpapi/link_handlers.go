package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGenerateLink(c *gin.Context) {
	token, err := s.links.Generate(c.Request.Context(), s.userID(c), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"public_token": token})
}

func (s *Server) handleRevokeLink(c *gin.Context) {
	if err := s.links.Revoke(c.Request.Context(), s.userID(c), c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleResolveLink returns share metadata anonymously. Possession of the
// token is the only credential.
func (s *Server) handleResolveLink(c *gin.Context) {
	file, err := s.links.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPublicFileView(file))
}

func (s *Server) handlePublicDownload(c *gin.Context) {
	ticket, err := s.links.DownloadURL(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}
