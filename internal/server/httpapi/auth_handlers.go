package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/valetdrive/valetdrive/internal/common"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	user, err := s.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserView(user))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, common.ErrInvalidInput)
		return
	}

	token, user, err := s.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "user": toUserView(user)})
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.users.GetByID(c.Request.Context(), s.userID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

func (s *Server) handleStorageInfo(c *gin.Context) {
	info, err := s.quota.StorageInfo(c.Request.Context(), s.userID(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
