package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleSyncUsers(c *gin.Context) {
	result, err := s.userUC.SyncAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetUser(c *gin.Context) {
	openID := c.Query("openid")
	if openID == "" {
		badRequest(c, "openid is required")
		return
	}

	user, err := s.userUC.GetUser(c.Request.Context(), openID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.userUC.ListUsers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleListSubscribed(c *gin.Context) {
	users, err := s.userUC.ListSubscribed(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleUserStats(c *gin.Context) {
	stats, err := s.userUC.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
