package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/usecase"
)

// SendTemplateRequest is the body of POST /wechat/message/template
type SendTemplateRequest struct {
	OpenID      string                             `json:"openid" binding:"required"`
	TemplateID  string                             `json:"templateId" binding:"required"`
	URL         string                             `json:"url"`
	MiniProgram *domain.MiniProgram                `json:"miniprogram"`
	Data        map[string]domain.TemplateDataItem `json:"data" binding:"required"`
}

// SendBatchTemplateRequest is the body of POST /wechat/message/template/batch
type SendBatchTemplateRequest struct {
	OpenIDs     []string                           `json:"openids" binding:"required"`
	TemplateID  string                             `json:"templateId" binding:"required"`
	URL         string                             `json:"url"`
	MiniProgram *domain.MiniProgram                `json:"miniprogram"`
	Data        map[string]domain.TemplateDataItem `json:"data" binding:"required"`
}

// SendTemplateAllRequest is the body of POST /wechat/message/template/all
type SendTemplateAllRequest struct {
	TemplateID string                             `json:"templateId" binding:"required"`
	URL        string                             `json:"url"`
	Data       map[string]domain.TemplateDataItem `json:"data" binding:"required"`
}

// SendTextRequest is the body of POST /wechat/message/text
type SendTextRequest struct {
	OpenID  string `json:"openid" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ============ Token Handlers ============

func (s *Server) handleGetToken(c *gin.Context) {
	token, err := s.wechatRepo.GetAccessToken(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

func (s *Server) handleClearToken(c *gin.Context) {
	s.wechatRepo.InvalidateAccessToken()
	c.JSON(http.StatusOK, gin.H{"message": "access token cache cleared"})
}

// ============ Follower Handlers ============

func (s *Server) handleGetFollowers(c *gin.Context) {
	page, err := s.wechatRepo.GetFollowers(c.Request.Context(), c.Query("next_openid"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleGetAllFollowers(c *gin.Context) {
	openIDs, err := s.wechatRepo.GetAllFollowerOpenIDs(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if openIDs == nil {
		openIDs = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"total": len(openIDs), "openids": openIDs})
}

func (s *Server) handleGetUserInfo(c *gin.Context) {
	openID := c.Query("openid")
	if openID == "" {
		badRequest(c, "openid is required")
		return
	}

	info, err := s.wechatRepo.GetUserInfo(c.Request.Context(), openID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleGetTemplates(c *gin.Context) {
	templates, err := s.wechatRepo.GetTemplateList(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	if templates == nil {
		templates = []domain.TemplateDescriptor{}
	}
	c.JSON(http.StatusOK, gin.H{"template_list": templates})
}

// ============ Message Handlers ============

func (s *Server) handleSendTemplate(c *gin.Context) {
	var req SendTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := s.wechatRepo.SendTemplateMessage(c.Request.Context(), &domain.TemplateMessageRequest{
		ToUser:      req.OpenID,
		TemplateID:  req.TemplateID,
		URL:         req.URL,
		MiniProgram: req.MiniProgram,
		Data:        req.Data,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSendTemplateBatch(c *gin.Context) {
	var req SendBatchTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := s.broadcast.SendBatch(c.Request.Context(), req.OpenIDs, &usecase.BatchTemplate{
		TemplateID:  req.TemplateID,
		URL:         req.URL,
		MiniProgram: req.MiniProgram,
		Data:        req.Data,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSendTemplateAll(c *gin.Context) {
	var req SendTemplateAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := s.broadcast.SendToAll(c.Request.Context(), &usecase.BatchTemplate{
		TemplateID: req.TemplateID,
		URL:        req.URL,
		Data:       req.Data,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSendText(c *gin.Context) {
	var req SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := s.wechatRepo.SendTextMessage(c.Request.Context(), req.OpenID, req.Content); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sent"})
}
