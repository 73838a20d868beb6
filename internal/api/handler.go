package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/repo"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/usecase"
	"github.com/devricklin/wechat-oa-bridge/internal/service"
)

// Server is the HTTP surface: the WeChat webhook plus the operator REST API
type Server struct {
	webhook    *service.WebhookService
	wechatRepo repo.WechatRepo
	userUC     *usecase.UserUsecase
	broadcast  *usecase.BroadcastUsecase
	logs       LogSource

	engine *gin.Engine
	server *http.Server
	port   int
	log    *logrus.Entry
}

// NewServer creates a new API server
func NewServer(
	webhook *service.WebhookService,
	wechatRepo repo.WechatRepo,
	userUC *usecase.UserUsecase,
	broadcast *usecase.BroadcastUsecase,
	port int,
) *Server {
	s := &Server{
		webhook:    webhook,
		wechatRepo: wechatRepo,
		userUC:     userUC,
		broadcast:  broadcast,
		port:       port,
		log:        logrus.WithField("component", "api"),
	}
	s.engine = s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := newEngine()

	// WeChat callback
	r.GET("/wechat", s.handleVerify)
	r.POST("/wechat", s.handleMessage)

	// Token
	r.GET("/wechat/token", s.handleGetToken)
	r.POST("/wechat/token/clear", s.handleClearToken)

	// Followers and templates
	r.GET("/wechat/followers", s.handleGetFollowers)
	r.GET("/wechat/followers/all", s.handleGetAllFollowers)
	r.GET("/wechat/user", s.handleGetUserInfo)
	r.GET("/wechat/templates", s.handleGetTemplates)

	// Outbound messages
	msg := r.Group("/wechat/message")
	msg.POST("/template", s.handleSendTemplate)
	msg.POST("/template/batch", s.handleSendTemplateBatch)
	msg.POST("/template/all", s.handleSendTemplateAll)
	msg.POST("/text", s.handleSendText)

	// User directory
	user := r.Group("/user")
	user.POST("/sync", s.handleSyncUsers)
	user.GET("", s.handleGetUser)
	user.GET("/list", s.handleListUsers)
	user.GET("/subscribed", s.handleListSubscribed)
	user.GET("/stats", s.handleUserStats)

	// Request log file
	r.GET("/logs", s.handleRecentLogs)
	r.GET("/logs/path", s.handleLogPath)
	r.POST("/logs/clear", s.handleClearLogs)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.log.WithField("port", s.port).Info("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// GetPort returns the server port
func (s *Server) GetPort() int {
	return s.port
}

// writeError maps upstream failures to 502 and everything else to 500
func (s *Server) writeError(c *gin.Context, err error) {
	var apiErr *domain.UpstreamAPIError
	var transportErr *domain.TransportError

	switch {
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   err.Error(),
			"errcode": apiErr.ErrCode,
			"errmsg":  apiErr.ErrMsg,
		})
	case errors.As(err, &transportErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	_ = c.Error(err)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
