package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/devricklin/wechat-oa-bridge/internal/api"
	"github.com/devricklin/wechat-oa-bridge/internal/biz"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/conf"
	"github.com/devricklin/wechat-oa-bridge/internal/data"
	"github.com/devricklin/wechat-oa-bridge/internal/infra/wechat"
	"github.com/devricklin/wechat-oa-bridge/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}

	logFile, err := conf.SetupLogger(cfg.Log)
	if err != nil {
		logrus.Fatalf("Invalid log config: %v", err)
	}
	defer logFile.Close()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	log := logrus.WithField("component", "bridge")

	// Initialize repository layer
	client := wechat.NewClient(cfg.Wechat.APIBaseURL, cfg.Wechat.AppID, cfg.Wechat.AppSecret, cfg.Wechat.Timeout)
	repos, err := data.NewRepositories(client, domain.NewTokenCache(nil), cfg.User.DBPath)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	log.WithField("path", cfg.User.DBPath).Info("User directory opened")

	// Initialize usecase layer
	ucs := biz.NewUsecases(repos.Wechat, repos.User, cfg.ToRouterConfig())

	// Initialize service layer
	webhook := service.NewWebhookService(cfg.Wechat.Token, ucs.Router)

	var scheduler *service.SyncScheduler
	if cfg.User.SyncCron != "" {
		scheduler, err = service.NewSyncScheduler(ucs.User, cfg.User.SyncCron)
		if err != nil {
			log.Fatalf("Invalid follower sync schedule: %v", err)
		}
		if err := scheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start follower sync: %v", err)
		}
	}

	apiServer := api.NewServer(webhook, repos.Wechat, ucs.User, ucs.Broadcast, cfg.HTTP.Port)
	apiServer.SetLogSource(logFile)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()
	log.WithField("port", apiServer.GetPort()).Info("Starting WeChat Official Account bridge")

	select {
	case <-sigCh:
		log.Info("Shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Errorf("Server error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Stop(ctx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	ucs.Router.Wait()
	if err := repos.Close(); err != nil {
		log.Warnf("Failed to close repositories: %v", err)
	}
}
