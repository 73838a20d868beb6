package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	bridgeapi "github.com/devricklin/wechat-oa-bridge/internal/mcp"
	"github.com/devricklin/wechat-oa-bridge/mcpserver"
)

// This MCP server talks to a running bridge over its HTTP API and exposes
// the operator endpoints as tools on stdio.

func main() {
	// stdout carries the MCP protocol
	logrus.SetOutput(os.Stderr)

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	baseURL := os.Getenv("BRIDGE_API_URL")
	if baseURL == "" {
		port := os.Getenv("HTTP_PORT")
		if port == "" {
			port = "3000"
		}
		baseURL = fmt.Sprintf("http://127.0.0.1:%s", port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcpserver.NewServer(bridgeapi.NewClient(baseURL))
	logrus.WithField("bridge", baseURL).Info("wechat-mcp started")

	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logrus.Fatalf("MCP server error: %v", err)
	}
}
