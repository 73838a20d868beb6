package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/data"
	"github.com/devricklin/wechat-oa-bridge/internal/infra/wechat"
)

func main() {
	_ = godotenv.Load()

	appID := os.Getenv("WECHAT_APP_ID")
	appSecret := os.Getenv("WECHAT_APP_SECRET")

	if appID == "" || appSecret == "" {
		fmt.Println("Error: WECHAT_APP_ID and WECHAT_APP_SECRET must be set")
		os.Exit(1)
	}

	if len(os.Args) < 3 {
		fmt.Println("Usage: send-message <openid> <message>")
		os.Exit(1)
	}

	openID := os.Args[1]
	message := os.Args[2]

	client := wechat.NewClient(os.Getenv("WECHAT_API_BASE_URL"), appID, appSecret, 10*time.Second)
	gateway := data.NewWechatRepo(client, domain.NewTokenCache(nil))

	if err := gateway.SendTextMessage(context.Background(), openID, message); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Message sent successfully!")
}
