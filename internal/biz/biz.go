package biz

import (
	"github.com/devricklin/wechat-oa-bridge/internal/biz/repo"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	User      *usecase.UserUsecase
	Broadcast *usecase.BroadcastUsecase
	Router    *usecase.MessageRouter
}

// NewUsecases wires the usecases over the repositories. The router reports
// subscription changes to the user directory.
func NewUsecases(wechatRepo repo.WechatRepo, userRepo repo.UserRepo, routerCfg usecase.RouterConfig) *Usecases {
	userUC := usecase.NewUserUsecase(wechatRepo, userRepo, usecase.NewExecutor(usecase.UserSyncInterval))
	return &Usecases{
		User:      userUC,
		Broadcast: usecase.NewBroadcastUsecase(wechatRepo, usecase.NewExecutor(usecase.TemplateSendInterval)),
		Router:    usecase.NewMessageRouter(routerCfg, userUC),
	}
}
