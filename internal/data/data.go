package data

import (
	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/repo"
	"github.com/devricklin/wechat-oa-bridge/internal/infra/wechat"
)

// Repositories contains all repositories
type Repositories struct {
	Wechat repo.WechatRepo
	User   repo.UserRepo
}

// NewRepositories creates all repositories
func NewRepositories(client *wechat.Client, cache *domain.TokenCache, userDBPath string) (*Repositories, error) {
	userRepo, err := NewUserRepo(userDBPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Wechat: NewWechatRepo(client, cache),
		User:   userRepo,
	}, nil
}

// Close releases repository resources
func (r *Repositories) Close() error {
	return r.User.Close()
}
