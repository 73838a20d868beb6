package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/repo"
)

// UserUsecase maintains the local follower directory
type UserUsecase struct {
	wechatRepo repo.WechatRepo
	userRepo   repo.UserRepo
	executor   *Executor
	now        domain.Clock
	log        *logrus.Entry
}

// NewUserUsecase creates a new user usecase. executor spaces the per-user
// upstream calls of SyncAll.
func NewUserUsecase(wechatRepo repo.WechatRepo, userRepo repo.UserRepo, executor *Executor) *UserUsecase {
	if executor == nil {
		executor = NewExecutor(UserSyncInterval)
	}
	return &UserUsecase{
		wechatRepo: wechatRepo,
		userRepo:   userRepo,
		executor:   executor,
		now:        time.Now,
		log:        logrus.WithField("component", "users"),
	}
}

// SyncAll refreshes every follower's profile. A failed user is counted and
// skipped; only context cancellation ends the run early.
func (uc *UserUsecase) SyncAll(ctx context.Context) (*domain.SyncResult, error) {
	openIDs, err := uc.wechatRepo.GetAllFollowerOpenIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}

	batch, err := uc.executor.Run(ctx, openIDs, func(ctx context.Context, openID string) error {
		if _, err := uc.SyncUser(ctx, openID); err != nil {
			uc.log.WithError(err).WithField("openid", openID).Warn("failed to sync user")
			return err
		}
		return nil
	})

	result := &domain.SyncResult{Synced: len(batch.Success), Failed: len(batch.Failed)}
	entry := uc.log.WithFields(logrus.Fields{"synced": result.Synced, "failed": result.Failed})
	if err != nil {
		entry.WithError(err).Warn("follower sync interrupted")
		return result, err
	}
	entry.Info("follower sync completed")
	return result, nil
}

// SyncUser fetches a profile from WeChat and stores it
func (uc *UserUsecase) SyncUser(ctx context.Context, openID string) (*domain.StoredUser, error) {
	info, err := uc.wechatRepo.GetUserInfo(ctx, openID)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	if info.OpenID == "" {
		info.OpenID = openID
	}

	user := domain.NewStoredUser(info, uc.now())
	if err := uc.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// GetUser returns the stored user, syncing from WeChat on a miss.
// A failed sync yields nil without error.
func (uc *UserUsecase) GetUser(ctx context.Context, openID string) (*domain.StoredUser, error) {
	user, err := uc.userRepo.Get(ctx, openID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user, err = uc.SyncUser(ctx, openID)
	if err != nil {
		uc.log.WithError(err).WithField("openid", openID).Warn("failed to fetch user")
		return nil, nil
	}
	return user, nil
}

// ListUsers lists all stored users
func (uc *UserUsecase) ListUsers(ctx context.Context) ([]*domain.StoredUser, error) {
	return uc.list(ctx, false)
}

// ListSubscribed lists stored users that still follow the account
func (uc *UserUsecase) ListSubscribed(ctx context.Context) ([]*domain.StoredUser, error) {
	return uc.list(ctx, true)
}

func (uc *UserUsecase) list(ctx context.Context, subscribedOnly bool) ([]*domain.StoredUser, error) {
	users, err := uc.userRepo.List(ctx, subscribedOnly)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []*domain.StoredUser{}
	}
	return users, nil
}

// Stats counts stored users by subscription state
func (uc *UserUsecase) Stats(ctx context.Context) (*domain.UserStats, error) {
	users, err := uc.list(ctx, false)
	if err != nil {
		return nil, err
	}

	stats := &domain.UserStats{Total: len(users)}
	for _, u := range users {
		if u.Subscribe {
			stats.Subscribed++
		}
	}
	stats.Unsubscribed = stats.Total - stats.Subscribed
	return stats, nil
}

// OnSubscribe syncs the new follower's profile
func (uc *UserUsecase) OnSubscribe(ctx context.Context, openID string) error {
	uc.log.WithField("openid", openID).Info("syncing new follower")
	_, err := uc.SyncUser(ctx, openID)
	return err
}

// OnUnsubscribe marks a known user as unsubscribed
func (uc *UserUsecase) OnUnsubscribe(ctx context.Context, openID string) error {
	found, err := uc.userRepo.SetSubscribed(ctx, openID, false)
	if err != nil {
		return fmt.Errorf("mark unsubscribed: %w", err)
	}
	if !found {
		uc.log.WithField("openid", openID).Debug("unsubscribed user not in directory")
	}
	return nil
}
