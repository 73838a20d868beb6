package repo

import (
	"context"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

// WechatRepo is the WeChat platform gateway interface.
// Every call obtains an access token through the token cache.
type WechatRepo interface {
	// GetAccessToken returns the cached token or fetches a new one
	GetAccessToken(ctx context.Context) (string, error)

	// InvalidateAccessToken drops the cached token
	InvalidateAccessToken()

	// GetFollowers fetches one page of followers starting after nextOpenID
	GetFollowers(ctx context.Context, nextOpenID string) (*domain.FollowerPage, error)

	// GetAllFollowerOpenIDs walks every follower page
	GetAllFollowerOpenIDs(ctx context.Context) ([]string, error)

	// GetUserInfo fetches a follower profile
	GetUserInfo(ctx context.Context, openID string) (*domain.UserInfo, error)

	// GetTemplateList lists the account's private templates
	GetTemplateList(ctx context.Context) ([]domain.TemplateDescriptor, error)

	// SendTemplateMessage sends a template message.
	// A nonzero errcode is reported in the response, not as an error.
	SendTemplateMessage(ctx context.Context, req *domain.TemplateMessageRequest) (*domain.TemplateMessageResponse, error)

	// SendTextMessage sends a customer-service text message
	SendTextMessage(ctx context.Context, openID, content string) error
}
