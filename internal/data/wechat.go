package data

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/repo"
	"github.com/devricklin/wechat-oa-bridge/internal/infra/wechat"
)

// wechatRepo implements the WeChat gateway on top of the raw API client
type wechatRepo struct {
	client *wechat.Client
	cache  *domain.TokenCache
	log    *logrus.Entry
}

// NewWechatRepo creates a WeChat gateway that owns the given token cache
func NewWechatRepo(client *wechat.Client, cache *domain.TokenCache) repo.WechatRepo {
	return &wechatRepo{
		client: client,
		cache:  cache,
		log:    logrus.WithField("component", "wechat"),
	}
}

// GetAccessToken returns the cached token or fetches a new one.
// Concurrent misses may each fetch; the last one to finish is cached.
func (r *wechatRepo) GetAccessToken(ctx context.Context) (string, error) {
	if token, ok := r.cache.Get(); ok {
		r.log.Debug("access token served from cache")
		return token.Value, nil
	}

	resp, err := r.client.FetchAccessToken(ctx)
	if err != nil {
		r.log.WithError(err).Error("failed to fetch access token")
		return "", err
	}

	token := r.cache.Set(resp.AccessToken, time.Duration(resp.ExpiresIn)*time.Second)
	r.log.WithFields(logrus.Fields{
		"expires_in": resp.ExpiresIn,
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
	}).Info("fetched new access token")
	return token.Value, nil
}

// InvalidateAccessToken drops the cached token
func (r *wechatRepo) InvalidateAccessToken() {
	r.cache.Invalidate()
	r.log.Info("access token cache cleared")
}

// withToken runs fn with an access token and retries once with a fresh
// token if WeChat rejects the cached one
func (r *wechatRepo) withToken(ctx context.Context, fn func(token string) error) error {
	token, err := r.GetAccessToken(ctx)
	if err != nil {
		return err
	}

	err = fn(token)
	if !domain.IsTokenRejected(err) {
		return err
	}

	r.log.WithError(err).Warn("access token rejected, refreshing")
	r.cache.Invalidate()
	token, err = r.GetAccessToken(ctx)
	if err != nil {
		return err
	}
	return fn(token)
}

// GetFollowers fetches one follower page
func (r *wechatRepo) GetFollowers(ctx context.Context, nextOpenID string) (*domain.FollowerPage, error) {
	var resp *wechat.FollowersResponse
	err := r.withToken(ctx, func(token string) error {
		var err error
		resp, err = r.client.GetFollowers(ctx, token, nextOpenID)
		return err
	})
	if err != nil {
		r.log.WithError(err).WithField("next_openid", nextOpenID).Error("failed to get followers")
		return nil, err
	}

	return &domain.FollowerPage{
		Total:      resp.Total,
		Count:      resp.Count,
		OpenIDs:    resp.Data.OpenID,
		NextOpenID: resp.NextOpenID,
	}, nil
}

// GetAllFollowerOpenIDs walks the follower list.
// total is read once from the first page; the walk ends when next_openid is
// empty, a page comes back empty, or the cursor stops advancing.
func (r *wechatRepo) GetAllFollowerOpenIDs(ctx context.Context) ([]string, error) {
	first, err := r.GetFollowers(ctx, "")
	if err != nil {
		return nil, err
	}

	total := first.Total
	openIDs := append(make([]string, 0, total), first.OpenIDs...)

	page := first
	for !page.IsLast() && len(page.OpenIDs) > 0 {
		cursor := page.NextOpenID
		page, err = r.GetFollowers(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if len(page.OpenIDs) == 0 {
			break
		}
		openIDs = append(openIDs, page.OpenIDs...)
		if page.NextOpenID == cursor {
			break
		}
	}

	entry := r.log.WithFields(logrus.Fields{"count": len(openIDs), "total": total})
	if len(openIDs) != total {
		entry.Warn("follower count differs from reported total")
	} else {
		entry.Info("fetched all followers")
	}
	return openIDs, nil
}

// GetUserInfo fetches a follower profile
func (r *wechatRepo) GetUserInfo(ctx context.Context, openID string) (*domain.UserInfo, error) {
	var info *domain.UserInfo
	err := r.withToken(ctx, func(token string) error {
		var err error
		info, err = r.client.GetUserInfo(ctx, token, openID)
		return err
	})
	if err != nil {
		r.log.WithError(err).WithField("openid", openID).Error("failed to get user info")
		return nil, err
	}
	return info, nil
}

// GetTemplateList lists private templates
func (r *wechatRepo) GetTemplateList(ctx context.Context) ([]domain.TemplateDescriptor, error) {
	var list []domain.TemplateDescriptor
	err := r.withToken(ctx, func(token string) error {
		var err error
		list, err = r.client.GetTemplateList(ctx, token)
		return err
	})
	if err != nil {
		r.log.WithError(err).Error("failed to get template list")
		return nil, err
	}
	return list, nil
}

// SendTemplateMessage sends a template message; a nonzero errcode stays in the response
func (r *wechatRepo) SendTemplateMessage(ctx context.Context, req *domain.TemplateMessageRequest) (*domain.TemplateMessageResponse, error) {
	var resp *domain.TemplateMessageResponse
	err := r.withToken(ctx, func(token string) error {
		var err error
		resp, err = r.client.SendTemplateMessage(ctx, token, req)
		if err == nil && domain.IsTokenRejectedCode(resp.ErrCode) {
			return &domain.UpstreamAPIError{Op: "template/send", ErrCode: resp.ErrCode, ErrMsg: resp.ErrMsg}
		}
		return err
	})
	if err != nil && !(resp != nil && domain.IsTokenRejected(err)) {
		r.log.WithError(err).WithField("openid", req.ToUser).Error("failed to send template message")
		return nil, err
	}

	entry := r.log.WithField("openid", req.ToUser)
	if resp.OK() {
		entry.WithField("msgid", resp.MsgID).Info("template message sent")
	} else {
		entry.WithFields(logrus.Fields{"errcode": resp.ErrCode, "errmsg": resp.ErrMsg}).Warn("template message rejected")
	}
	return resp, nil
}

// SendTextMessage sends a customer-service text message, failing on any errcode
func (r *wechatRepo) SendTextMessage(ctx context.Context, openID, content string) error {
	err := r.withToken(ctx, func(token string) error {
		return r.client.SendCustomText(ctx, token, openID, content)
	})
	if err != nil {
		r.log.WithError(err).WithField("openid", openID).Error("failed to send text message")
		return err
	}
	r.log.WithField("openid", openID).Info("text message sent")
	return nil
}
