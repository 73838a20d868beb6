package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/repo"
)

// BatchTemplate is a template message sent to many recipients
type BatchTemplate struct {
	TemplateID  string
	URL         string
	MiniProgram *domain.MiniProgram
	Data        map[string]domain.TemplateDataItem
}

func (b *BatchTemplate) requestFor(openID string) *domain.TemplateMessageRequest {
	return &domain.TemplateMessageRequest{
		ToUser:      openID,
		TemplateID:  b.TemplateID,
		URL:         b.URL,
		MiniProgram: b.MiniProgram,
		Data:        b.Data,
	}
}

// BroadcastUsecase sends template messages to recipient lists
type BroadcastUsecase struct {
	wechatRepo repo.WechatRepo
	executor   *Executor
	log        *logrus.Entry
}

// NewBroadcastUsecase creates a new broadcast usecase
func NewBroadcastUsecase(wechatRepo repo.WechatRepo, executor *Executor) *BroadcastUsecase {
	if executor == nil {
		executor = NewExecutor(TemplateSendInterval)
	}
	return &BroadcastUsecase{
		wechatRepo: wechatRepo,
		executor:   executor,
		log:        logrus.WithField("component", "broadcast"),
	}
}

// SendBatch sends the template to each recipient in order. A transport error or
// a nonzero errcode puts that recipient in Failed; the rest are still attempted.
func (uc *BroadcastUsecase) SendBatch(ctx context.Context, openIDs []string, tmpl *BatchTemplate) (*domain.BatchResult, error) {
	result, err := uc.executor.Run(ctx, openIDs, func(ctx context.Context, openID string) error {
		resp, err := uc.wechatRepo.SendTemplateMessage(ctx, tmpl.requestFor(openID))
		if err != nil {
			return err
		}
		if !resp.OK() {
			return &domain.UpstreamAPIError{Op: "template/send", ErrCode: resp.ErrCode, ErrMsg: resp.ErrMsg}
		}
		return nil
	})

	entry := uc.log.WithFields(logrus.Fields{
		"template_id": tmpl.TemplateID,
		"success":     len(result.Success),
		"failed":      len(result.Failed),
	})
	if err != nil {
		entry.WithError(err).Warn("batch send interrupted")
		return &result, err
	}
	entry.Info("batch send completed")
	return &result, nil
}

// SendToAll sends the template to every follower
func (uc *BroadcastUsecase) SendToAll(ctx context.Context, tmpl *BatchTemplate) (*domain.BatchResult, error) {
	openIDs, err := uc.wechatRepo.GetAllFollowerOpenIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return uc.SendBatch(ctx, openIDs, tmpl)
}
