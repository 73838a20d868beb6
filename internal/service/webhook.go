package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/usecase"
	"github.com/devricklin/wechat-oa-bridge/internal/infra/wechat"
)

// AckBody is the bare acknowledgment WeChat expects when there is no reply
const AckBody = "success"

// SignatureParams are the query parameters WeChat signs every callback with
type SignatureParams struct {
	Signature string
	Timestamp string
	Nonce     string
}

// WebhookService runs the inbound pipeline: verify, decode, route, encode
type WebhookService struct {
	token  string
	router *usecase.MessageRouter
	now    domain.Clock
	log    *logrus.Entry
}

// NewWebhookService creates a new webhook service
func NewWebhookService(token string, router *usecase.MessageRouter) *WebhookService {
	return &WebhookService{
		token:  token,
		router: router,
		now:    time.Now,
		log:    logrus.WithField("component", "webhook"),
	}
}

// Verify checks the server ownership handshake and returns echostr if it passes
func (s *WebhookService) Verify(p SignatureParams, echostr string) (string, bool) {
	if !wechat.VerifySignature(p.Signature, s.token, p.Timestamp, p.Nonce) {
		s.log.WithField("timestamp", p.Timestamp).Warn("server verification failed")
		return "", false
	}
	s.log.Info("server verification passed")
	return echostr, true
}

// HandleMessage processes one callback. It returns the XML reply document, or
// an empty string when the caller should answer with AckBody. The only error is
// domain.ErrSignatureMismatch; everything else is logged and acknowledged.
func (s *WebhookService) HandleMessage(ctx context.Context, p SignatureParams, body []byte) (reply string, err error) {
	if !wechat.VerifySignature(p.Signature, s.token, p.Timestamp, p.Nonce) {
		s.log.WithField("timestamp", p.Timestamp).Warn("message signature verification failed")
		return "", domain.ErrSignatureMismatch
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("panic while handling message")
			reply, err = "", nil
		}
	}()

	msg, err := wechat.DecodeMessage(body)
	if err != nil {
		s.log.WithError(err).Warn("dropping malformed message")
		return "", nil
	}

	h := msg.Header()
	s.log.WithFields(logrus.Fields{
		"msg_type": h.MsgType,
		"from":     h.FromUser,
	}).Info("message received")

	result := s.router.Route(ctx, msg)
	if result.IsAcknowledge() {
		return "", nil
	}

	xml, err := wechat.EncodeReply(result.Message(), s.now())
	if err != nil {
		s.log.WithError(err).Error("failed to encode reply")
		return "", nil
	}
	return xml, nil
}
