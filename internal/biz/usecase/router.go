package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

// SubscriptionListener is notified when a user follows or unfollows the account
type SubscriptionListener interface {
	OnSubscribe(ctx context.Context, openID string) error
	OnUnsubscribe(ctx context.Context, openID string) error
}

// RouterConfig holds the fixed reply texts
type RouterConfig struct {
	Welcome    string
	EchoPrefix string
}

// DefaultRouterConfig is the default reply texts
var DefaultRouterConfig = RouterConfig{
	Welcome:    "欢迎关注！感谢您的支持 🎉",
	EchoPrefix: "您发送了: ",
}

const listenerTimeout = 30 * time.Second

// MessageRouter decides the passive reply for an inbound message
type MessageRouter struct {
	config   RouterConfig
	listener SubscriptionListener
	log      *logrus.Entry
	wg       sync.WaitGroup
}

// NewMessageRouter creates a router. listener may be nil.
func NewMessageRouter(config RouterConfig, listener SubscriptionListener) *MessageRouter {
	if config.Welcome == "" {
		config.Welcome = DefaultRouterConfig.Welcome
	}
	if config.EchoPrefix == "" {
		config.EchoPrefix = DefaultRouterConfig.EchoPrefix
	}
	return &MessageRouter{
		config:   config,
		listener: listener,
		log:      logrus.WithField("component", "router"),
	}
}

// Route classifies msg and returns the reply to send back
func (r *MessageRouter) Route(ctx context.Context, msg domain.InboundMessage) domain.Reply {
	switch m := msg.(type) {
	case *domain.EventMessage:
		return r.routeEvent(ctx, m)
	case *domain.TextMessage:
		r.log.WithField("from", m.FromUser).Debug("echoing text message")
		return domain.ReplyWith(domain.NewTextReply(m, r.config.EchoPrefix+m.Content))
	case nil:
		return domain.Acknowledge()
	default:
		r.log.WithFields(logrus.Fields{
			"from":     msg.Header().FromUser,
			"msg_type": msg.Header().MsgType,
		}).Debug("no reply for message type")
		return domain.Acknowledge()
	}
}

func (r *MessageRouter) routeEvent(ctx context.Context, m *domain.EventMessage) domain.Reply {
	entry := r.log.WithFields(logrus.Fields{"from": m.FromUser, "event": m.Event})

	switch m.Event {
	case domain.EventSubscribe:
		entry.Info("user subscribed")
		r.notify(ctx, m.FromUser, true)
		return domain.ReplyWith(domain.NewTextReply(m, r.config.Welcome))
	case domain.EventUnsubscribe:
		entry.Info("user unsubscribed")
		r.notify(ctx, m.FromUser, false)
		return domain.Acknowledge()
	case domain.EventScan:
		entry.WithField("event_key", m.EventKey).Info("user scanned qrcode")
		return domain.Acknowledge()
	default:
		entry.Debug("no reply for event")
		return domain.Acknowledge()
	}
}

// notify runs the listener in the background so the webhook reply is not
// held up by upstream calls
func (r *MessageRouter) notify(ctx context.Context, openID string, subscribed bool) {
	if r.listener == nil {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), listenerTimeout)
		defer cancel()

		var err error
		if subscribed {
			err = r.listener.OnSubscribe(bg, openID)
		} else {
			err = r.listener.OnUnsubscribe(bg, openID)
		}
		if err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"openid":     openID,
				"subscribed": subscribed,
			}).Warn("subscription listener failed")
		}
	}()
}

// Wait blocks until background listener calls have finished
func (r *MessageRouter) Wait() {
	r.wg.Wait()
}
