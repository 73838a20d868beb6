package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	"github.com/devricklin/wechat-oa-bridge/internal/biz/usecase"
	"github.com/devricklin/wechat-oa-bridge/internal/infra/wechat"
)

const testToken = "webhook-token"

func signedParams() SignatureParams {
	return SignatureParams{
		Signature: wechat.Signature(testToken, "1700000000", "nonce"),
		Timestamp: "1700000000",
		Nonce:     "nonce",
	}
}

func newTestWebhook() *WebhookService {
	svc := NewWebhookService(testToken, usecase.NewMessageRouter(usecase.DefaultRouterConfig, nil))
	svc.now = func() time.Time { return time.Unix(1700000100, 0) }
	return svc
}

func TestVerify(t *testing.T) {
	svc := newTestWebhook()

	echo, ok := svc.Verify(signedParams(), "abc123")
	if !ok || echo != "abc123" {
		t.Errorf("Expected echostr 'abc123', got '%s' (ok=%v)", echo, ok)
	}

	bad := signedParams()
	bad.Signature = strings.Repeat("0", 40)
	echo, ok = svc.Verify(bad, "abc123")
	if ok || echo != "" {
		t.Errorf("Expected rejection, got '%s' (ok=%v)", echo, ok)
	}
}

func TestHandleMessage_BadSignature(t *testing.T) {
	svc := newTestWebhook()
	p := signedParams()
	p.Nonce = "other"

	_, err := svc.HandleMessage(context.Background(), p, []byte("<xml></xml>"))
	if !errors.Is(err, domain.ErrSignatureMismatch) {
		t.Fatalf("Expected ErrSignatureMismatch, got %v", err)
	}
}

func TestHandleMessage_TextEcho(t *testing.T) {
	svc := newTestWebhook()
	body := `<xml><ToUserName><![CDATA[gh_1]]></ToUserName><FromUserName><![CDATA[user1]]></FromUserName>` +
		`<CreateTime>1700000000</CreateTime><MsgType><![CDATA[text]]></MsgType>` +
		`<Content><![CDATA[hello]]></Content><MsgId>123</MsgId></xml>`

	reply, err := svc.HandleMessage(context.Background(), signedParams(), []byte(body))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	for _, want := range []string{
		"<Content><![CDATA[您发送了: hello]]></Content>",
		"<MsgType><![CDATA[text]]></MsgType>",
		"<ToUserName><![CDATA[user1]]></ToUserName>",
		"<FromUserName><![CDATA[gh_1]]></FromUserName>",
		"<CreateTime>1700000100</CreateTime>",
	} {
		if !strings.Contains(reply, want) {
			t.Errorf("Expected reply to contain %s, got %s", want, reply)
		}
	}
}

func TestHandleMessage_Events(t *testing.T) {
	event := func(name string) []byte {
		return []byte(`<xml><ToUserName>gh_1</ToUserName><FromUserName>user1</FromUserName>` +
			`<CreateTime>1700000000</CreateTime><MsgType>event</MsgType><Event>` + name + `</Event></xml>`)
	}
	svc := newTestWebhook()

	reply, err := svc.HandleMessage(context.Background(), signedParams(), event("subscribe"))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if !strings.Contains(reply, usecase.DefaultRouterConfig.Welcome) {
		t.Errorf("Expected welcome reply, got %s", reply)
	}

	reply, err = svc.HandleMessage(context.Background(), signedParams(), event("unsubscribe"))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if reply != "" {
		t.Errorf("Expected acknowledgment for unsubscribe, got %s", reply)
	}
}

func TestHandleMessage_MalformedIsAcknowledged(t *testing.T) {
	svc := newTestWebhook()

	for _, body := range []string{"", "not xml", "<xml><MsgType>text"} {
		reply, err := svc.HandleMessage(context.Background(), signedParams(), []byte(body))
		if err != nil {
			t.Errorf("body %q: Expected no error, got %v", body, err)
		}
		if reply != "" {
			t.Errorf("body %q: Expected acknowledgment, got %s", body, reply)
		}
	}
}

func TestHandleMessage_OtherTypeAcknowledged(t *testing.T) {
	svc := newTestWebhook()
	body := `<xml><ToUserName>gh_1</ToUserName><FromUserName>user1</FromUserName>` +
		`<CreateTime>1700000000</CreateTime><MsgType>image</MsgType><PicUrl>http://x/y.jpg</PicUrl></xml>`

	reply, err := svc.HandleMessage(context.Background(), signedParams(), []byte(body))
	if err != nil || reply != "" {
		t.Errorf("Expected acknowledgment, got %q, %v", reply, err)
	}
}
