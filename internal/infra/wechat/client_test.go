package wechat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "app-id", "app-secret", 2*time.Second)
}

func TestFetchAccessToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cgi-bin/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("grant_type") != "client_credential" || q.Get("appid") != "app-id" || q.Get("secret") != "app-secret" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"access_token":"tok","expires_in":7200}`))
	})

	resp, err := client.FetchAccessToken(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if resp.AccessToken != "tok" || resp.ExpiresIn != 7200 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestFetchAccessToken_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":40013,"errmsg":"invalid appid"}`))
	})

	_, err := client.FetchAccessToken(context.Background())
	var apiErr *domain.UpstreamAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected UpstreamAPIError, got %v", err)
	}
	if apiErr.ErrCode != 40013 || apiErr.ErrMsg != "invalid appid" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClient_TransportErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status 500": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"invalid json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, handler)
			_, err := client.GetFollowers(context.Background(), "tok", "")
			var transportErr *domain.TransportError
			if !errors.As(err, &transportErr) {
				t.Errorf("expected TransportError, got %v", err)
			}
		})
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewClient(srv.URL, "app-id", "app-secret", time.Second)

	err := client.SendCustomText(context.Background(), "tok", "openid-1", "hi")
	var transportErr *domain.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestGetFollowers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("access_token") != "tok" || q.Get("next_openid") != "o2" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"total":3,"count":1,"data":{"openid":["o3"]},"next_openid":"o3"}`))
	})

	resp, err := client.GetFollowers(context.Background(), "tok", "o2")
	if err != nil {
		t.Fatalf("get followers failed: %v", err)
	}
	if resp.Total != 3 || len(resp.Data.OpenID) != 1 || resp.NextOpenID != "o3" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestGetUserInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") != "zh_CN" {
			t.Errorf("expected lang=zh_CN, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"subscribe":1,"openid":"o1","nickname":"Alice","subscribe_time":1700000000,"tagid_list":[2]}`))
	})

	info, err := client.GetUserInfo(context.Background(), "tok", "o1")
	if err != nil {
		t.Fatalf("get user info failed: %v", err)
	}
	if info.Nickname != "Alice" || info.Subscribe != 1 || info.SubscribeTime != 1700000000 || len(info.TagIDList) != 1 {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestSendTemplateMessage_ErrcodeIsNotError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("access_token") != "tok" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		var body domain.TemplateMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.ToUser != "o1" || body.TemplateID != "tpl" || body.Data["first"].Value != "hi" {
			t.Errorf("unexpected body %+v", body)
		}
		w.Write([]byte(`{"errcode":43004,"errmsg":"require subscribe"}`))
	})

	resp, err := client.SendTemplateMessage(context.Background(), "tok", &domain.TemplateMessageRequest{
		ToUser:     "o1",
		TemplateID: "tpl",
		Data:       map[string]domain.TemplateDataItem{"first": {Value: "hi"}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.OK() || resp.ErrCode != 43004 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestSendCustomText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["msgtype"] != "text" || body["touser"] != "o1" {
			t.Errorf("unexpected body %v", body)
		}
		w.Write([]byte(`{"errcode":45015,"errmsg":"response out of time limit"}`))
	})

	err := client.SendCustomText(context.Background(), "tok", "o1", "hi")
	var apiErr *domain.UpstreamAPIError
	if !errors.As(err, &apiErr) || apiErr.ErrCode != 45015 {
		t.Fatalf("expected UpstreamAPIError 45015, got %v", err)
	}
}

func TestGetTemplateList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cgi-bin/template/get_all_private_template" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"template_list":[{"template_id":"t1","title":"Order"}]}`))
	})

	list, err := client.GetTemplateList(context.Background(), "tok")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 || list[0].TemplateID != "t1" {
		t.Errorf("unexpected list %+v", list)
	}
}
