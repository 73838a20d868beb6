package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

const (
	// DefaultBaseURL is the public WeChat API host
	DefaultBaseURL = "https://api.weixin.qq.com"

	maxRedirects = 5
)

// Client is the raw WeChat Official Account HTTP API client.
// It does not cache access tokens; callers pass one in.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
}

// NewClient creates a client. The timeout applies to every upstream call.
func NewClient(baseURL, appID, appSecret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appID:     appID,
		appSecret: appSecret,
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// Envelope is the errcode/errmsg pair carried by every response
type Envelope struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Err converts a nonzero errcode into an UpstreamAPIError
func (e Envelope) Err(op string) error {
	if e.ErrCode == 0 {
		return nil
	}
	return &domain.UpstreamAPIError{Op: op, ErrCode: e.ErrCode, ErrMsg: e.ErrMsg}
}

// TokenResponse is the response of /cgi-bin/token
type TokenResponse struct {
	Envelope
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// FollowersResponse is the response of /cgi-bin/user/get
type FollowersResponse struct {
	Envelope
	Total int `json:"total"`
	Count int `json:"count"`
	Data  struct {
		OpenID []string `json:"openid"`
	} `json:"data"`
	NextOpenID string `json:"next_openid"`
}

type userInfoResponse struct {
	Envelope
	domain.UserInfo
}

type templateListResponse struct {
	Envelope
	TemplateList []domain.TemplateDescriptor `json:"template_list"`
}

type customTextRequest struct {
	ToUser  string `json:"touser"`
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

// FetchAccessToken requests a new access token with the app credentials
func (c *Client) FetchAccessToken(ctx context.Context) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "client_credential")
	params.Set("appid", c.appID)
	params.Set("secret", c.appSecret)

	var resp TokenResponse
	if err := c.get(ctx, "token", "/cgi-bin/token", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err("token"); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &domain.TransportError{Op: "token", Err: fmt.Errorf("response without access_token")}
	}
	return &resp, nil
}

// GetFollowers fetches one follower page; an empty nextOpenID starts from the beginning
func (c *Client) GetFollowers(ctx context.Context, accessToken, nextOpenID string) (*FollowersResponse, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)
	if nextOpenID != "" {
		params.Set("next_openid", nextOpenID)
	}

	var resp FollowersResponse
	if err := c.get(ctx, "user/get", "/cgi-bin/user/get", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err("user/get"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetUserInfo fetches a follower profile in zh_CN
func (c *Client) GetUserInfo(ctx context.Context, accessToken, openID string) (*domain.UserInfo, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)
	params.Set("openid", openID)
	params.Set("lang", "zh_CN")

	var resp userInfoResponse
	if err := c.get(ctx, "user/info", "/cgi-bin/user/info", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err("user/info"); err != nil {
		return nil, err
	}
	info := resp.UserInfo
	if info.OpenID == "" {
		info.OpenID = openID
	}
	return &info, nil
}

// GetTemplateList lists the private templates of the account
func (c *Client) GetTemplateList(ctx context.Context, accessToken string) ([]domain.TemplateDescriptor, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)

	var resp templateListResponse
	if err := c.get(ctx, "template/list", "/cgi-bin/template/get_all_private_template", params, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err("template/list"); err != nil {
		return nil, err
	}
	return resp.TemplateList, nil
}

// SendTemplateMessage posts a template message. A nonzero errcode is returned
// in the response; only transport failures are errors.
func (c *Client) SendTemplateMessage(ctx context.Context, accessToken string, req *domain.TemplateMessageRequest) (*domain.TemplateMessageResponse, error) {
	var resp domain.TemplateMessageResponse
	if err := c.post(ctx, "template/send", "/cgi-bin/message/template/send", accessToken, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendCustomText posts a customer-service text message
func (c *Client) SendCustomText(ctx context.Context, accessToken, openID, content string) error {
	body := customTextRequest{ToUser: openID, MsgType: "text"}
	body.Text.Content = content

	var resp Envelope
	if err := c.post(ctx, "custom/send", "/cgi-bin/message/custom/send", accessToken, body, &resp); err != nil {
		return err
	}
	return resp.Err("custom/send")
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	return c.do(req, op, out)
}

func (c *Client) post(ctx context.Context, op, path, accessToken string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("wechat %s: marshal request: %w", op, err)
	}

	endpoint := c.baseURL + path + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &domain.TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
