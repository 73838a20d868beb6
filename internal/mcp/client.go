package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

// Client is the HTTP client for the bridge's operator API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new bridge API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TemplateMessage is a single template send
type TemplateMessage struct {
	OpenID     string                             `json:"openid"`
	TemplateID string                             `json:"templateId"`
	URL        string                             `json:"url,omitempty"`
	Data       map[string]domain.TemplateDataItem `json:"data"`
}

// ============ Token ============

// GetToken returns the current access token
func (c *Client) GetToken(ctx context.Context) (string, error) {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.get(ctx, "/wechat/token", &result); err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

// ClearToken drops the cached access token
func (c *Client) ClearToken(ctx context.Context) error {
	return c.post(ctx, "/wechat/token/clear", struct{}{}, nil)
}

// ============ Followers ============

// ListFollowers returns one page of follower openids
func (c *Client) ListFollowers(ctx context.Context, nextOpenID string) (*domain.FollowerPage, error) {
	path := "/wechat/followers"
	if nextOpenID != "" {
		path += "?next_openid=" + url.QueryEscape(nextOpenID)
	}

	var page domain.FollowerPage
	if err := c.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetUser returns the directory record for a follower
func (c *Client) GetUser(ctx context.Context, openID string) (*domain.StoredUser, error) {
	var user domain.StoredUser
	if err := c.get(ctx, "/user?openid="+url.QueryEscape(openID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SyncFollowers triggers a full follower sync
func (c *Client) SyncFollowers(ctx context.Context) (*domain.SyncResult, error) {
	var result domain.SyncResult
	if err := c.post(ctx, "/user/sync", struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UserStats returns directory counts
func (c *Client) UserStats(ctx context.Context) (*domain.UserStats, error) {
	var stats domain.UserStats
	if err := c.get(ctx, "/user/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ============ Messages ============

// ListTemplates returns the account's message templates
func (c *Client) ListTemplates(ctx context.Context) ([]domain.TemplateDescriptor, error) {
	var result struct {
		TemplateList []domain.TemplateDescriptor `json:"template_list"`
	}
	if err := c.get(ctx, "/wechat/templates", &result); err != nil {
		return nil, err
	}
	return result.TemplateList, nil
}

// SendTemplate sends one template message
func (c *Client) SendTemplate(ctx context.Context, msg *TemplateMessage) (*domain.TemplateMessageResponse, error) {
	var resp domain.TemplateMessageResponse
	if err := c.post(ctx, "/wechat/message/template", msg, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendText sends a customer service text message
func (c *Client) SendText(ctx context.Context, openID, content string) error {
	body := map[string]string{"openid": openID, "content": content}
	return c.post(ctx, "/wechat/message/text", body, nil)
}

// ============ HTTP Helpers ============

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", req.Method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
