package mcpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	bridgeapi "github.com/devricklin/wechat-oa-bridge/internal/mcp"
)

type fakeAPI struct {
	token    string
	err      error
	cleared  bool
	page     *domain.FollowerPage
	user     *domain.StoredUser
	sendResp *domain.TemplateMessageResponse
	sent     *bridgeapi.TemplateMessage
	texts    []string
	stats    *domain.UserStats
}

func (f *fakeAPI) GetToken(ctx context.Context) (string, error) {
	return f.token, f.err
}

func (f *fakeAPI) ClearToken(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = true
	return nil
}

func (f *fakeAPI) ListFollowers(ctx context.Context, nextOpenID string) (*domain.FollowerPage, error) {
	return f.page, f.err
}

func (f *fakeAPI) GetUser(ctx context.Context, openID string) (*domain.StoredUser, error) {
	return f.user, f.err
}

func (f *fakeAPI) ListTemplates(ctx context.Context) ([]domain.TemplateDescriptor, error) {
	return nil, f.err
}

func (f *fakeAPI) SendTemplate(ctx context.Context, msg *bridgeapi.TemplateMessage) (*domain.TemplateMessageResponse, error) {
	f.sent = msg
	return f.sendResp, f.err
}

func (f *fakeAPI) SendText(ctx context.Context, openID, content string) error {
	f.texts = append(f.texts, openID+":"+content)
	return f.err
}

func (f *fakeAPI) SyncFollowers(ctx context.Context) (*domain.SyncResult, error) {
	return &domain.SyncResult{Synced: 3}, f.err
}

func (f *fakeAPI) UserStats(ctx context.Context) (*domain.UserStats, error) {
	return f.stats, f.err
}

func TestHandleGetToken(t *testing.T) {
	s := NewServer(&fakeAPI{token: "tok-1"})

	_, out, err := s.handleGetToken(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.AccessToken != "tok-1" {
		t.Errorf("Expected tok-1, got %s", out.AccessToken)
	}

	s = NewServer(&fakeAPI{err: errors.New("HTTP 502: upstream")})
	_, out, _ = s.handleGetToken(context.Background(), nil, EmptyInput{})
	if out.Error == "" {
		t.Error("Expected error in output")
	}
}

func TestHandleClearToken(t *testing.T) {
	api := &fakeAPI{}
	s := NewServer(api)

	_, out, _ := s.handleClearToken(context.Background(), nil, EmptyInput{})
	if !out.Success {
		t.Errorf("Expected success, got error %q", out.Error)
	}
	if !api.cleared {
		t.Error("Expected ClearToken to be called")
	}
}

func TestHandleListFollowers_EmptyPage(t *testing.T) {
	s := NewServer(&fakeAPI{page: &domain.FollowerPage{}})

	_, out, _ := s.handleListFollowers(context.Background(), nil, ListFollowersInput{})
	if out.OpenIDs == nil {
		t.Error("Expected non-nil openids")
	}
	if out.Error != "" {
		t.Errorf("Expected no error, got %s", out.Error)
	}
}

func TestHandleGetUser(t *testing.T) {
	subscribed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s := NewServer(&fakeAPI{user: &domain.StoredUser{
		OpenID:        "o1",
		Nickname:      "Alice",
		Subscribe:     true,
		SubscribeTime: subscribed,
	}})

	_, out, _ := s.handleGetUser(context.Background(), nil, GetUserInput{OpenID: "o1"})
	if out.Nickname != "Alice" || !out.Subscribed {
		t.Errorf("Unexpected output: %+v", out)
	}
	if out.SubscribeTime != "2024-03-01T08:00:00Z" {
		t.Errorf("Expected RFC 3339 subscribe time, got %s", out.SubscribeTime)
	}
	if out.LastSyncTime != "" {
		t.Errorf("Expected empty last sync time, got %s", out.LastSyncTime)
	}

	_, out, _ = s.handleGetUser(context.Background(), nil, GetUserInput{})
	if out.Error != "openid is required" {
		t.Errorf("Expected validation error, got %q", out.Error)
	}
}

func TestHandleSendTemplate(t *testing.T) {
	api := &fakeAPI{sendResp: &domain.TemplateMessageResponse{MsgID: 7}}
	s := NewServer(api)

	_, out, _ := s.handleSendTemplate(context.Background(), nil, SendTemplateInput{
		OpenID:     "o1",
		TemplateID: "t1",
		Data:       map[string]string{"first": "hello"},
	})
	if !out.Success || out.MsgID != 7 {
		t.Errorf("Unexpected output: %+v", out)
	}
	if api.sent.Data["first"].Value != "hello" {
		t.Errorf("Expected data value hello, got %+v", api.sent.Data)
	}
}

func TestHandleSendTemplate_ErrCode(t *testing.T) {
	s := NewServer(&fakeAPI{sendResp: &domain.TemplateMessageResponse{ErrCode: 43004, ErrMsg: "require subscribe"}})

	_, out, _ := s.handleSendTemplate(context.Background(), nil, SendTemplateInput{OpenID: "o1", TemplateID: "t1"})
	if out.Success {
		t.Error("Expected failure for non-zero errcode")
	}
	if out.Error == "" {
		t.Error("Expected error message")
	}
}

func TestHandleSendText_Validation(t *testing.T) {
	api := &fakeAPI{}
	s := NewServer(api)

	_, out, _ := s.handleSendText(context.Background(), nil, SendTextInput{OpenID: "o1"})
	if out.Success {
		t.Error("Expected failure without content")
	}
	if len(api.texts) != 0 {
		t.Errorf("Expected no send, got %v", api.texts)
	}

	_, out, _ = s.handleSendText(context.Background(), nil, SendTextInput{OpenID: "o1", Content: "hi"})
	if !out.Success {
		t.Errorf("Expected success, got %q", out.Error)
	}
	if len(api.texts) != 1 || api.texts[0] != "o1:hi" {
		t.Errorf("Unexpected sends: %v", api.texts)
	}
}

func TestToolsOverSession(t *testing.T) {
	ctx := context.Background()
	s := NewServer(&fakeAPI{stats: &domain.UserStats{Total: 2, Subscribed: 1, Unsubscribed: 1}})

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.GetServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Unexpected server connect error: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Unexpected client connect error: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("Unexpected list error: %v", err)
	}
	if len(tools.Tools) != 9 {
		t.Errorf("Expected 9 tools, got %d", len(tools.Tools))
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "user_stats", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("Unexpected call error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected tool success, got %+v", result.Content)
	}
	stats, ok := result.StructuredContent.(map[string]any)
	if !ok {
		t.Fatalf("Expected structured content, got %T", result.StructuredContent)
	}
	if stats["total"] != float64(2) {
		t.Errorf("Expected total 2, got %v", stats["total"])
	}
}
