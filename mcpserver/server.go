package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
	bridgeapi "github.com/devricklin/wechat-oa-bridge/internal/mcp"
)

// BridgeAPI is the part of the bridge's operator API the tools call
type BridgeAPI interface {
	GetToken(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
	ListFollowers(ctx context.Context, nextOpenID string) (*domain.FollowerPage, error)
	GetUser(ctx context.Context, openID string) (*domain.StoredUser, error)
	ListTemplates(ctx context.Context) ([]domain.TemplateDescriptor, error)
	SendTemplate(ctx context.Context, msg *bridgeapi.TemplateMessage) (*domain.TemplateMessageResponse, error)
	SendText(ctx context.Context, openID, content string) error
	SyncFollowers(ctx context.Context) (*domain.SyncResult, error)
	UserStats(ctx context.Context) (*domain.UserStats, error)
}

// WechatMCPServer exposes the bridge's operator API as MCP tools
type WechatMCPServer struct {
	server *mcp.Server
	api    BridgeAPI
}

// NewServer creates a new WeChat MCP server
func NewServer(api BridgeAPI) *WechatMCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "wechat-oa-tools",
		Version: "v1.0.0",
	}, nil)

	s := &WechatMCPServer{
		server: server,
		api:    api,
	}
	s.registerTools()

	return s
}

func (s *WechatMCPServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_token",
		Description: "Get the current WeChat access token, fetching a fresh one if the cache is empty.",
	}, s.handleGetToken)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_token",
		Description: "Drop the cached access token so the next API call fetches a new one.",
	}, s.handleClearToken)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_followers",
		Description: "List one page of follower openids. Pass next_openid from the previous page to continue.",
	}, s.handleListFollowers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_user",
		Description: "Look up a follower in the user directory, fetching the profile from WeChat on a miss.",
	}, s.handleGetUser)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_templates",
		Description: "List the template messages configured for the official account.",
	}, s.handleListTemplates)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "send_template",
		Description: "Send a template message to one follower.",
	}, s.handleSendTemplate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "send_text",
		Description: "Send a customer service text message to a follower who interacted within the last 48 hours.",
	}, s.handleSendText)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_followers",
		Description: "Refresh the user directory from the full follower list. Slow on large accounts.",
	}, s.handleSyncFollowers)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "user_stats",
		Description: "Count users in the directory by subscription state.",
	}, s.handleUserStats)
}

// EmptyInput is used by tools without arguments
type EmptyInput struct{}

// ResultOutput is the output of tools that only report success
type ResultOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GetTokenOutput is the output for get_token
type GetTokenOutput struct {
	AccessToken string `json:"access_token,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (s *WechatMCPServer) handleGetToken(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, GetTokenOutput, error) {
	token, err := s.api.GetToken(ctx)
	if err != nil {
		return nil, GetTokenOutput{Error: err.Error()}, nil
	}
	return nil, GetTokenOutput{AccessToken: token}, nil
}

func (s *WechatMCPServer) handleClearToken(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, ResultOutput, error) {
	if err := s.api.ClearToken(ctx); err != nil {
		return nil, ResultOutput{Success: false, Error: err.Error()}, nil
	}
	return nil, ResultOutput{Success: true}, nil
}

// ListFollowersInput is the input for list_followers
type ListFollowersInput struct {
	NextOpenID string `json:"next_openid,omitempty" jsonschema:"openid to continue after, empty for the first page"`
}

// ListFollowersOutput is the output for list_followers
type ListFollowersOutput struct {
	Total      int      `json:"total"`
	OpenIDs    []string `json:"openids"`
	NextOpenID string   `json:"next_openid,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func (s *WechatMCPServer) handleListFollowers(ctx context.Context, req *mcp.CallToolRequest, input ListFollowersInput) (*mcp.CallToolResult, ListFollowersOutput, error) {
	page, err := s.api.ListFollowers(ctx, input.NextOpenID)
	if err != nil {
		return nil, ListFollowersOutput{OpenIDs: []string{}, Error: err.Error()}, nil
	}

	out := ListFollowersOutput{
		Total:      page.Total,
		OpenIDs:    page.OpenIDs,
		NextOpenID: page.NextOpenID,
	}
	if out.OpenIDs == nil {
		out.OpenIDs = []string{}
	}
	return nil, out, nil
}

// GetUserInput is the input for get_user
type GetUserInput struct {
	OpenID string `json:"openid" jsonschema:"openid of the follower"`
}

// GetUserOutput is the output for get_user. Times are RFC 3339.
type GetUserOutput struct {
	OpenID        string `json:"openid,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
	Subscribed    bool   `json:"subscribed"`
	SubscribeTime string `json:"subscribe_time,omitempty"`
	LastSyncTime  string `json:"last_sync_time,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (s *WechatMCPServer) handleGetUser(ctx context.Context, req *mcp.CallToolRequest, input GetUserInput) (*mcp.CallToolResult, GetUserOutput, error) {
	if input.OpenID == "" {
		return nil, GetUserOutput{Error: "openid is required"}, nil
	}

	user, err := s.api.GetUser(ctx, input.OpenID)
	if err != nil {
		return nil, GetUserOutput{Error: err.Error()}, nil
	}

	out := GetUserOutput{
		OpenID:     user.OpenID,
		Nickname:   user.Nickname,
		Subscribed: user.Subscribe,
	}
	if !user.SubscribeTime.IsZero() {
		out.SubscribeTime = user.SubscribeTime.Format(time.RFC3339)
	}
	if !user.LastSyncTime.IsZero() {
		out.LastSyncTime = user.LastSyncTime.Format(time.RFC3339)
	}
	return nil, out, nil
}

// ListTemplatesOutput is the output for list_templates
type ListTemplatesOutput struct {
	Templates []domain.TemplateDescriptor `json:"templates"`
	Error     string                      `json:"error,omitempty"`
}

func (s *WechatMCPServer) handleListTemplates(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, ListTemplatesOutput, error) {
	templates, err := s.api.ListTemplates(ctx)
	if err != nil {
		return nil, ListTemplatesOutput{Templates: []domain.TemplateDescriptor{}, Error: err.Error()}, nil
	}
	if templates == nil {
		templates = []domain.TemplateDescriptor{}
	}
	return nil, ListTemplatesOutput{Templates: templates}, nil
}

// SendTemplateInput is the input for send_template
type SendTemplateInput struct {
	OpenID     string            `json:"openid" jsonschema:"openid of the recipient"`
	TemplateID string            `json:"template_id" jsonschema:"template id from list_templates"`
	URL        string            `json:"url,omitempty" jsonschema:"page opened when the message is tapped"`
	Data       map[string]string `json:"data" jsonschema:"template field values keyed by field name"`
}

// SendTemplateOutput is the output for send_template
type SendTemplateOutput struct {
	Success bool   `json:"success"`
	MsgID   int64  `json:"msgid,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *WechatMCPServer) handleSendTemplate(ctx context.Context, req *mcp.CallToolRequest, input SendTemplateInput) (*mcp.CallToolResult, SendTemplateOutput, error) {
	if input.OpenID == "" || input.TemplateID == "" {
		return nil, SendTemplateOutput{Error: "openid and template_id are required"}, nil
	}

	data := make(map[string]domain.TemplateDataItem, len(input.Data))
	for k, v := range input.Data {
		data[k] = domain.TemplateDataItem{Value: v}
	}

	resp, err := s.api.SendTemplate(ctx, &bridgeapi.TemplateMessage{
		OpenID:     input.OpenID,
		TemplateID: input.TemplateID,
		URL:        input.URL,
		Data:       data,
	})
	if err != nil {
		return nil, SendTemplateOutput{Error: err.Error()}, nil
	}
	if resp.ErrCode != 0 {
		return nil, SendTemplateOutput{Error: (&domain.UpstreamAPIError{Op: "send template", ErrCode: resp.ErrCode, ErrMsg: resp.ErrMsg}).Error()}, nil
	}
	return nil, SendTemplateOutput{Success: true, MsgID: resp.MsgID}, nil
}

// SendTextInput is the input for send_text
type SendTextInput struct {
	OpenID  string `json:"openid" jsonschema:"openid of the recipient"`
	Content string `json:"content" jsonschema:"message text"`
}

func (s *WechatMCPServer) handleSendText(ctx context.Context, req *mcp.CallToolRequest, input SendTextInput) (*mcp.CallToolResult, ResultOutput, error) {
	if input.OpenID == "" || input.Content == "" {
		return nil, ResultOutput{Error: "openid and content are required"}, nil
	}

	if err := s.api.SendText(ctx, input.OpenID, input.Content); err != nil {
		return nil, ResultOutput{Success: false, Error: err.Error()}, nil
	}
	return nil, ResultOutput{Success: true}, nil
}

// SyncFollowersOutput is the output for sync_followers
type SyncFollowersOutput struct {
	Synced int    `json:"synced"`
	Failed int    `json:"failed"`
	Error  string `json:"error,omitempty"`
}

func (s *WechatMCPServer) handleSyncFollowers(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, SyncFollowersOutput, error) {
	result, err := s.api.SyncFollowers(ctx)
	if err != nil {
		return nil, SyncFollowersOutput{Error: err.Error()}, nil
	}
	return nil, SyncFollowersOutput{Synced: result.Synced, Failed: result.Failed}, nil
}

// UserStatsOutput is the output for user_stats
type UserStatsOutput struct {
	Total        int    `json:"total"`
	Subscribed   int    `json:"subscribed"`
	Unsubscribed int    `json:"unsubscribed"`
	Error        string `json:"error,omitempty"`
}

func (s *WechatMCPServer) handleUserStats(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, UserStatsOutput, error) {
	stats, err := s.api.UserStats(ctx)
	if err != nil {
		return nil, UserStatsOutput{Error: err.Error()}, nil
	}
	return nil, UserStatsOutput{
		Total:        stats.Total,
		Subscribed:   stats.Subscribed,
		Unsubscribed: stats.Unsubscribed,
	}, nil
}

// Run starts the MCP server with stdio transport
func (s *WechatMCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// GetServer returns the underlying MCP server
func (s *WechatMCPServer) GetServer() *mcp.Server {
	return s.server
}
