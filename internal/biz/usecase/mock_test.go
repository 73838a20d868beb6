package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/domain"
)

// Mock implementations

type mockWechatRepo struct {
	mu        sync.Mutex
	openIDs   []string
	listErr   error
	users     map[string]*domain.UserInfo
	userErr   map[string]error
	sendFunc  func(req *domain.TemplateMessageRequest) (*domain.TemplateMessageResponse, error)
	sent      []string
	infoCalls []string
}

func (m *mockWechatRepo) GetAccessToken(ctx context.Context) (string, error) {
	return "token", nil
}

func (m *mockWechatRepo) InvalidateAccessToken() {}

func (m *mockWechatRepo) GetFollowers(ctx context.Context, nextOpenID string) (*domain.FollowerPage, error) {
	return &domain.FollowerPage{Total: len(m.openIDs), Count: len(m.openIDs), OpenIDs: m.openIDs}, nil
}

func (m *mockWechatRepo) GetAllFollowerOpenIDs(ctx context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.openIDs, nil
}

func (m *mockWechatRepo) GetUserInfo(ctx context.Context, openID string) (*domain.UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoCalls = append(m.infoCalls, openID)
	if err := m.userErr[openID]; err != nil {
		return nil, err
	}
	if info, ok := m.users[openID]; ok {
		copied := *info
		return &copied, nil
	}
	return &domain.UserInfo{OpenID: openID, Subscribe: 1}, nil
}

func (m *mockWechatRepo) GetTemplateList(ctx context.Context) ([]domain.TemplateDescriptor, error) {
	return nil, nil
}

func (m *mockWechatRepo) SendTemplateMessage(ctx context.Context, req *domain.TemplateMessageRequest) (*domain.TemplateMessageResponse, error) {
	m.mu.Lock()
	m.sent = append(m.sent, req.ToUser)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(req)
	}
	return &domain.TemplateMessageResponse{ErrMsg: "ok", MsgID: 1}, nil
}

func (m *mockWechatRepo) SendTextMessage(ctx context.Context, openID, content string) error {
	return nil
}

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.StoredUser
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.StoredUser)}
}

func (m *mockUserRepo) Get(ctx context.Context, openID string) (*domain.StoredUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[openID], nil
}

func (m *mockUserRepo) Save(ctx context.Context, user *domain.StoredUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.OpenID] = user
	return nil
}

func (m *mockUserRepo) SetSubscribed(ctx context.Context, openID string, subscribed bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[openID]
	if !ok {
		return false, nil
	}
	u.Subscribe = subscribed
	return true, nil
}

func (m *mockUserRepo) List(ctx context.Context, subscribedOnly bool) ([]*domain.StoredUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.StoredUser
	for _, u := range m.users {
		if subscribedOnly && !u.Subscribe {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenID < out[j].OpenID })
	return out, nil
}

func (m *mockUserRepo) Close() error { return nil }
