package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Workspace 一个浏览器会话对应的全部状态
type Workspace struct {
	ID        string
	CreatedAt time.Time

	Campaign *CampaignOrchestrator
	Chat     *ChatOrchestrator
	Vault    *KeyVault

	mu         sync.Mutex
	lastActive time.Time
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastActive = now
	w.mu.Unlock()
}

// LastActive 最近一次访问时间
func (w *Workspace) LastActive() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastActive
}

// busy 有远程调用在进行时不回收
func (w *Workspace) busy() bool {
	return w.Campaign.View().Phase.Busy() || w.Chat.View().Typing
}

// WorkspaceService 工作区注册表 (仅内存)
type WorkspaceService struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace

	generator  CampaignGenerator
	chats      ChatSessionFactory
	billingKey string
	ttl        time.Duration

	now func() time.Time
}

// NewWorkspaceService ttl <= 0 时不回收
func NewWorkspaceService(generator CampaignGenerator, chats ChatSessionFactory, billingKey string, ttl time.Duration) *WorkspaceService {
	return &WorkspaceService{
		workspaces: make(map[string]*Workspace),
		generator:  generator,
		chats:      chats,
		billingKey: billingKey,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Create 创建工作区并查询一次 Key 状态
func (s *WorkspaceService) Create(ctx context.Context) *Workspace {
	now := s.now()
	vault := NewKeyVault(s.billingKey)

	ws := &Workspace{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		Campaign:   NewCampaignOrchestrator(s.generator, vault),
		Chat:       NewChatOrchestrator(s.chats),
		Vault:      vault,
		lastActive: now,
	}
	ws.Campaign.RefreshCredential(ctx)

	s.mu.Lock()
	s.workspaces[ws.ID] = ws
	s.mu.Unlock()

	log.Printf("[Workspace] 创建工作区: %s", ws.ID)
	return ws
}

// Get 获取工作区并刷新活跃时间
func (s *WorkspaceService) Get(id string) (*Workspace, error) {
	s.mu.RLock()
	ws, ok := s.workspaces[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrWorkspaceNotFound
	}

	ws.touch(s.now())
	return ws, nil
}

// Count 当前工作区数量
func (s *WorkspaceService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workspaces)
}

// Sweep 回收空闲超过 ttl 的工作区，返回回收数量
func (s *WorkspaceService) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	deadline := s.now().Add(-s.ttl)

	// 先取快照，busy() 会等待编排器的锁，不能在注册表锁内调用
	s.mu.RLock()
	candidates := make([]*Workspace, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		candidates = append(candidates, ws)
	}
	s.mu.RUnlock()

	var idle []*Workspace
	for _, ws := range candidates {
		if ws.LastActive().Before(deadline) && !ws.busy() {
			idle = append(idle, ws)
		}
	}

	// 检查期间被访问过的不回收
	s.mu.Lock()
	var expired []*Workspace
	for _, ws := range idle {
		if s.workspaces[ws.ID] != ws || !ws.LastActive().Before(deadline) {
			continue
		}
		delete(s.workspaces, ws.ID)
		expired = append(expired, ws)
	}
	s.mu.Unlock()

	for _, ws := range expired {
		closeChat(ws)
	}
	return len(expired)
}

func closeChat(ws *Workspace) {
	if err := ws.Chat.Close(); err != nil {
		log.Printf("[Workspace] 关闭对话失败 %s: %v", ws.ID, err)
	}
}

// Shutdown 释放全部对话
func (s *WorkspaceService) Shutdown() {
	s.mu.Lock()
	all := s.workspaces
	s.workspaces = make(map[string]*Workspace)
	s.mu.Unlock()

	for _, ws := range all {
		closeChat(ws)
	}
	log.Printf("[Workspace] 已释放 %d 个工作区", len(all))
}
