package service

import (
	"campaignflow/internal/model"
	"context"
	"log"
	"strings"
	"sync"
)

// ChatSessionFactory 创建远程对话，AIService 实现
type ChatSessionFactory interface {
	CreateChatSession(ctx context.Context) (ChatSession, error)
}

const (
	ChatGreeting   = "Hi! I am your AI marketing assistant. How can I help you with your campaign today?"
	ChatEmptyReply = "I couldn't generate a response."
	ChatApology    = "Sorry, I encountered an error. Please try again."
)

// ChatView 对话面板快照
type ChatView struct {
	Open     bool                `json:"open"`
	Typing   bool                `json:"typing"`
	Messages []model.ChatMessage `json:"messages"`
	CanSend  bool                `json:"can_send"`
}

// ChatOrchestrator 营销顾问对话
// 记录只追加，不截断；同一时刻最多一条消息等待回复
type ChatOrchestrator struct {
	mu       sync.Mutex
	factory  ChatSessionFactory
	session  ChatSession
	open     bool
	typing   bool
	messages []model.ChatMessage
}

// NewChatOrchestrator 记录以问候语开头
func NewChatOrchestrator(factory ChatSessionFactory) *ChatOrchestrator {
	return &ChatOrchestrator{
		factory:  factory,
		messages: []model.ChatMessage{{Role: model.ChatRoleModel, Text: ChatGreeting}},
	}
}

// Open 打开面板，首次打开时创建对话
// 创建失败只记日志，下一次发送时会重新创建
func (o *ChatOrchestrator) Open(ctx context.Context) ChatView {
	o.mu.Lock()
	o.open = true
	if !o.typing {
		if err := o.ensureSessionLocked(ctx); err != nil {
			log.Printf("[Chat] 创建对话失败: %v", err)
		}
	}
	o.mu.Unlock()

	return o.View()
}

// Send 发送一条消息并等待回复
func (o *ChatOrchestrator) Send(ctx context.Context, text string) (ChatView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return o.View(), ErrEmptyMessage
	}

	o.mu.Lock()
	if o.typing {
		o.mu.Unlock()
		return o.View(), ErrChatBusy
	}
	o.messages = append(o.messages, model.ChatMessage{Role: model.ChatRoleUser, Text: text})
	o.typing = true
	err := o.ensureSessionLocked(ctx)
	session := o.session
	o.mu.Unlock()

	var reply string
	if err == nil {
		reply, err = session.SendMessage(ctx, text)
	}

	switch {
	case err != nil:
		log.Printf("[Chat] 发送消息失败: %v", err)
		reply = ChatApology
	case strings.TrimSpace(reply) == "":
		reply = ChatEmptyReply
	}

	o.mu.Lock()
	o.messages = append(o.messages, model.ChatMessage{Role: model.ChatRoleModel, Text: reply})
	o.typing = false
	o.mu.Unlock()

	return o.View(), nil
}

// Transcript 完整对话记录的副本
func (o *ChatOrchestrator) Transcript() []model.ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.ChatMessage(nil), o.messages...)
}

// View 当前面板快照
func (o *ChatOrchestrator) View() ChatView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return ChatView{
		Open:     o.open,
		Typing:   o.typing,
		Messages: append([]model.ChatMessage(nil), o.messages...),
		CanSend:  !o.typing,
	}
}

// Close 释放远程对话，记录保留
func (o *ChatOrchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return nil
	}
	err := o.session.Close()
	o.session = nil
	return err
}

// ensureSessionLocked 调用方需持有 mu
func (o *ChatOrchestrator) ensureSessionLocked(ctx context.Context) error {
	if o.session != nil {
		return nil
	}
	session, err := o.factory.CreateChatSession(ctx)
	if err != nil {
		return err
	}
	o.session = session
	return nil
}
