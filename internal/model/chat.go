package model

// ChatRole 对话角色
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage 对话中的一条消息
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
