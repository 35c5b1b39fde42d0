package dto

// SendMessageRequest 发送对话消息
type SendMessageRequest struct {
	Text string `json:"text"`
}
