package service

import (
	"errors"
	"fmt"
)

// ==================== 远程调用错误 ====================

// RemoteError 远程调用失败 (网络 / 鉴权 / 配额)
// Message 保留远端返回的原始内容，可能是 {"error":{...}} 形式的 JSON
type RemoteError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s 调用失败", e.Op)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// ParseError 结构化响应无法解析或缺少必填字段
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Failed to parse campaign content from AI response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NoImageProducedError 响应中没有图片数据
type NoImageProducedError struct {
	Model string
}

func (e *NoImageProducedError) Error() string {
	return "No image was generated."
}

// ==================== 业务错误 ====================

var (
	ErrEmptyPrompt           = errors.New("提示词不能为空")
	ErrGenerationInProgress  = errors.New("已有生成任务正在进行")
	ErrNoCampaign            = errors.New("尚未生成文案，无法生成图片")
	ErrEmptyMessage          = errors.New("消息不能为空")
	ErrChatBusy              = errors.New("上一条消息尚未回复")
	ErrNoCredentialAvailable = errors.New("没有可用的付费 API Key")
	ErrStorageDisabled       = errors.New("存储服务未配置")
	ErrNoImage               = errors.New("尚未生成图片")
	ErrWorkspaceNotFound     = errors.New("工作区不存在或已过期")
	ErrEmptyAPIKey           = errors.New("API Key 不能为空")
)
