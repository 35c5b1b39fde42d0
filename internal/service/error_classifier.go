package service

import (
	"encoding/json"
	"errors"
	"strings"
)

// ==================== 错误分类 ====================

// ErrorCategory 面向用户的错误类别
type ErrorCategory string

const (
	CategoryInsufficientPermission ErrorCategory = "insufficient_permission"
	CategorySessionExpired         ErrorCategory = "session_expired"
	CategoryGeneric                ErrorCategory = "generic"
)

const (
	MsgInsufficientPermission = "权限不足 (403)：生成高质量图像 (1K/2K/4K) 需要使用【已启用计费】的付费 API Key。建议尝试使用【Standard】画质，或切换到付费项目的 Key。"
	MsgSessionExpired         = "API Key 会话已过期或未找到。请重新选择。"
	MsgCredentialRequired     = "生成高质量图像 (1K/2K/4K) 需要先选择【已启用计费】的付费 API Key。建议尝试使用【Standard】画质，或选择付费项目的 Key。"
	MsgImageFallback          = "生成图像失败，请重试。"
	MsgContentFallback        = "生成内容时出错。"
)

// Classification 分类结果
type Classification struct {
	Category ErrorCategory
	Message  string
	// InvalidatesCredential 为 true 时调用方需要把凭证状态置为未选择
	InvalidatesCredential bool
}

// apiErrorEnvelope 远端错误体 {"error":{"code":403,"message":"..."}}
type apiErrorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// extractFailure 取出错误文本和结构化错误码
// 文本是 JSON 错误体时使用其中的 code / message，否则使用原始文本
func extractFailure(err error) (string, int) {
	if err == nil {
		return "", 0
	}

	msg := err.Error()
	code := 0

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		code = remoteErr.StatusCode
	}

	var env apiErrorEnvelope
	if json.Unmarshal([]byte(strings.TrimSpace(msg)), &env) == nil && env.Error != nil {
		msg = env.Error.Message
		if env.Error.Code != 0 {
			code = env.Error.Code
		}
	}

	return msg, code
}

// ExtractMessage 取出可展示的错误文本，为空时返回 fallback
func ExtractMessage(err error, fallback string) string {
	msg, _ := extractFailure(err)
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

// Classify 按优先级对图片生成失败进行分类
// 远端没有稳定的错误类型，这里只能做子串 / 错误码匹配
func Classify(err error) Classification {
	msg, code := extractFailure(err)

	switch {
	case code == 403 ||
		strings.Contains(strings.ToLower(msg), "permission") ||
		strings.Contains(msg, "403"):
		return Classification{
			Category:              CategoryInsufficientPermission,
			Message:               MsgInsufficientPermission,
			InvalidatesCredential: true,
		}
	case strings.Contains(msg, "Requested entity was not found"):
		return Classification{
			Category:              CategorySessionExpired,
			Message:               MsgSessionExpired,
			InvalidatesCredential: true,
		}
	case strings.TrimSpace(msg) == "":
		return Classification{Category: CategoryGeneric, Message: MsgImageFallback}
	default:
		return Classification{Category: CategoryGeneric, Message: msg}
	}
}
