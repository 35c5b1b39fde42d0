package dto

import "campaignflow/internal/service"

// SubmitCampaignRequest 提交文案生成
// prompt 为空时不发起生成，因此不做 binding 校验
type SubmitCampaignRequest struct {
	Prompt string `json:"prompt"`
}

// SetQualityRequest 切换画质
type SetQualityRequest struct {
	Quality string `json:"quality" binding:"required"` // Standard | 1K | 2K | 4K
}

// PublishImageResponse 头图发布结果
type PublishImageResponse struct {
	URL      string               `json:"url"`
	Campaign service.CampaignView `json:"campaign"`
}

// SubmitCredentialRequest 提交付费 API Key
type SubmitCredentialRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

// CredentialResponse Key 状态
type CredentialResponse struct {
	Campaign service.CampaignView `json:"campaign"`
	KeyHint  string               `json:"key_hint,omitempty"`
}
