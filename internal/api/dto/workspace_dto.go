package dto

import (
	"campaignflow/internal/service"
	"time"
)

// CreateWorkspaceResponse 创建工作区响应
type CreateWorkspaceResponse struct {
	WorkspaceID string               `json:"workspace_id"`
	Token       string               `json:"token"`
	ExpiresAt   time.Time            `json:"expires_at"`
	Campaign    service.CampaignView `json:"campaign"`
	Chat        service.ChatView     `json:"chat"`
}

// HealthResponse 健康检查
type HealthResponse struct {
	Status     string `json:"status"`
	Workspaces int    `json:"workspaces"`
}
