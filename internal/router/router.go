package router

import (
	"campaignflow/internal/controller"
	"campaignflow/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Workspace  *controller.WorkspaceController
	Campaign   *controller.CampaignController
	Credential *controller.CredentialController
	Chat       *controller.ChatController
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctls *Controllers, issuer *middleware.TokenIssuer) {
	// GET /healthz
	r.GET("/healthz", ctls.Workspace.Healthz)

	api := r.Group("/api")
	{
		// POST /api/workspaces 创建工作区，返回 Bearer Token
		api.POST("/workspaces", ctls.Workspace.Create)

		// 以下接口都需要工作区 Token
		ws := api.Group("/workspace", middleware.WorkspaceAuth(issuer))
		{
			campaign := ws.Group("/campaign")
			{
				campaign.GET("", ctls.Campaign.Get)
				campaign.POST("", ctls.Campaign.Submit)
				campaign.PUT("/quality", ctls.Campaign.SetQuality)
				campaign.POST("/image", ctls.Campaign.GenerateImage)
				campaign.POST("/image/publish", ctls.Campaign.PublishImage)
				campaign.POST("/recover/standard", ctls.Campaign.SwitchToStandard)
			}

			credential := ws.Group("/credential")
			{
				credential.PUT("", ctls.Credential.Submit)
				credential.POST("/select", ctls.Credential.Select)
			}

			chat := ws.Group("/chat")
			{
				chat.GET("", ctls.Chat.Get)
				chat.POST("/open", ctls.Chat.Open)
				chat.POST("/messages", ctls.Chat.Send)
			}
		}
	}
}
