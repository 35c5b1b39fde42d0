package controller

import (
	"campaignflow/internal/api/dto"
	"campaignflow/internal/model"
	"campaignflow/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ==================== 控制器 ====================

// CampaignController 营销文案控制器
type CampaignController struct {
	workspaces *service.WorkspaceService
	storage    *service.StorageService
}

func NewCampaignController(workspaces *service.WorkspaceService, storage *service.StorageService) *CampaignController {
	return &CampaignController{workspaces: workspaces, storage: storage}
}

// ==================== API 方法 ====================

// Get 当前文案状态
// @Summary 获取文案快照
// @Tags Campaign
// @Success 200 {object} service.CampaignView
// @Router /api/workspace/campaign [get]
func (ctrl *CampaignController) Get(c *gin.Context) {
	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}
	success(c, http.StatusOK, ws.Campaign.View())
}

// Submit 生成文案
// 远程调用失败不视为请求失败，错误信息在快照的 error 字段中
// @Summary 根据提示词生成文案
// @Tags Campaign
// @Accept json
// @Param body body dto.SubmitCampaignRequest true "提示词"
// @Success 200 {object} service.CampaignView
// @Router /api/workspace/campaign [post]
func (ctrl *CampaignController) Submit(c *gin.Context) {
	var req dto.SubmitCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}

	view, err := ws.Campaign.Submit(detachedContext(c), req.Prompt)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, view)
}

// SetQuality 切换画质
// @Router /api/workspace/campaign/quality [put]
func (ctrl *CampaignController) SetQuality(c *gin.Context) {
	var req dto.SetQualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	quality, err := model.ParseImageQuality(req.Quality)
	if err != nil {
		failWithError(c, err)
		return
	}

	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}
	success(c, http.StatusOK, ws.Campaign.SetQuality(quality))
}

// GenerateImage 生成头图
// @Router /api/workspace/campaign/image [post]
func (ctrl *CampaignController) GenerateImage(c *gin.Context) {
	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}

	view, err := ws.Campaign.GenerateImage(detachedContext(c))
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, view)
}

// PublishImage 把当前头图上传到对象存储
// @Router /api/workspace/campaign/image/publish [post]
func (ctrl *CampaignController) PublishImage(c *gin.Context) {
	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}

	img := ws.Campaign.Image()
	if img == nil {
		failWithError(c, service.ErrNoImage)
		return
	}

	url, err := ctrl.storage.PublishDataURI(detachedContext(c), img.DataURI, "headers")
	if err != nil {
		failWithError(c, err)
		return
	}

	success(c, http.StatusOK, dto.PublishImageResponse{
		URL:      url,
		Campaign: ws.Campaign.MarkPublished(img.DataURI, url),
	})
}

// SwitchToStandard 403 后切回 Standard 画质
// @Router /api/workspace/campaign/recover/standard [post]
func (ctrl *CampaignController) SwitchToStandard(c *gin.Context) {
	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}
	success(c, http.StatusOK, ws.Campaign.SwitchToStandard())
}
