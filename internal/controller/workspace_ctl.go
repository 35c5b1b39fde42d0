package controller

import (
	"campaignflow/internal/api/dto"
	"campaignflow/internal/middleware"
	"campaignflow/internal/service"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ==================== 控制器 ====================

// WorkspaceController 工作区控制器
type WorkspaceController struct {
	workspaces *service.WorkspaceService
	issuer     *middleware.TokenIssuer
}

func NewWorkspaceController(workspaces *service.WorkspaceService, issuer *middleware.TokenIssuer) *WorkspaceController {
	return &WorkspaceController{workspaces: workspaces, issuer: issuer}
}

// Create 创建工作区
// @Summary 创建工作区并签发 Token
// @Tags Workspace
// @Produce json
// @Success 201 {object} dto.CreateWorkspaceResponse
// @Router /api/workspaces [post]
func (ctrl *WorkspaceController) Create(c *gin.Context) {
	ws := ctrl.workspaces.Create(c.Request.Context())

	token, expiresAt, err := ctrl.issuer.Issue(ws.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "签发 Token 失败: "+err.Error())
		return
	}

	success(c, http.StatusCreated, dto.CreateWorkspaceResponse{
		WorkspaceID: ws.ID,
		Token:       token,
		ExpiresAt:   expiresAt,
		Campaign:    ws.Campaign.View(),
		Chat:        ws.Chat.View(),
	})
}

// Healthz 健康检查
func (ctrl *WorkspaceController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:     "ok",
		Workspaces: ctrl.workspaces.Count(),
	})
}

// ==================== 辅助函数 ====================

// currentWorkspace 取出 Token 对应的工作区，失败时已写入响应
func currentWorkspace(c *gin.Context, workspaces *service.WorkspaceService) (*service.Workspace, bool) {
	ws, err := workspaces.Get(middleware.GetWorkspaceID(c))
	if err != nil {
		failWithError(c, err)
		return nil, false
	}
	return ws, true
}

// detachedContext 浏览器断开后远程调用仍然完成并写回工作区
func detachedContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
