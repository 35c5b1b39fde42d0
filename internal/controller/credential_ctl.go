package controller

import (
	"campaignflow/internal/api/dto"
	"campaignflow/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CredentialController 付费 Key 控制器
type CredentialController struct {
	workspaces *service.WorkspaceService
}

func NewCredentialController(workspaces *service.WorkspaceService) *CredentialController {
	return &CredentialController{workspaces: workspaces}
}

// Submit 提交用户自己的 Key 并立即选择
// @Router /api/workspace/credential [put]
func (ctrl *CredentialController) Submit(c *gin.Context) {
	var req dto.SubmitCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}

	if err := ws.Vault.Submit(req.APIKey); err != nil {
		failWithError(c, err)
		return
	}
	ctrl.selectKey(c, ws)
}

// Select 重新选择 Key (用户提交的优先，其次是服务端计费 Key)
// @Router /api/workspace/credential/select [post]
func (ctrl *CredentialController) Select(c *gin.Context) {
	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}
	ctrl.selectKey(c, ws)
}

func (ctrl *CredentialController) selectKey(c *gin.Context, ws *service.Workspace) {
	view, err := ws.Campaign.SelectCredential(c.Request.Context())
	if err != nil {
		failWithError(c, err)
		return
	}

	success(c, http.StatusOK, dto.CredentialResponse{
		Campaign: view,
		KeyHint:  ws.Vault.SelectedHint(),
	})
}
