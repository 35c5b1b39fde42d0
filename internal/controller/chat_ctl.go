package controller

import (
	"campaignflow/internal/api/dto"
	"campaignflow/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChatController 营销顾问对话控制器
type ChatController struct {
	workspaces *service.WorkspaceService
}

func NewChatController(workspaces *service.WorkspaceService) *ChatController {
	return &ChatController{workspaces: workspaces}
}

// Get 对话快照
// @Router /api/workspace/chat [get]
func (ctrl *ChatController) Get(c *gin.Context) {
	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}
	success(c, http.StatusOK, ws.Chat.View())
}

// Open 打开对话面板
// @Router /api/workspace/chat/open [post]
func (ctrl *ChatController) Open(c *gin.Context) {
	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}
	success(c, http.StatusOK, ws.Chat.Open(detachedContext(c)))
}

// Send 发送消息，回复失败时记录中追加致歉消息
// @Router /api/workspace/chat/messages [post]
func (ctrl *ChatController) Send(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	ws, ok := currentWorkspace(c, ctrl.workspaces)
	if !ok {
		return
	}

	view, err := ws.Chat.Send(detachedContext(c), req.Text)
	if err != nil {
		failWithError(c, err)
		return
	}
	success(c, http.StatusOK, view)
}
