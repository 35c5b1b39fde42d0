package controller

import (
	"campaignflow/internal/model"
	"campaignflow/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ==================== 统一响应 ====================

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
	})
}

// failWithError 按业务错误映射 HTTP 状态码
func failWithError(c *gin.Context, err error) {
	fail(c, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyPrompt),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrNoCampaign),
		errors.Is(err, service.ErrEmptyAPIKey),
		errors.Is(err, model.ErrUnknownQuality):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrWorkspaceNotFound),
		errors.Is(err, service.ErrNoImage):
		return http.StatusNotFound
	case errors.Is(err, service.ErrGenerationInProgress),
		errors.Is(err, service.ErrChatBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrStorageDisabled),
		errors.Is(err, service.ErrNoCredentialAvailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
