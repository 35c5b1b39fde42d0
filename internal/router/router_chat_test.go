package router

import (
	"campaignflow/internal/model"
	"campaignflow/internal/service"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatFlow(t *testing.T) {
	env := setupEnv(t, nil)
	token := createWorkspace(t, env)

	w, resp := performRequest(env.engine, http.MethodPost, "/api/workspace/chat/open", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view service.ChatView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.True(t, view.Open)

	w, _ = performRequest(env.engine, http.MethodPost, "/api/workspace/chat/messages", token, map[string]string{"text": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = performRequest(env.engine, http.MethodPost, "/api/workspace/chat/messages", token, map[string]string{"text": "Any tips?"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	require.Len(t, view.Messages, 3)
	assert.Equal(t, model.ChatMessage{Role: model.ChatRoleUser, Text: "Any tips?"}, view.Messages[1])
	assert.Equal(t, "Use urgency in the subject line.", view.Messages[2].Text)

	w, resp = performRequest(env.engine, http.MethodGet, "/api/workspace/chat", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Len(t, view.Messages, 3)
	assert.False(t, view.Typing)
}

func TestCredentialFlow(t *testing.T) {
	env := setupEnv(t, nil)
	token := createWorkspace(t, env)

	// 没有可用的 Key
	w, _ := performRequest(env.engine, http.MethodPost, "/api/workspace/credential/select", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = performRequest(env.engine, http.MethodPut, "/api/workspace/credential", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := performRequest(env.engine, http.MethodPut, "/api/workspace/credential", token, map[string]string{"api_key": "AIzaSyTestKey1234"})
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Campaign service.CampaignView `json:"campaign"`
		KeyHint  string               `json:"key_hint"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.True(t, data.Campaign.HasCredential)
	assert.Equal(t, "AIza****1234", data.KeyHint)
}
