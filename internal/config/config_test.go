package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "server-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "server-key", cfg.Gemini.APIKey)
	assert.Equal(t, 120*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.Workspace.TTL)
	assert.Equal(t, "0 */5 * * * *", cfg.Workspace.SweepSpec)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TokenTTL)
	assert.Equal(t, "campaignflow", cfg.Storage.BasePath)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "server-key")
	t.Setenv("GEMINI_BILLING_API_KEY", "billing-key")
	t.Setenv("GEMINI_TIMEOUT", "30s")
	t.Setenv("WORKSPACE_TTL", "15m")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "billing-key", cfg.Gemini.BillingAPIKey)
	assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Workspace.TTL)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{
			name:    "缺少 API Key",
			env:     map[string]string{"GEMINI_API_KEY": ""},
			wantMsg: "GEMINI_API_KEY",
		},
		{
			name:    "超时格式错误",
			env:     map[string]string{"GEMINI_API_KEY": "k", "GEMINI_TIMEOUT": "soon"},
			wantMsg: "GEMINI_TIMEOUT",
		},
		{
			name:    "S3 缺少 bucket",
			env:     map[string]string{"GEMINI_API_KEY": "k", "STORAGE_PROVIDER": "s3", "AWS_BUCKET": ""},
			wantMsg: "AWS_BUCKET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
