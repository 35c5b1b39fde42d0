package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config 服务配置
type Config struct {
	Server    ServerConfig
	Gemini    GeminiConfig
	JWT       JWTConfig
	Workspace WorkspaceConfig
	Storage   StorageConfig
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Port    string
	GinMode string
}

// GeminiConfig Gemini 调用
type GeminiConfig struct {
	APIKey        string // 服务端默认 Key，文案 / 对话 / Standard 图片使用
	BillingAPIKey string // 已启用计费的 Key，可选
	BaseURL       string
	TextModel     string
	ChatModel     string
	ImageModel    string
	ProImageModel string
	ProxyURL      string
	Timeout       time.Duration
}

// JWTConfig 工作区 Token
type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// WorkspaceConfig 工作区回收
type WorkspaceConfig struct {
	TTL       time.Duration
	SweepSpec string
}

// StorageConfig 头图发布
type StorageConfig struct {
	Provider  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	CDNDomain string
	Endpoint  string
	BasePath  string
}

// Load 读取 .env (可选) 和环境变量
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	duration := func(key, def string) time.Duration {
		raw := getEnv(key, def)
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s 格式错误: %q", key, raw))
		}
		return d
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnv("SERVER_PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "release"),
		},
		Gemini: GeminiConfig{
			APIKey:        os.Getenv("GEMINI_API_KEY"),
			BillingAPIKey: os.Getenv("GEMINI_BILLING_API_KEY"),
			BaseURL:       os.Getenv("GEMINI_BASE_URL"),
			TextModel:     os.Getenv("GEMINI_TEXT_MODEL"),
			ChatModel:     os.Getenv("GEMINI_CHAT_MODEL"),
			ImageModel:    os.Getenv("GEMINI_IMAGE_MODEL"),
			ProImageModel: os.Getenv("GEMINI_PRO_IMAGE_MODEL"),
			ProxyURL:      os.Getenv("GEMINI_PROXY_URL"),
			Timeout:       duration("GEMINI_TIMEOUT", "120s"),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", "campaignflow-secret-key-change-in-production"),
			TokenTTL: duration("JWT_TOKEN_TTL", "24h"),
		},
		Workspace: WorkspaceConfig{
			TTL:       duration("WORKSPACE_TTL", "2h"),
			SweepSpec: getEnv("WORKSPACE_SWEEP_SPEC", "0 */5 * * * *"),
		},
		Storage: StorageConfig{
			Provider:  os.Getenv("STORAGE_PROVIDER"),
			Bucket:    os.Getenv("AWS_BUCKET"),
			Region:    getEnv("AWS_REGION", "us-east-1"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			CDNDomain: os.Getenv("AWS_CDN_DOMAIN"),
			Endpoint:  os.Getenv("STORAGE_ENDPOINT"),
			BasePath:  getEnv("STORAGE_BASE_PATH", "campaignflow"),
		},
	}

	if cfg.Gemini.APIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY 未配置"))
	}
	if cfg.Storage.Provider == "s3" && cfg.Storage.Bucket == "" {
		errs = append(errs, errors.New("STORAGE_PROVIDER=s3 时必须配置 AWS_BUCKET"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("配置校验失败: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
