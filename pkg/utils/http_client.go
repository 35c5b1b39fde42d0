package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// RESTClientOptions Gemini REST 客户端参数
type RESTClientOptions struct {
	BaseURL  string
	ProxyURL string
	Timeout  time.Duration
	Debug    bool
}

// NewRESTClient 创建一个配置好代理、超时和调试模式的 Resty 客户端
// 它是 Gemini REST 调用的统一入口
func NewRESTClient(opts RESTClientOptions) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second // 4K 图片可能需要 30-60 秒
	}

	client := resty.New().
		SetDebug(opts.Debug).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "CampaignFlow/1.0")

	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}

	// 只要配置了代理地址，就挂载代理
	if opts.ProxyURL != "" {
		client.SetProxy(opts.ProxyURL)
	}

	return client
}
