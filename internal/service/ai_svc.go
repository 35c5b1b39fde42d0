package service

import (
	"campaignflow/internal/model"
	"campaignflow/pkg/utils"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ==================== 配置 ====================

// AIConfig AI 服务配置
type AIConfig struct {
	ApiKey        string
	BaseURL       string // REST 端点，仅图片生成使用
	TextModel     string
	ChatModel     string
	ImageModel    string // Standard 档位
	ProImageModel string // 1K / 2K / 4K 档位
	ProxyURL      string
	Timeout       time.Duration
}

const (
	DefaultBaseURL       = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTextModel     = "gemini-3-flash-preview"
	DefaultChatModel     = "gemini-3-pro-preview"
	DefaultImageModel    = "gemini-2.5-flash-image"
	DefaultProImageModel = "gemini-3-pro-image-preview"

	// ImageAspectRatio 邮件头图固定 16:9
	ImageAspectRatio = "16:9"

	ChatSystemInstruction = "You are an expert marketing consultant. Help the user refine their email campaigns, offer copywriting tips, and suggest design improvements."
)

// ==================== 服务 ====================

// AIService Gemini 调用封装：文案、图片、对话
// 不持有任何请求间状态，每次调用都是一次独立的远程请求
type AIService struct {
	Config *AIConfig
	rest   *resty.Client
}

// NewAIService 创建 AI 服务
func NewAIService(cfg *AIConfig) *AIService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.ProImageModel == "" {
		cfg.ProImageModel = DefaultProImageModel
	}

	return &AIService{
		Config: cfg,
		rest: utils.NewRESTClient(utils.RESTClientOptions{
			BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
			ProxyURL: cfg.ProxyURL,
			Timeout:  cfg.Timeout,
		}),
	}
}

// ==================== API Key 上下文 ====================

type apiKeyContextKey struct{}

// WithAPIKey 绑定本次调用使用的 API Key (用户选择的付费 Key)
func WithAPIKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, apiKeyContextKey{}, key)
}

// APIKeyFromContext 取出绑定的 Key，没有则返回 fallback
func APIKeyFromContext(ctx context.Context, fallback string) string {
	if key, ok := ctx.Value(apiKeyContextKey{}).(string); ok && key != "" {
		return key
	}
	return fallback
}

// ==================== 文案生成 ====================

// campaignResponse 与 ResponseSchema 对应的响应结构
type campaignResponse struct {
	SubjectLines []string `json:"subjectLines"`
	BodyCopy     string   `json:"bodyCopy"`
	CTA          string   `json:"cta"`
	ImagePrompt  string   `json:"imagePrompt"`
}

// CampaignSchema 文案生成的输出约束，四个字段全部必填
func CampaignSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"subjectLines": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "A list of catchy subject lines",
			},
			"bodyCopy": {
				Type:        genai.TypeString,
				Description: "The main content of the email",
			},
			"cta": {
				Type:        genai.TypeString,
				Description: "Call to action text",
			},
			"imagePrompt": {
				Type:        genai.TypeString,
				Description: "A descriptive prompt for an AI image generator to create a header image for this email",
			},
		},
		Required: []string{"subjectLines", "bodyCopy", "cta", "imagePrompt"},
	}
}

// CampaignPrompt 构建文案生成提示词
func CampaignPrompt(prompt string) string {
	return fmt.Sprintf(`Generate an email marketing campaign based on this prompt: "%s".
Include multiple creative subject lines, a persuasive body copy, a strong CTA, and a detailed image prompt for a visual asset.`, prompt)
}

// GenerateCampaign 根据用户主题生成营销文案
func (s *AIService) GenerateCampaign(ctx context.Context, prompt string) (*model.Campaign, error) {
	client, err := s.newGenaiClient(ctx)
	if err != nil {
		return nil, &RemoteError{Op: "generateCampaign", Message: err.Error(), Err: err}
	}
	defer client.Close()

	gm := client.GenerativeModel(s.Config.TextModel)
	gm.ResponseMIMEType = "application/json"
	gm.ResponseSchema = CampaignSchema()

	resp, err := gm.GenerateContent(ctx, genai.Text(CampaignPrompt(prompt)))
	if err != nil {
		return nil, toRemoteError("generateCampaign", err)
	}

	return ParseCampaign(responseText(resp))
}

// ParseCampaign 解析并校验结构化响应
func ParseCampaign(text string) (*model.Campaign, error) {
	raw := strings.TrimSpace(text)

	// 清洗一下可能存在的 markdown 符号 (```json ... ```)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}

	var out campaignResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &ParseError{Raw: text, Err: err}
	}

	campaign := &model.Campaign{
		SubjectLines: out.SubjectLines,
		BodyCopy:     out.BodyCopy,
		CTA:          out.CTA,
		ImagePrompt:  out.ImagePrompt,
	}
	if err := campaign.Validate(); err != nil {
		return nil, &ParseError{Raw: text, Err: err}
	}

	return campaign, nil
}

// ==================== 图片生成 ====================

type imageRequest struct {
	Contents         []imageContent        `json:"contents"`
	GenerationConfig imageGenerationConfig `json:"generationConfig"`
}

type imageContent struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type imageGenerationConfig struct {
	ResponseModalities []string    `json:"responseModalities"`
	ImageConfig        imageConfig `json:"imageConfig"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
	ImageSize   string `json:"imageSize,omitempty"` // 仅 Pro 模型支持
}

type imageResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text,omitempty"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ImageModelFor Standard 用标准模型，1K/2K/4K 用 Pro 模型
func (s *AIService) ImageModelFor(quality model.ImageQuality) string {
	if quality.IsPro() {
		return s.Config.ProImageModel
	}
	return s.Config.ImageModel
}

// buildImageRequest 构建图片生成请求体
func buildImageRequest(prompt string, quality model.ImageQuality) imageRequest {
	req := imageRequest{
		Contents: []imageContent{
			{Parts: []textPart{{Text: prompt}}},
		},
		GenerationConfig: imageGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig:        imageConfig{AspectRatio: ImageAspectRatio},
		},
	}
	if quality.IsPro() {
		req.GenerationConfig.ImageConfig.ImageSize = string(quality)
	}
	return req
}

// GenerateImage 生成邮件头图，返回 data:image/png;base64 URI
func (s *AIService) GenerateImage(ctx context.Context, prompt string, quality model.ImageQuality) (string, error) {
	modelName := s.ImageModelFor(quality)

	resp, err := s.rest.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", APIKeyFromContext(ctx, s.Config.ApiKey)).
		SetPathParam("model", modelName).
		SetBody(buildImageRequest(prompt, quality)).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", &RemoteError{Op: "generateImage", Message: err.Error(), Err: err}
	}

	body := resp.Body()
	if resp.IsError() {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("Gemini API 错误 [%d]", resp.StatusCode())
		}
		return "", &RemoteError{Op: "generateImage", StatusCode: resp.StatusCode(), Message: msg}
	}

	var out imageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &RemoteError{Op: "generateImage", StatusCode: resp.StatusCode(), Message: fmt.Sprintf("解析响应失败: %v", err), Err: err}
	}

	if out.Error != nil {
		return "", &RemoteError{Op: "generateImage", StatusCode: out.Error.Code, Message: string(body)}
	}

	// 查找图片数据
	for _, candidate := range out.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return utils.PNGDataURI(part.InlineData.Data), nil
			}
		}
	}

	return "", &NoImageProducedError{Model: modelName}
}

// ==================== 对话 ====================

// ChatSession 一个持续的远程对话上下文
type ChatSession interface {
	SendMessage(ctx context.Context, text string) (string, error)
	Close() error
}

type geminiChatSession struct {
	client *genai.Client
	cs     *genai.ChatSession
}

// CreateChatSession 创建预置营销顾问角色的对话
func (s *AIService) CreateChatSession(ctx context.Context) (ChatSession, error) {
	client, err := s.newGenaiClient(ctx)
	if err != nil {
		return nil, &RemoteError{Op: "createChatSession", Message: err.Error(), Err: err}
	}

	gm := client.GenerativeModel(s.Config.ChatModel)
	gm.SystemInstruction = genai.NewUserContent(genai.Text(ChatSystemInstruction))

	return &geminiChatSession{client: client, cs: gm.StartChat()}, nil
}

func (g *geminiChatSession) SendMessage(ctx context.Context, text string) (string, error) {
	resp, err := g.cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return "", toRemoteError("sendMessage", err)
	}
	return responseText(resp), nil
}

func (g *geminiChatSession) Close() error {
	return g.client.Close()
}

// ==================== 工具函数 ====================

// newGenaiClient 按上下文中的 Key 创建 SDK 客户端
func (s *AIService) newGenaiClient(ctx context.Context) (*genai.Client, error) {
	key := APIKeyFromContext(ctx, s.Config.ApiKey)
	if key == "" {
		return nil, fmt.Errorf("Gemini API Key 未配置")
	}

	opts := []option.ClientOption{option.WithAPIKey(key)}

	// 只有配置了代理才替换 HTTP Client，此时 Key 需要自己挂到请求头上
	if s.Config.ProxyURL != "" {
		proxyURL, err := url.Parse(s.Config.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("代理地址无效: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(&http.Client{
			Timeout: s.Config.Timeout,
			Transport: &apiKeyTransport{
				key:  key,
				base: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
			},
		}))
	}

	return genai.NewClient(ctx, opts...)
}

type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("x-goog-api-key", t.key)
	return t.base.RoundTrip(r)
}

// responseText 拼接第一个候选的全部文本片段
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

// toRemoteError 把 SDK 错误转成 RemoteError，尽量保留原始 JSON 错误体
func toRemoteError(op string, err error) *RemoteError {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := strings.TrimSpace(gerr.Body)
		if msg == "" {
			msg = gerr.Message
		}
		return &RemoteError{Op: op, StatusCode: gerr.Code, Message: msg, Err: err}
	}
	return &RemoteError{Op: op, Message: err.Error(), Err: err}
}
