package model

import (
	"errors"
	"strings"
	"time"
)

// ==================== 营销活动 ====================

// Campaign 一次内容生成得到的完整营销文案
// 生成成功后整体替换，不做局部修改
type Campaign struct {
	SubjectLines []string `json:"subjectLines"`
	BodyCopy     string   `json:"bodyCopy"`
	CTA          string   `json:"cta"`
	ImagePrompt  string   `json:"imagePrompt"`
}

// Validate 校验四个必填字段
func (c *Campaign) Validate() error {
	var errs []error

	if len(c.SubjectLines) == 0 {
		errs = append(errs, errors.New("subjectLines 不能为空"))
	}
	for _, line := range c.SubjectLines {
		if strings.TrimSpace(line) == "" {
			errs = append(errs, errors.New("subjectLines 包含空标题"))
			break
		}
	}
	if strings.TrimSpace(c.BodyCopy) == "" {
		errs = append(errs, errors.New("bodyCopy 不能为空"))
	}
	if strings.TrimSpace(c.CTA) == "" {
		errs = append(errs, errors.New("cta 不能为空"))
	}
	if strings.TrimSpace(c.ImagePrompt) == "" {
		errs = append(errs, errors.New("imagePrompt 不能为空"))
	}

	return errors.Join(errs...)
}

// ==================== 生成阶段 ====================

// GenerationPhase 当前生成阶段，同一时刻只有一个
type GenerationPhase string

const (
	PhaseIdle              GenerationPhase = "idle"
	PhaseGeneratingContent GenerationPhase = "generating_content"
	PhaseGeneratingImage   GenerationPhase = "generating_image"
	PhaseError             GenerationPhase = "error"
)

// Busy 是否有远程调用正在进行
func (p GenerationPhase) Busy() bool {
	return p == PhaseGeneratingContent || p == PhaseGeneratingImage
}

// ==================== 图片质量 ====================

// ImageQuality 图片质量档位
type ImageQuality string

const (
	QualityStandard ImageQuality = "Standard"
	Quality1K       ImageQuality = "1K"
	Quality2K       ImageQuality = "2K"
	Quality4K       ImageQuality = "4K"
)

// AllImageQualities 按展示顺序排列的全部档位
var AllImageQualities = []ImageQuality{QualityStandard, Quality1K, Quality2K, Quality4K}

// ErrUnknownQuality 未知的质量档位
var ErrUnknownQuality = errors.New("未知的图片质量档位")

// ParseImageQuality 解析质量档位 (大小写不敏感)
func ParseImageQuality(s string) (ImageQuality, error) {
	for _, q := range AllImageQualities {
		if strings.EqualFold(strings.TrimSpace(s), string(q)) {
			return q, nil
		}
	}
	return "", ErrUnknownQuality
}

// IsPro 非 Standard 档位需要高阶模型和已启用计费的 Key
func (q ImageQuality) IsPro() bool {
	return q != QualityStandard
}

// ==================== 生成的图片 ====================

// GeneratedImageAsset 生成的头图
type GeneratedImageAsset struct {
	DataURI      string       `json:"data_uri"`
	Prompt       string       `json:"prompt"`
	Quality      ImageQuality `json:"quality"`
	PublishedURL string       `json:"published_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
