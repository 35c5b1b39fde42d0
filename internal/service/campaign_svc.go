package service

import (
	"campaignflow/internal/model"
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// CampaignGenerator 文案 / 图片生成能力，AIService 实现
type CampaignGenerator interface {
	GenerateCampaign(ctx context.Context, prompt string) (*model.Campaign, error)
	GenerateImage(ctx context.Context, prompt string, quality model.ImageQuality) (string, error)
}

// RecoveryAction 错误提示旁可执行的恢复操作
type RecoveryAction string

const (
	RecoverySwitchToStandard RecoveryAction = "switch_to_standard"
	RecoverySelectCredential RecoveryAction = "select_credential"
)

// CampaignView 某一时刻的界面快照
type CampaignView struct {
	Prompt        string                     `json:"prompt"`
	Phase         model.GenerationPhase      `json:"phase"`
	Campaign      *model.Campaign            `json:"campaign,omitempty"`
	Image         *model.GeneratedImageAsset `json:"image,omitempty"`
	Error         string                     `json:"error,omitempty"`
	ErrorCategory ErrorCategory              `json:"error_category,omitempty"`
	Quality       model.ImageQuality         `json:"quality"`
	HasCredential bool                       `json:"has_credential"`

	CanSubmit        bool             `json:"can_submit"`
	CanGenerateImage bool             `json:"can_generate_image"`
	CanSwitchKey     bool             `json:"can_switch_key"`
	Recovery         []RecoveryAction `json:"recovery,omitempty"`
}

// CampaignOrchestrator 营销文案生成流程
// 文案和图片各自最多一个调用在途：远程调用期间不持有锁，同类重叠请求直接拒绝
// 文案生成中不接受图片请求；图片生成中允许重新提交文案，旧图片结果随之作废
type CampaignOrchestrator struct {
	mu    sync.Mutex
	ai    CampaignGenerator
	creds CredentialSelector

	prompt        string
	phase         model.GenerationPhase
	contentBusy   bool
	imageBusy     bool
	revision      uint64
	campaign      *model.Campaign
	image         *model.GeneratedImageAsset
	errMsg        string
	errCategory   ErrorCategory
	quality       model.ImageQuality
	hasCredential bool

	now func() time.Time
}

// NewCampaignOrchestrator 创建编排器
func NewCampaignOrchestrator(ai CampaignGenerator, creds CredentialSelector) *CampaignOrchestrator {
	return &CampaignOrchestrator{
		ai:      ai,
		creds:   creds,
		phase:   model.PhaseIdle,
		quality: model.QualityStandard,
		now:     time.Now,
	}
}

// ==================== 凭证 ====================

// RefreshCredential 查询当前是否已选择 Key (工作区创建时调用一次)
func (o *CampaignOrchestrator) RefreshCredential(ctx context.Context) {
	selected, err := o.creds.HasSelectedKey(ctx)
	if err != nil {
		log.Printf("[Campaign] 查询 Key 状态失败: %v", err)
		return
	}

	o.mu.Lock()
	o.hasCredential = selected
	o.mu.Unlock()
}

// SelectCredential 手动选择 Key，成功后清除错误提示
func (o *CampaignOrchestrator) SelectCredential(ctx context.Context) (CampaignView, error) {
	if err := o.creds.OpenSelectKey(ctx); err != nil {
		log.Printf("[Campaign] 选择 Key 失败: %v", err)
		return o.View(), err
	}

	selected := o.verifyCredential(ctx)

	o.mu.Lock()
	o.hasCredential = selected
	if !o.phase.Busy() {
		o.clearErrorLocked()
	}
	o.mu.Unlock()

	return o.View(), nil
}

// ensureCredential 高画质且尚未选择 Key 时执行一次选择，返回是否可以发起调用
// Standard 不需要 Key；选择之后仍未选中则不能发起高画质调用
func (o *CampaignOrchestrator) ensureCredential(ctx context.Context, quality model.ImageQuality) bool {
	if !quality.IsPro() {
		return true
	}
	o.mu.Lock()
	selected := o.hasCredential
	o.mu.Unlock()
	if selected {
		return true
	}

	if err := o.creds.OpenSelectKey(ctx); err != nil {
		log.Printf("[Campaign] 选择 Key 失败: %v", err)
	}
	selected = o.verifyCredential(ctx)

	o.mu.Lock()
	o.hasCredential = selected
	o.mu.Unlock()
	return selected
}

// verifyCredential 选择之后重新查询，不假定选择一定成功
func (o *CampaignOrchestrator) verifyCredential(ctx context.Context) bool {
	selected, err := o.creds.HasSelectedKey(ctx)
	if err != nil {
		log.Printf("[Campaign] 查询 Key 状态失败: %v", err)
		return false
	}
	return selected
}

// ==================== 文案 ====================

// Submit 根据提示词生成文案
// 空提示词不发起调用，状态不变
func (o *CampaignOrchestrator) Submit(ctx context.Context, prompt string) (CampaignView, error) {
	if strings.TrimSpace(prompt) == "" {
		return o.View(), ErrEmptyPrompt
	}

	o.mu.Lock()
	if o.contentBusy {
		o.mu.Unlock()
		return o.View(), ErrGenerationInProgress
	}
	o.revision++
	o.prompt = prompt
	o.campaign = nil
	o.image = nil
	o.errMsg = ""
	o.errCategory = ""
	o.contentBusy = true
	o.settleLocked()
	o.mu.Unlock()

	campaign, err := o.ai.GenerateCampaign(ctx, prompt)

	o.mu.Lock()
	o.contentBusy = false
	if err != nil {
		log.Printf("[Campaign] 文案生成失败: %v", err)
		o.errMsg = ExtractMessage(err, MsgContentFallback)
		o.errCategory = CategoryGeneric
	} else {
		o.campaign = campaign
	}
	o.settleLocked()
	o.mu.Unlock()

	return o.View(), nil
}

// ==================== 图片 ====================

// GenerateImage 按当前画质生成头图
func (o *CampaignOrchestrator) GenerateImage(ctx context.Context) (CampaignView, error) {
	o.mu.Lock()
	if o.contentBusy || o.imageBusy {
		o.mu.Unlock()
		return o.View(), ErrGenerationInProgress
	}
	if o.campaign == nil || strings.TrimSpace(o.campaign.ImagePrompt) == "" {
		o.mu.Unlock()
		return o.View(), ErrNoCampaign
	}
	imagePrompt := o.campaign.ImagePrompt
	quality := o.quality
	revision := o.revision
	// 先占住 phase，选择 Key 期间也不接受新的图片请求
	o.imageBusy = true
	o.errMsg = ""
	o.errCategory = ""
	o.settleLocked()
	o.mu.Unlock()

	if !o.ensureCredential(ctx, quality) {
		log.Printf("[Campaign] 未选择付费 Key，不发起 %s 图片调用", quality)
		o.finishImage(revision, func() {
			o.errMsg = MsgCredentialRequired
			o.errCategory = CategoryInsufficientPermission
		})
		return o.View(), nil
	}

	uri, err := o.ai.GenerateImage(o.creds.Bind(ctx), imagePrompt, quality)

	if err != nil {
		c := Classify(err)
		log.Printf("[Campaign] 图片生成失败 (%s, %s): %v", quality, c.Category, err)
		// Key 作废与结果是否过期无关
		if c.InvalidatesCredential {
			o.creds.Revoke()
			o.mu.Lock()
			o.hasCredential = false
			o.mu.Unlock()
		}

		o.finishImage(revision, func() {
			o.errMsg = c.Message
			o.errCategory = c.Category
		})
		return o.View(), nil
	}

	o.finishImage(revision, func() {
		o.image = &model.GeneratedImageAsset{
			DataURI:   uri,
			Prompt:    imagePrompt,
			Quality:   quality,
			CreatedAt: o.now(),
		}
	})
	return o.View(), nil
}

// finishImage 结束图片调用；期间文案已重新提交时丢弃结果
func (o *CampaignOrchestrator) finishImage(revision uint64, apply func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.imageBusy = false
	if o.revision == revision {
		apply()
	} else {
		log.Printf("[Campaign] 文案已变更，丢弃图片结果")
	}
	o.settleLocked()
}

// SetQuality 切换画质，生成过程中也允许，下一次生成时生效
func (o *CampaignOrchestrator) SetQuality(q model.ImageQuality) CampaignView {
	o.mu.Lock()
	o.quality = q
	o.mu.Unlock()
	return o.View()
}

// SwitchToStandard 403 之后切回 Standard，只清除错误，不自动重试
func (o *CampaignOrchestrator) SwitchToStandard() CampaignView {
	o.mu.Lock()
	o.quality = model.QualityStandard
	if !o.phase.Busy() {
		o.clearErrorLocked()
	}
	o.mu.Unlock()
	return o.View()
}

// Image 当前头图的副本，没有时返回 nil
func (o *CampaignOrchestrator) Image() *model.GeneratedImageAsset {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.image == nil {
		return nil
	}
	img := *o.image
	return &img
}

// MarkPublished 记录头图的公开地址
// 发布期间图片可能已被替换，只更新同一张图
func (o *CampaignOrchestrator) MarkPublished(dataURI, url string) CampaignView {
	o.mu.Lock()
	if o.image != nil && o.image.DataURI == dataURI {
		o.image.PublishedURL = url
	}
	o.mu.Unlock()
	return o.View()
}

// ==================== 快照 ====================

// View 当前状态快照
func (o *CampaignOrchestrator) View() CampaignView {
	o.mu.Lock()
	defer o.mu.Unlock()

	v := CampaignView{
		Prompt:        o.prompt,
		Phase:         o.phase,
		Error:         o.errMsg,
		ErrorCategory: o.errCategory,
		Quality:       o.quality,
		HasCredential: o.hasCredential,
	}
	if o.campaign != nil {
		c := *o.campaign
		c.SubjectLines = append([]string(nil), o.campaign.SubjectLines...)
		v.Campaign = &c
	}
	if o.image != nil {
		img := *o.image
		v.Image = &img
	}

	v.CanSubmit = !o.contentBusy
	v.CanGenerateImage = !o.contentBusy && !o.imageBusy && o.campaign != nil && o.campaign.ImagePrompt != ""
	v.CanSwitchKey = o.quality.IsPro()

	switch o.errCategory {
	case CategoryInsufficientPermission:
		v.Recovery = []RecoveryAction{RecoverySwitchToStandard, RecoverySelectCredential}
	case CategorySessionExpired:
		v.Recovery = []RecoveryAction{RecoverySelectCredential}
	}

	return v
}

func (o *CampaignOrchestrator) clearErrorLocked() {
	o.errMsg = ""
	o.errCategory = ""
	o.settleLocked()
}

// settleLocked 根据在途调用和错误推导 phase，文案优先
func (o *CampaignOrchestrator) settleLocked() {
	switch {
	case o.contentBusy:
		o.phase = model.PhaseGeneratingContent
	case o.imageBusy:
		o.phase = model.PhaseGeneratingImage
	case o.errMsg != "":
		o.phase = model.PhaseError
	default:
		o.phase = model.PhaseIdle
	}
}
