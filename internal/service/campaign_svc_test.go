package service

import (
	"campaignflow/internal/model"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator 可控的生成器
type fakeGenerator struct {
	mu sync.Mutex

	campaign    *model.Campaign
	campaignErr error
	image       string
	imageErr    error

	contentCalls int
	imageCalls   int
	lastQuality  model.ImageQuality
	lastKey      string

	// block 非空时 GenerateCampaign 会阻塞直到关闭
	block   chan struct{}
	entered chan struct{}

	// imageBlock 非空时 GenerateImage 会阻塞直到关闭
	imageBlock   chan struct{}
	imageEntered chan struct{}
}

func (f *fakeGenerator) GenerateCampaign(ctx context.Context, prompt string) (*model.Campaign, error) {
	f.mu.Lock()
	f.contentCalls++
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return f.campaign, f.campaignErr
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt string, quality model.ImageQuality) (string, error) {
	f.mu.Lock()
	f.imageCalls++
	f.lastQuality = quality
	f.lastKey = APIKeyFromContext(ctx, "")
	block, entered := f.imageBlock, f.imageEntered
	image, imageErr := f.image, f.imageErr
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return image, imageErr
}

// fakeSelector 记录选择次数
type fakeSelector struct {
	selected  bool
	openErr   error
	openCalls int
	revoked   int
}

func (s *fakeSelector) HasSelectedKey(ctx context.Context) (bool, error) { return s.selected, nil }

func (s *fakeSelector) OpenSelectKey(ctx context.Context) error {
	s.openCalls++
	if s.openErr != nil {
		return s.openErr
	}
	s.selected = true
	return nil
}

func (s *fakeSelector) Bind(ctx context.Context) context.Context {
	if s.selected {
		return WithAPIKey(ctx, "paid-key")
	}
	return ctx
}

func (s *fakeSelector) Revoke() {
	s.revoked++
	s.selected = false
}

func sampleCampaign() *model.Campaign {
	return &model.Campaign{
		SubjectLines: []string{"Step into summer", "Green soles, bright days"},
		BodyCopy:     "Our eco sneakers are on sale.",
		CTA:          "Shop the sale",
		ImagePrompt:  "Sneakers on fresh grass at sunrise",
	}
}

func readyOrchestrator(t *testing.T, gen *fakeGenerator, sel *fakeSelector) *CampaignOrchestrator {
	t.Helper()
	gen.campaign = sampleCampaign()
	o := NewCampaignOrchestrator(gen, sel)
	_, err := o.Submit(context.Background(), "summer sneakers")
	require.NoError(t, err)
	require.Equal(t, model.PhaseIdle, o.View().Phase)
	return o
}

func TestCampaignOrchestrator_Submit(t *testing.T) {
	t.Run("空提示词不发起调用", func(t *testing.T) {
		gen := &fakeGenerator{}
		o := NewCampaignOrchestrator(gen, &fakeSelector{})

		view, err := o.Submit(context.Background(), "   ")
		assert.ErrorIs(t, err, ErrEmptyPrompt)
		assert.Equal(t, model.PhaseIdle, view.Phase)
		assert.Equal(t, 0, gen.contentCalls)
	})

	t.Run("成功后保存文案", func(t *testing.T) {
		gen := &fakeGenerator{campaign: sampleCampaign()}
		o := NewCampaignOrchestrator(gen, &fakeSelector{})

		view, err := o.Submit(context.Background(), "summer sneakers")
		require.NoError(t, err)
		assert.Equal(t, model.PhaseIdle, view.Phase)
		require.NotNil(t, view.Campaign)
		assert.Equal(t, "Shop the sale", view.Campaign.CTA)
		assert.True(t, view.CanGenerateImage)
		assert.Empty(t, view.Error)
	})

	t.Run("JSON 错误体取 message", func(t *testing.T) {
		gen := &fakeGenerator{campaignErr: &RemoteError{Message: `{"error":{"code":429,"message":"quota exceeded"}}`}}
		o := NewCampaignOrchestrator(gen, &fakeSelector{})

		view, err := o.Submit(context.Background(), "summer sneakers")
		require.NoError(t, err)
		assert.Equal(t, model.PhaseError, view.Phase)
		assert.Equal(t, "quota exceeded", view.Error)
		assert.Nil(t, view.Campaign)
		assert.Empty(t, view.Recovery)
	})

	t.Run("空错误使用默认提示", func(t *testing.T) {
		gen := &fakeGenerator{campaignErr: errors.New("")}
		o := NewCampaignOrchestrator(gen, &fakeSelector{})

		view, _ := o.Submit(context.Background(), "summer sneakers")
		assert.Equal(t, MsgContentFallback, view.Error)
	})

	t.Run("重新生成时清空旧结果", func(t *testing.T) {
		gen := &fakeGenerator{image: "data:image/png;base64,AAAA"}
		o := readyOrchestrator(t, gen, &fakeSelector{})
		_, err := o.GenerateImage(context.Background())
		require.NoError(t, err)
		require.NotNil(t, o.View().Image)

		gen.block = make(chan struct{})
		gen.entered = make(chan struct{})
		done := make(chan CampaignView)
		go func() {
			v, _ := o.Submit(context.Background(), "winter boots")
			done <- v
		}()

		<-gen.entered
		mid := o.View()
		assert.Equal(t, model.PhaseGeneratingContent, mid.Phase)
		assert.Nil(t, mid.Campaign)
		assert.Nil(t, mid.Image)
		assert.Empty(t, mid.Error)
		assert.False(t, mid.CanSubmit)

		close(gen.block)
		final := <-done
		assert.Equal(t, model.PhaseIdle, final.Phase)
		assert.Equal(t, "winter boots", final.Prompt)
	})

	t.Run("生成中拒绝重复提交", func(t *testing.T) {
		gen := &fakeGenerator{
			campaign: sampleCampaign(),
			block:    make(chan struct{}),
			entered:  make(chan struct{}),
		}
		o := NewCampaignOrchestrator(gen, &fakeSelector{})

		done := make(chan struct{})
		go func() {
			_, _ = o.Submit(context.Background(), "first")
			close(done)
		}()
		<-gen.entered

		_, err := o.Submit(context.Background(), "second")
		assert.ErrorIs(t, err, ErrGenerationInProgress)
		_, err = o.GenerateImage(context.Background())
		assert.ErrorIs(t, err, ErrGenerationInProgress)

		close(gen.block)
		<-done
		assert.Equal(t, 1, gen.contentCalls)
	})
}

func TestCampaignOrchestrator_GenerateImage(t *testing.T) {
	t.Run("没有文案时拒绝", func(t *testing.T) {
		gen := &fakeGenerator{}
		o := NewCampaignOrchestrator(gen, &fakeSelector{})

		_, err := o.GenerateImage(context.Background())
		assert.ErrorIs(t, err, ErrNoCampaign)
		assert.Equal(t, 0, gen.imageCalls)
	})

	t.Run("Standard 不触发选择 Key", func(t *testing.T) {
		gen := &fakeGenerator{image: "data:image/png;base64,AAAA"}
		sel := &fakeSelector{}
		o := readyOrchestrator(t, gen, sel)

		view, err := o.GenerateImage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, sel.openCalls)
		assert.Equal(t, model.QualityStandard, gen.lastQuality)
		assert.Empty(t, gen.lastKey)
		require.NotNil(t, view.Image)
		assert.Equal(t, "data:image/png;base64,AAAA", view.Image.DataURI)
		assert.Equal(t, model.PhaseIdle, view.Phase)
	})

	t.Run("高画质未选择 Key 时选择一次", func(t *testing.T) {
		gen := &fakeGenerator{image: "data:image/png;base64,AAAA"}
		sel := &fakeSelector{}
		o := readyOrchestrator(t, gen, sel)
		o.SetQuality(model.Quality4K)

		view, err := o.GenerateImage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sel.openCalls)
		assert.True(t, view.HasCredential)
		assert.Equal(t, "paid-key", gen.lastKey)
		assert.Equal(t, model.Quality4K, view.Image.Quality)

		// 已选择后不再重复选择
		_, err = o.GenerateImage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sel.openCalls)
	})

	t.Run("选择失败时不发起高画质调用", func(t *testing.T) {
		gen := &fakeGenerator{image: "data:image/png;base64,AAAA"}
		sel := &fakeSelector{openErr: ErrNoCredentialAvailable}
		o := readyOrchestrator(t, gen, sel)
		o.SetQuality(model.Quality2K)

		view, err := o.GenerateImage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sel.openCalls)
		assert.Equal(t, 0, gen.imageCalls)
		assert.False(t, view.HasCredential)
		assert.Equal(t, model.PhaseError, view.Phase)
		assert.Equal(t, MsgCredentialRequired, view.Error)
		assert.Equal(t, []RecoveryAction{RecoverySwitchToStandard, RecoverySelectCredential}, view.Recovery)
		assert.Nil(t, view.Image)
		assert.True(t, view.CanGenerateImage)

		// 切回 Standard 后可以直接生成，不需要 Key
		o.SwitchToStandard()
		view, err = o.GenerateImage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, gen.imageCalls)
		assert.Equal(t, model.QualityStandard, gen.lastQuality)
		assert.Equal(t, model.PhaseIdle, view.Phase)
	})

	t.Run("没有可用 Key 时不使用服务端默认 Key", func(t *testing.T) {
		gen := &fakeGenerator{image: "data:image/png;base64,AAAA", campaign: sampleCampaign()}
		o := NewCampaignOrchestrator(gen, NewKeyVault(""))
		_, err := o.Submit(context.Background(), "summer sneakers")
		require.NoError(t, err)
		o.SetQuality(model.Quality4K)

		view, err := o.GenerateImage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, gen.imageCalls)
		assert.False(t, view.HasCredential)
		assert.Equal(t, model.PhaseError, view.Phase)
	})

	t.Run("生成图片期间允许重新提交文案并丢弃旧图", func(t *testing.T) {
		gen := &fakeGenerator{
			image:        "data:image/png;base64,AAAA",
			imageBlock:   make(chan struct{}),
			imageEntered: make(chan struct{}),
		}
		o := readyOrchestrator(t, gen, &fakeSelector{})

		done := make(chan CampaignView)
		go func() {
			v, _ := o.GenerateImage(context.Background())
			done <- v
		}()
		<-gen.imageEntered

		mid := o.View()
		assert.Equal(t, model.PhaseGeneratingImage, mid.Phase)
		assert.True(t, mid.CanSubmit)
		assert.False(t, mid.CanGenerateImage)
		_, err := o.GenerateImage(context.Background())
		assert.ErrorIs(t, err, ErrGenerationInProgress)

		gen.campaign = &model.Campaign{
			SubjectLines: []string{"Winter is here"},
			BodyCopy:     "Boots for every trail.",
			CTA:          "Shop boots",
			ImagePrompt:  "Boots in fresh snow",
		}
		view, err := o.Submit(context.Background(), "winter boots")
		require.NoError(t, err)
		assert.Equal(t, model.PhaseGeneratingImage, view.Phase)
		require.NotNil(t, view.Campaign)
		assert.Equal(t, "Shop boots", view.Campaign.CTA)

		close(gen.imageBlock)
		final := <-done
		assert.Equal(t, model.PhaseIdle, final.Phase)
		assert.Nil(t, final.Image)
		assert.Equal(t, "winter boots", final.Prompt)
		assert.True(t, final.CanGenerateImage)
	})

	t.Run("403 作废 Key 并给出恢复操作", func(t *testing.T) {
		gen := &fakeGenerator{imageErr: &RemoteError{
			StatusCode: 403,
			Message:    `{"error":{"code":403,"message":"The caller does not have permission"}}`,
		}}
		sel := &fakeSelector{}
		o := readyOrchestrator(t, gen, sel)
		o.SetQuality(model.Quality1K)

		view, err := o.GenerateImage(context.Background())
		require.NoError(t, err)
		assert.Equal(t, model.PhaseError, view.Phase)
		assert.Equal(t, MsgInsufficientPermission, view.Error)
		assert.Equal(t, CategoryInsufficientPermission, view.ErrorCategory)
		assert.False(t, view.HasCredential)
		assert.Equal(t, 1, sel.revoked)
		assert.Equal(t, []RecoveryAction{RecoverySwitchToStandard, RecoverySelectCredential}, view.Recovery)
		assert.NotNil(t, view.Campaign)
	})

	t.Run("会话过期作废 Key", func(t *testing.T) {
		gen := &fakeGenerator{imageErr: errors.New("Requested entity was not found.")}
		sel := &fakeSelector{selected: true}
		o := readyOrchestrator(t, gen, sel)
		o.RefreshCredential(context.Background())
		require.True(t, o.View().HasCredential)

		view, _ := o.GenerateImage(context.Background())
		assert.Equal(t, MsgSessionExpired, view.Error)
		assert.False(t, view.HasCredential)
		assert.Equal(t, []RecoveryAction{RecoverySelectCredential}, view.Recovery)
	})

	t.Run("其它错误原样展示且不作废 Key", func(t *testing.T) {
		gen := &fakeGenerator{imageErr: errors.New("boom")}
		sel := &fakeSelector{selected: true}
		o := readyOrchestrator(t, gen, sel)
		o.RefreshCredential(context.Background())

		view, _ := o.GenerateImage(context.Background())
		assert.Equal(t, "boom", view.Error)
		assert.Equal(t, CategoryGeneric, view.ErrorCategory)
		assert.True(t, view.HasCredential)
		assert.Equal(t, 0, sel.revoked)
		assert.Empty(t, view.Recovery)
	})

	t.Run("没有图片数据", func(t *testing.T) {
		gen := &fakeGenerator{imageErr: &NoImageProducedError{Model: DefaultImageModel}}
		o := readyOrchestrator(t, gen, &fakeSelector{})

		view, _ := o.GenerateImage(context.Background())
		assert.Equal(t, "No image was generated.", view.Error)
	})
}

func TestCampaignOrchestrator_Recovery(t *testing.T) {
	gen := &fakeGenerator{imageErr: &RemoteError{StatusCode: 403, Message: "forbidden"}}
	sel := &fakeSelector{}
	o := readyOrchestrator(t, gen, sel)
	o.SetQuality(model.Quality4K)
	view, _ := o.GenerateImage(context.Background())
	require.Equal(t, model.PhaseError, view.Phase)
	require.True(t, view.CanSwitchKey)

	t.Run("切回 Standard 只清除错误", func(t *testing.T) {
		calls := gen.imageCalls
		view := o.SwitchToStandard()
		assert.Equal(t, model.QualityStandard, view.Quality)
		assert.Empty(t, view.Error)
		assert.Equal(t, model.PhaseIdle, view.Phase)
		assert.False(t, view.CanSwitchKey)
		assert.Equal(t, calls, gen.imageCalls)
	})

	t.Run("手动选择 Key", func(t *testing.T) {
		o.SetQuality(model.Quality2K)
		_, _ = o.GenerateImage(context.Background())
		require.Equal(t, model.PhaseError, o.View().Phase)

		opens := sel.openCalls
		view, err := o.SelectCredential(context.Background())
		require.NoError(t, err)
		assert.Equal(t, opens+1, sel.openCalls)
		assert.True(t, view.HasCredential)
		assert.Empty(t, view.Error)
	})

	t.Run("选择失败返回错误", func(t *testing.T) {
		sel.openErr = ErrNoCredentialAvailable
		_, err := o.SelectCredential(context.Background())
		assert.ErrorIs(t, err, ErrNoCredentialAvailable)
	})
}

func TestCampaignOrchestrator_MarkPublished(t *testing.T) {
	gen := &fakeGenerator{image: "data:image/png;base64,AAAA"}
	o := readyOrchestrator(t, gen, &fakeSelector{})
	_, err := o.GenerateImage(context.Background())
	require.NoError(t, err)

	view := o.MarkPublished("data:image/png;base64,BBBB", "https://cdn/x.png")
	assert.Empty(t, view.Image.PublishedURL)

	view = o.MarkPublished("data:image/png;base64,AAAA", "https://cdn/x.png")
	assert.Equal(t, "https://cdn/x.png", view.Image.PublishedURL)
}
