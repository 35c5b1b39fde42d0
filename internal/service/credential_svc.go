package service

import (
	"context"
	"log"
	"strings"
	"sync"
)

// CredentialSelector 付费 Key 的选择与绑定
// Standard 画质使用服务端默认 Key，1K/2K/4K 需要先选择一个已启用计费的 Key
type CredentialSelector interface {
	// HasSelectedKey 当前是否已选择 Key
	HasSelectedKey(ctx context.Context) (bool, error)
	// OpenSelectKey 执行一次选择流程
	OpenSelectKey(ctx context.Context) error
	// Bind 把已选择的 Key 绑定到本次调用的上下文
	Bind(ctx context.Context) context.Context
	// Revoke 403 / 会话过期后作废当前选择
	Revoke()
}

// KeyVault 工作区内的 Key 保管
// 用户提交的 Key 优先，其次是服务端配置的计费 Key
type KeyVault struct {
	mu         sync.Mutex
	billingKey string
	pending    string
	selected   string
}

// NewKeyVault billingKey 可以为空，此时只能使用用户提交的 Key
func NewKeyVault(billingKey string) *KeyVault {
	return &KeyVault{billingKey: strings.TrimSpace(billingKey)}
}

// Submit 保存用户提交的 Key，下一次选择时生效
func (v *KeyVault) Submit(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyAPIKey
	}

	v.mu.Lock()
	v.pending = key
	v.mu.Unlock()
	return nil
}

func (v *KeyVault) HasSelectedKey(ctx context.Context) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected != "", nil
}

func (v *KeyVault) OpenSelectKey(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case v.pending != "":
		v.selected = v.pending
		log.Printf("[KeyVault] 已选择用户提交的 Key: %s", MaskKey(v.selected))
	case v.billingKey != "":
		v.selected = v.billingKey
		log.Printf("[KeyVault] 已选择服务端计费 Key: %s", MaskKey(v.selected))
	default:
		return ErrNoCredentialAvailable
	}
	return nil
}

func (v *KeyVault) Bind(ctx context.Context) context.Context {
	v.mu.Lock()
	key := v.selected
	v.mu.Unlock()
	return WithAPIKey(ctx, key)
}

// Revoke 同时丢弃用户提交的 Key，避免下一次选择又拿到同一个失效的 Key
func (v *KeyVault) Revoke() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.selected != "" {
		log.Printf("[KeyVault] 作废 Key: %s", MaskKey(v.selected))
	}
	if v.selected == v.pending {
		v.pending = ""
	}
	v.selected = ""
}

// SelectedHint 已选择 Key 的脱敏展示
func (v *KeyVault) SelectedHint() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected == "" {
		return ""
	}
	return MaskKey(v.selected)
}

// MaskKey 只保留前 4 位和后 4 位
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
