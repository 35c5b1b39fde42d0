package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey string        // 签名密钥
	TokenTTL  time.Duration // 工作区 Token 有效期
	Issuer    string        // 签发者
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey: "campaignflow-secret-key-change-in-production",
		TokenTTL:  24 * time.Hour,
		Issuer:    "campaignflow",
	}
}

const workspaceSubject = "workspace"

// ==================== Claims 定义 ====================

// WorkspaceClaims 工作区声明
type WorkspaceClaims struct {
	WorkspaceID string `json:"workspace_id"`
	jwt.RegisteredClaims
}

// ==================== Token 签发 / 解析 ====================

// TokenIssuer 工作区 Token 的签发与校验
type TokenIssuer struct {
	cfg *JWTConfig
	now func() time.Time
}

// NewTokenIssuer cfg 为 nil 时使用默认配置
func NewTokenIssuer(cfg *JWTConfig) *TokenIssuer {
	if cfg == nil {
		cfg = DefaultJWTConfig()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultJWTConfig().TokenTTL
	}
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

// Issue 签发工作区 Token
func (t *TokenIssuer) Issue(workspaceID string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.cfg.TokenTTL)
	claims := &WorkspaceClaims{
		WorkspaceID: workspaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   workspaceSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(t.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse 解析 Token
func (t *TokenIssuer) Parse(tokenString string) (*WorkspaceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &WorkspaceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(t.cfg.SecretKey), nil
	}, jwt.WithIssuer(t.cfg.Issuer), jwt.WithTimeFunc(t.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*WorkspaceClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ==================== Gin 中间件 ====================

// Context Keys
const (
	ContextKeyWorkspaceID = "workspace_id"
	ContextKeyClaims      = "claims"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    401,
		"message": message,
	})
	c.Abort()
}

// WorkspaceAuth 工作区 Token 认证中间件
func WorkspaceAuth(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "未提供认证信息")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "认证格式错误，应为 Bearer {token}")
			return
		}

		claims, err := issuer.Parse(parts[1])
		if err != nil {
			abortUnauthorized(c, "Token 无效或已过期")
			return
		}

		if claims.Subject != workspaceSubject || claims.WorkspaceID == "" {
			abortUnauthorized(c, "Token 类型错误")
			return
		}

		c.Set(ContextKeyWorkspaceID, claims.WorkspaceID)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// ==================== 辅助函数 ====================

// GetWorkspaceID 从 Context 获取工作区 ID
func GetWorkspaceID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyWorkspaceID); exists {
		return id.(string)
	}
	return ""
}
