package service

import (
	"bytes"
	"campaignflow/pkg/utils"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ==================== 接口定义 ====================

// StorageProvider 对象存储
type StorageProvider interface {
	// Upload 上传文件，返回公开访问URL
	Upload(ctx context.Context, data []byte, key string, contentType string) (url string, err error)

	// Delete 删除文件
	Delete(ctx context.Context, url string) error
}

// ==================== 配置 ====================

type StorageConfig struct {
	Provider  string // "s3" | "" (不启用)
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // S3 兼容端点 (MinIO / R2 / COS 等)，为空时使用 AWS
	CDNDomain string // CDN域名 (可选)
	BasePath  string // 基础路径前缀
}

// ==================== StorageService ====================

// StorageService 头图发布
// 生成的图片是 data URI，邮件里需要一个公开地址，发布时才上传
type StorageService struct {
	provider StorageProvider
	basePath string
	now      func() time.Time
}

// NewStorageService Provider 为空时返回未启用的服务
func NewStorageService(cfg *StorageConfig) (*StorageService, error) {
	svc := &StorageService{basePath: strings.Trim(cfg.BasePath, "/"), now: time.Now}

	switch cfg.Provider {
	case "", "none":
		log.Println("[Storage] 未配置存储，头图发布不可用")
		return svc, nil
	case "s3":
		provider, err := NewS3Storage(cfg)
		if err != nil {
			return nil, err
		}
		svc.provider = provider
		return svc, nil
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// NewStorageServiceWithProvider 使用指定的 Provider
func NewStorageServiceWithProvider(provider StorageProvider, basePath string) *StorageService {
	return &StorageService{provider: provider, basePath: strings.Trim(basePath, "/"), now: time.Now}
}

// Enabled 是否可以发布
func (s *StorageService) Enabled() bool {
	return s != nil && s.provider != nil
}

// PublishDataURI 上传 data URI 图片，返回公开地址
func (s *StorageService) PublishDataURI(ctx context.Context, dataURI string, prefix string) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageDisabled
	}

	data, mimeType, err := utils.DecodeDataURI(dataURI)
	if err != nil {
		return "", fmt.Errorf("解析图片失败: %w", err)
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	url, err := s.provider.Upload(ctx, data, s.generateKey(prefix, mimeType), mimeType)
	if err != nil {
		return "", err
	}

	log.Printf("[Storage] 头图已发布: %s (%d bytes)", url, len(data))
	return url, nil
}

// Delete 删除已发布的图片
func (s *StorageService) Delete(ctx context.Context, url string) error {
	if !s.Enabled() {
		return ErrStorageDisabled
	}
	return s.provider.Delete(ctx, url)
}

// generateKey basePath/prefix/2006/01/02/uuid.ext
func (s *StorageService) generateKey(prefix, mimeType string) string {
	ext := ".png"
	switch mimeType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}

	parts := make([]string, 0, 4)
	if s.basePath != "" {
		parts = append(parts, s.basePath)
	}
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, s.now().Format("2006/01/02"), uuid.New().String()+ext)
	return strings.Join(parts, "/")
}

// ==================== S3 实现 ====================

type S3Storage struct {
	client    *s3.Client
	bucket    string
	region    string
	endpoint  string
	cdnDomain string
}

func NewS3Storage(cfg *StorageConfig) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("AWS_BUCKET 未配置")
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %v", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// S3 兼容存储使用 path style
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		endpoint:  endpoint,
		cdnDomain: cfg.CDNDomain,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, key string, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传S3失败: %v", err)
	}

	return s.publicURL(key), nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key := s.extractKey(url)
	if key == "" || key == url {
		return fmt.Errorf("无法解析文件路径")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Storage) urlPrefix() string {
	switch {
	case s.cdnDomain != "":
		return fmt.Sprintf("https://%s/", s.cdnDomain)
	case s.endpoint != "":
		return fmt.Sprintf("%s/%s/", s.endpoint, s.bucket)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region)
	}
}

func (s *S3Storage) publicURL(key string) string {
	return s.urlPrefix() + key
}

func (s *S3Storage) extractKey(url string) string {
	return strings.TrimPrefix(url, s.urlPrefix())
}
