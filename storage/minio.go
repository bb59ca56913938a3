package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"msgcard/config"
	"msgcard/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MaxCaptionBytes 字幕对象读取上限
const MaxCaptionBytes = 1 << 20

// Store 封装了 MinIO 客户端，贺卡的媒体和字幕都按 key 存放在同一个桶中
type Store struct {
	client *minio.Client
	bucket string
	region string
}

// NewStore 创建一个新的对象存储客户端，不发起网络请求
func NewStore(cfg *config.Config) (*Store, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	return &Store{client: client, bucket: cfg.MinioBucket, region: cfg.MinioRegion}, nil
}

// Bucket 返回存储桶名称
func (s *Store) Bucket() string {
	return s.bucket
}

// EnsureBucket 检查存储桶，不存在时创建
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		logger.Debug("bucket exists", logger.String("bucket", s.bucket))
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("bucket created", logger.String("bucket", s.bucket))
	return nil
}

// IsAbsoluteURL 判断 key 是否已经是可直接访问的 http(s) 地址
func IsAbsoluteURL(key string) bool {
	u, err := url.Parse(key)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// PresignGet 生成带有效期的下载地址，绝对 URL 原样返回
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", nil
	}
	if IsAbsoluteURL(key) {
		return key, nil
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成签名地址失败 %s: %w", key, err)
	}
	return u.String(), nil
}

// GetText 读取文本对象，超过 limit 字节的部分会被截断
func (s *Store) GetText(ctx context.Context, key string, limit int64) (string, error) {
	if limit <= 0 {
		limit = MaxCaptionBytes
	}

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("读取对象失败 %s: %w", key, err)
	}
	defer object.Close()

	content, err := io.ReadAll(io.LimitReader(object, limit))
	if err != nil {
		return "", fmt.Errorf("读取对象内容失败 %s: %w", key, err)
	}
	return string(content), nil
}

// Put 上传对象，返回最终使用的 key
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = InferContentType(key)
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传对象失败 %s: %w", key, err)
	}
	logger.Info("object uploaded",
		logger.String("bucket", s.bucket),
		logger.String("key", key),
		logger.Int64("size", size))
	return key, nil
}

// ObjectKey 生成 cards/<cardID>/<uuid>.<ext> 形式的对象 key
func ObjectKey(cardID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if cardID == "" {
		cardID = "unassigned"
	}
	return fmt.Sprintf("cards/%s/%s%s", cardID, uuid.New().String(), ext)
}
