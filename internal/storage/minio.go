package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// RawTextArchive 简历原文归档接口
type RawTextArchive interface {
	// StoreRawText 归档原文，返回对象路径与内容MD5
	StoreRawText(ctx context.Context, submissionUUID string, text string) (string, string, error)

	// GetRawText 按对象路径读回原文
	GetRawText(ctx context.Context, objectPath string) (string, error)

	// DeleteRawText 删除归档原文
	DeleteRawText(ctx context.Context, objectPath string) error
}

var _ RawTextArchive = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client        *minio.Client
	cfg           *config.MinIOConfig
	rawTextBucket string
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	rawTextBucket := cfg.RawTextBucket
	if rawTextBucket == "" {
		rawTextBucket = "resume-raw-text"
	}

	m := &MinIO{
		client:        client,
		cfg:           cfg,
		rawTextBucket: rawTextBucket,
	}

	if err := m.ensureBucketExists(rawTextBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保原文存储桶 %s 存在失败: %w", rawTextBucket, err)
	}

	// 原文保留期满后由生命周期规则清理
	if cfg.RawTextExpireDays > 0 {
		if err := m.setupBucketLifecycle(context.Background(), rawTextBucket, "expire-raw-text", cfg.RawTextExpireDays); err != nil {
			logger.Warn().Err(err).Str("bucket", rawTextBucket).Msg("设置原文生命周期规则失败")
		}
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", rawTextBucket).Msg("MinIO客户端初始化完成")
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		logger.Info().Str("bucket", bucketName).Msg("存储桶创建成功")
	}
	return nil
}

// setupBucketLifecycle 为指定存储桶设置过期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, lc)
}

// StoreRawText 归档简历原文到对象存储，对象键按提交UUID分片
func (m *MinIO) StoreRawText(ctx context.Context, submissionUUID string, text string) (string, string, error) {
	data := []byte(text)
	sum := md5.Sum(data)
	md5Hex := hex.EncodeToString(sum[:])

	objectName := fmt.Sprintf("raw/%s/%s.txt", time.Now().Format("2006/01"), submissionUUID)
	_, err := m.client.PutObject(ctx, m.rawTextBucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", "", fmt.Errorf("上传原文对象 %s/%s 失败: %w", m.rawTextBucket, objectName, err)
	}

	return objectName, md5Hex, nil
}

// GetRawText 按对象路径读回归档原文
func (m *MinIO) GetRawText(ctx context.Context, objectPath string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.rawTextBucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("读取原文对象 %s 失败: %w", objectPath, err)
	}
	defer obj.Close()

	var sb strings.Builder
	if _, err := io.Copy(&sb, obj); err != nil {
		return "", fmt.Errorf("读取原文内容失败: %w", err)
	}
	return sb.String(), nil
}

// DeleteRawText 删除归档原文
func (m *MinIO) DeleteRawText(ctx context.Context, objectPath string) error {
	err := m.client.RemoveObject(ctx, m.rawTextBucket, objectPath, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除原文对象 %s 失败: %w", objectPath, err)
	}
	return nil
}
