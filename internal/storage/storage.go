package storage

import (
	"context"
	"fmt"
	"strings"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis

	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ
}

// 确保Storage实现了设置提供者接口
var _ config.SettingProvider = (*Storage)(nil)

// NewStorage 创建存储管理器。单个组件初始化失败不会中断整体初始化，
// 只有全部组件失败时才返回错误，未初始化的组件保持nil。
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	storage := &Storage{}
	var err error
	var initErrors []string

	// 初始化MySQL（如果配置了）
	if cfg.MySQL.Host != "" {
		storage.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MySQL失败")
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	// 初始化Redis（如果配置了）
	if cfg.Redis.Address != "" {
		storage.Redis, err = NewRedis(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Redis失败")
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	}

	// 初始化MinIO（如果配置了）
	if cfg.MinIO.Endpoint != "" {
		storage.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化MinIO失败")
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	// 初始化RabbitMQ（如果配置了）
	if cfg.RabbitMQ.URL != "" {
		storage.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败")
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if storage.MySQL == nil && storage.Redis == nil && storage.MinIO == nil && storage.RabbitMQ == nil {
		return nil, fmt.Errorf("所有存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}

	if len(initErrors) > 0 {
		logger.Warn().Str("errors", strings.Join(initErrors, "; ")).Msg("部分存储组件初始化失败")
	}

	return storage, nil
}

// GetSetting 读取设置项，优先走Redis缓存，回源MySQL后写缓存。
// 任何一层失败或设置不存在时返回默认值。
func (s *Storage) GetSetting(ctx context.Context, key string, defaultValue string) string {
	if s.Redis != nil {
		if cached, err := s.Redis.GetCachedSetting(ctx, key); err == nil && cached != "" {
			return cached
		}
	}

	if s.MySQL == nil {
		return defaultValue
	}

	value, err := s.MySQL.GetSettingValue(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Str("setting_key", key).Msg("读取设置项失败，使用默认值")
		return defaultValue
	}
	if value == "" {
		return defaultValue
	}

	if s.Redis != nil {
		if err := s.Redis.CacheSetting(ctx, key, value); err != nil {
			logger.Warn().Err(err).Str("setting_key", key).Msg("写入设置项缓存失败")
		}
	}
	return value
}

// SetSetting 写入设置项并刷新缓存，供运维在运行时调整人设文案、共享密钥等
func (s *Storage) SetSetting(ctx context.Context, key, value string) error {
	if s.MySQL == nil {
		return fmt.Errorf("MySQL未初始化，无法写入设置项")
	}
	if err := s.MySQL.UpsertSetting(ctx, key, value); err != nil {
		return err
	}
	if s.Redis != nil {
		if err := s.Redis.CacheSetting(ctx, key, value); err != nil {
			logger.Warn().Err(err).Str("setting_key", key).Msg("刷新设置项缓存失败")
		}
	}
	return nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
}
