package storage

import (
	"context"
	"fmt"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Redis 提供缓存与去重集合功能
type Redis struct {
	client *redis.Client
	cfg    *config.RedisConfig
}

// NewRedis 创建Redis客户端
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Redis配置不能为空")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	})

	// 注册OpenTelemetry追踪钩子
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("注册Redis追踪钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}

	return &Redis{
		client: client,
		cfg:    cfg,
	}, nil
}

// Client 返回底层Redis客户端
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	return r.client.Close()
}

// GetCachedSetting 读取设置项缓存；未命中返回空串且无错误
func (r *Redis) GetCachedSetting(ctx context.Context, key string) (string, error) {
	cacheKey := fmt.Sprintf(constants.KeySettingCache, key)
	val, err := r.client.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("读取设置项缓存失败: %w", err)
	}
	return val, nil
}

// CacheSetting 写入设置项缓存
func (r *Redis) CacheSetting(ctx context.Context, key, value string) error {
	cacheKey := fmt.Sprintf(constants.KeySettingCache, key)
	ttl := time.Duration(r.cfg.SettingCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return r.client.Set(ctx, cacheKey, value, ttl).Err()
}

// AddRawTextMD5 将原文MD5加入去重集合，返回是否为首次出现。
// 集合整体设置过期时间，避免去重集合无限增长。
func (r *Redis) AddRawTextMD5(ctx context.Context, md5Hex string) (bool, error) {
	added, err := r.client.SAdd(ctx, constants.KeyRawTextMD5Set, md5Hex).Result()
	if err != nil {
		return false, fmt.Errorf("写入去重集合失败: %w", err)
	}
	// 每次写入滑动续期
	expire := time.Duration(constants.RawTextMD5ExpireDays) * 24 * time.Hour
	if err := r.client.Expire(ctx, constants.KeyRawTextMD5Set, expire).Err(); err != nil {
		return false, fmt.Errorf("设置去重集合过期时间失败: %w", err)
	}
	return added > 0, nil
}
