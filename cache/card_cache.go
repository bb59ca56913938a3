package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"msgcard/model"

	"github.com/go-redis/redis/v8"
)

const cardRecordKey = "card:%s:record" // String: MessageRecord JSON

// ErrCacheUnavailable 未连接 Redis 时返回
var ErrCacheUnavailable = errors.New("Redis client not initialized")

// CardCache 缓存查询服务解析后的记录（含签名 URL）
type CardCache struct {
	client *redis.Client
}

// NewCardCache 创建贺卡缓存，client 为 nil 时使用全局客户端
func NewCardCache(client *redis.Client) *CardCache {
	if client == nil {
		client = RedisClient
	}
	return &CardCache{client: client}
}

// Get 读取缓存记录，未命中返回 nil, nil
func (c *CardCache) Get(ctx context.Context, id string) (*model.MessageRecord, error) {
	if c.client == nil {
		return nil, ErrCacheUnavailable
	}

	data, err := c.client.Get(ctx, fmt.Sprintf(cardRecordKey, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var rec model.MessageRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card record: %w", err)
	}
	return &rec, nil
}

// Set 写入缓存，ttl <= 0 时不写
func (c *CardCache) Set(ctx context.Context, rec *model.MessageRecord, ttl time.Duration) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}
	if rec == nil || ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal card record: %w", err)
	}
	return c.client.Set(ctx, fmt.Sprintf(cardRecordKey, rec.ID), data, ttl).Err()
}

// Delete 删除缓存记录
func (c *CardCache) Delete(ctx context.Context, id string) error {
	if c.client == nil {
		return ErrCacheUnavailable
	}
	return c.client.Del(ctx, fmt.Sprintf(cardRecordKey, id)).Err()
}
