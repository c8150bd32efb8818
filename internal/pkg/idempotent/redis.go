package idempotent

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultExpiration = 24 * time.Hour

// RedisIdempotencyService 基于 SetNX 的幂等标记。
// 标记带过期时间，同一条消息在窗口内只会被处理一次
type RedisIdempotencyService struct {
	client     redis.Cmdable
	keyPrefix  string
	expiration time.Duration
}

func NewRedisService(client redis.Cmdable, keyPrefix string) *RedisIdempotencyService {
	return &RedisIdempotencyService{
		client:     client,
		keyPrefix:  keyPrefix,
		expiration: defaultExpiration,
	}
}

func (s *RedisIdempotencyService) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+":"+key, 1, s.expiration).Result()
	if err != nil {
		return false, err
	}
	// SetNX 成功说明是第一次见
	return !ok, nil
}

func (s *RedisIdempotencyService) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.keyPrefix+":"+key).Err()
}

func (s *RedisIdempotencyService) MExists(ctx context.Context, keys ...string) ([]bool, error) {
	if len(keys) == 0 {
		return nil, errors.New("empty keys")
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.BoolCmd, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, pipe.SetNX(ctx, s.keyPrefix+":"+key, 1, s.expiration))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	results := make([]bool, 0, len(cmds))
	for _, cmd := range cmds {
		results = append(results, !cmd.Val())
	}
	return results, nil
}
