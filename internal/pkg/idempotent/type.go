package idempotent

import "context"

// Service 幂等检查。Exists 返回 key 是否已被处理过，并顺手标记；
// 处理失败需要重投的消息用 Remove 撤销标记，否则重投会被当成重复
type Service interface {
	Exists(ctx context.Context, key string) (bool, error)
	MExists(ctx context.Context, keys ...string) ([]bool, error)
	Remove(ctx context.Context, key string) error
}
