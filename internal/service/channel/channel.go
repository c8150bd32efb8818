package channel

import (
	"context"

	"github.com/vervana-io/fastfast-common/internal/domain"
)

// TokenMessage 发往单个 token 的推送，Data 随推送透传给客户端
type TokenMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// PushChannel token 维度的推送渠道。
// 返回结果与入参一一对应，单个 token 失败不影响其它 token。
type PushChannel interface {
	Send(ctx context.Context, messages []TokenMessage) ([]domain.DispatchResult, error)
}

// APNsSender 苹果推送。bundle 按用户角色选择，所以入参带角色
type APNsSender interface {
	Send(ctx context.Context, userType domain.UserType, messages []TokenMessage) ([]domain.DispatchResult, error)
}

// BatchEvent 实时频道上的一个事件
type BatchEvent struct {
	Channel string
	Name    string
	Data    any
}

// RealtimeSender websocket 实时通道
type RealtimeSender interface {
	Trigger(ctx context.Context, channel, event string, data any) error
	// TriggerBatch 批量触发，超出单批上限时在内部分批
	TriggerBatch(ctx context.Context, events []BatchEvent) ([]domain.DispatchResult, error)
}
