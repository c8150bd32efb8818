package channel

import (
	"context"
	"fmt"

	"github.com/gotomicro/ego/core/elog"
	"github.com/pusher/pusher-http-go/v5"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
)

// pusher 单次批量触发的上限
const pusherBatchLimit = 10

// PusherConfig 实时通道配置
type PusherConfig struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
}

func (c *PusherConfig) Validate() error {
	if c.AppID == "" || c.Key == "" || c.Secret == "" {
		return fmt.Errorf("%w: pusher 配置不完整", errs.ErrInvalidParameter)
	}
	return nil
}

// pusherAPI pusher.Client 里用到的子集
type pusherAPI interface {
	Trigger(channel string, eventName string, data interface{}) error
	TriggerBatch(batch []pusher.Event) (*pusher.TriggerBatchChannelsList, error)
}

// PusherChannel websocket 实时推送
type PusherChannel struct {
	client pusherAPI
	logger *elog.Component
}

func NewPusherChannel(cfg PusherConfig) (*PusherChannel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newPusherChannel(&pusher.Client{
		AppID:   cfg.AppID,
		Key:     cfg.Key,
		Secret:  cfg.Secret,
		Cluster: cfg.Cluster,
	}), nil
}

func newPusherChannel(client pusherAPI) *PusherChannel {
	return &PusherChannel{
		client: client,
		logger: elog.DefaultLogger,
	}
}

func (c *PusherChannel) Trigger(_ context.Context, channel, event string, data any) error {
	if err := c.client.Trigger(channel, event, data); err != nil {
		return fmt.Errorf("%w: pusher: %w", errs.ErrSendNotificationFailed, err)
	}
	return nil
}

// TriggerBatch 按 10 条一批切分触发，一批失败只影响这一批的结果
func (c *PusherChannel) TriggerBatch(_ context.Context, events []BatchEvent) ([]domain.DispatchResult, error) {
	results := make([]domain.DispatchResult, 0, len(events))
	for start := 0; start < len(events); start += pusherBatchLimit {
		end := start + pusherBatchLimit
		if end > len(events) {
			end = len(events)
		}
		chunk := events[start:end]
		batch := make([]pusher.Event, 0, len(chunk))
		for _, event := range chunk {
			batch = append(batch, pusher.Event{
				Channel: event.Channel,
				Name:    event.Name,
				Data:    event.Data,
			})
		}
		_, err := c.client.TriggerBatch(batch)
		for _, event := range chunk {
			if err != nil {
				results = append(results, domain.FailedResult(event.Channel, err))
			} else {
				results = append(results, domain.SucceededResult(event.Channel, event.Name))
			}
		}
		if err != nil {
			c.logger.Warn("pusher 批量触发失败",
				elog.FieldErr(err),
				elog.Int("batchSize", len(chunk)))
		}
	}
	return results, nil
}
