package channel

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/gotomicro/ego/core/elog"
	"google.golang.org/api/option"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
)

// FCMConfig Firebase 推送配置
type FCMConfig struct {
	// CredentialsFile 服务账号 JSON 路径
	CredentialsFile string
	ProjectID       string
}

func (c *FCMConfig) Validate() error {
	if c.CredentialsFile == "" {
		return fmt.Errorf("%w: CredentialsFile 不能为空", errs.ErrInvalidParameter)
	}
	return nil
}

// fcmMessenger firebase messaging 里用到的子集
type fcmMessenger interface {
	SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error)
}

// FCMChannel Android 推送渠道
type FCMChannel struct {
	client fcmMessenger
	logger *elog.Component
}

func NewFCMChannel(ctx context.Context, cfg FCMConfig) (*FCMChannel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID},
		option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: 初始化 firebase 失败: %w", errs.ErrSendNotificationFailed, err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: 初始化 messaging 失败: %w", errs.ErrSendNotificationFailed, err)
	}
	return newFCMChannel(client), nil
}

func newFCMChannel(client fcmMessenger) *FCMChannel {
	return &FCMChannel{
		client: client,
		logger: elog.DefaultLogger,
	}
}

func (c *FCMChannel) Send(ctx context.Context, messages []TokenMessage) ([]domain.DispatchResult, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	fcmMessages := make([]*messaging.Message, 0, len(messages))
	for _, msg := range messages {
		fcmMessages = append(fcmMessages, &messaging.Message{
			Token: msg.Token,
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		})
	}
	batch, err := c.client.SendEach(ctx, fcmMessages)
	if err != nil {
		return nil, fmt.Errorf("%w: fcm: %w", errs.ErrSendNotificationFailed, err)
	}
	results := make([]domain.DispatchResult, 0, len(messages))
	for i, resp := range batch.Responses {
		token := messages[i].Token
		if resp.Success {
			results = append(results, domain.SucceededResult(token, resp.MessageID))
			continue
		}
		c.logger.Warn("fcm 单条推送失败",
			elog.FieldErr(resp.Error),
			elog.String("token", token))
		results = append(results, domain.FailedResult(token, resp.Error))
	}
	return results, nil
}
