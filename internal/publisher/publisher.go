package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/gotomicro/ego/core/elog"

	"github.com/vervana-io/fastfast-common/internal/errs"
)

// SNSAPI 发布侧用到的 SNS 操作
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SQSProducerAPI 直发队列用到的 SQS 操作
type SQSProducerAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// Config 发布端配置
type Config struct {
	// TopicARN 默认主题
	TopicARN string
	// QueueURL 默认队列
	QueueURL string
}

func (c *Config) Validate() error {
	if c.TopicARN == "" && c.QueueURL == "" {
		return fmt.Errorf("%w: TopicARN 和 QueueURL 至少配置一个", errs.ErrInvalidParameter)
	}
	return nil
}

// Publisher 订单事件发布器
type Publisher interface {
	// Publish 发布到 SNS 主题。发布失败只记日志，返回空消息 ID，不中断调用方
	Publish(ctx context.Context, data map[string]any, topicARN, subject string) string
	// Produce 直发一条消息到 SQS 队列
	Produce(ctx context.Context, payload any, queueURL string, groupID string) (string, error)
	// ProduceBatch 批量直发，单批上限 10 条，超出自动分批
	ProduceBatch(ctx context.Context, payloads []any, queueURL string) error
}

type publisher struct {
	snsClient SNSAPI
	sqsClient SQSProducerAPI
	cfg       Config
	logger    *elog.Component
}

func NewPublisher(snsClient SNSAPI, sqsClient SQSProducerAPI, cfg Config) (Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &publisher{
		snsClient: snsClient,
		sqsClient: sqsClient,
		cfg:       cfg,
		logger:    elog.DefaultLogger,
	}, nil
}

func (p *publisher) Publish(ctx context.Context, data map[string]any, topicARN, subject string) string {
	if topicARN == "" {
		topicARN = p.cfg.TopicARN
	}
	body, err := json.Marshal(data)
	if err != nil {
		p.logger.Warn("事件序列化失败", elog.FieldErr(err))
		return ""
	}
	input := &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Message:  aws.String(string(body)),
	}
	if subject != "" {
		input.Subject = aws.String(subject)
	}
	// FIFO 主题按 事件名+订单ID 分组，保证同一订单的事件有序
	if groupID := messageGroupID(data); groupID != "" {
		input.MessageGroupId = aws.String(groupID)
	}
	out, err := p.snsClient.Publish(ctx, input)
	if err != nil {
		p.logger.Warn("发布事件失败",
			elog.FieldErr(err),
			elog.String("topic", topicARN))
		return ""
	}
	return aws.ToString(out.MessageId)
}

func (p *publisher) Produce(ctx context.Context, payload any, queueURL string, groupID string) (string, error) {
	if queueURL == "" {
		queueURL = p.cfg.QueueURL
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrInvalidMessage, err)
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	}
	if groupID != "" {
		input.MessageGroupId = aws.String(groupID)
	}
	out, err := p.sqsClient.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrPublishFailed, err)
	}
	return aws.ToString(out.MessageId), nil
}

func (p *publisher) ProduceBatch(ctx context.Context, payloads []any, queueURL string) error {
	if queueURL == "" {
		queueURL = p.cfg.QueueURL
	}
	const batchLimit = 10
	for start := 0; start < len(payloads); start += batchLimit {
		end := start + batchLimit
		if end > len(payloads) {
			end = len(payloads)
		}
		entries := make([]sqstypes.SendMessageBatchRequestEntry, 0, end-start)
		for i := start; i < end; i++ {
			body, err := json.Marshal(payloads[i])
			if err != nil {
				return fmt.Errorf("%w: 第 %d 条: %w", errs.ErrInvalidMessage, i, err)
			}
			entries = append(entries, sqstypes.SendMessageBatchRequestEntry{
				Id:          aws.String(fmt.Sprintf("msg-%d", i)),
				MessageBody: aws.String(string(body)),
			})
		}
		out, err := p.sqsClient.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(queueURL),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrPublishFailed, err)
		}
		if len(out.Failed) > 0 {
			return fmt.Errorf("%w: %d 条发送失败", errs.ErrPublishFailed, len(out.Failed))
		}
	}
	return nil
}

// messageGroupID 事件名拼订单 ID
func messageGroupID(data map[string]any) string {
	event, _ := data["event"].(string)
	if event == "" {
		return ""
	}
	order, ok := data["order"].(map[string]any)
	if !ok {
		return event
	}
	switch id := order["id"].(type) {
	case int64:
		return fmt.Sprintf("%s%d", event, id)
	case int:
		return fmt.Sprintf("%s%d", event, id)
	case float64:
		return fmt.Sprintf("%s%d", event, int64(id))
	case string:
		return event + id
	default:
		return event
	}
}
