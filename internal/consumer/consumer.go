package consumer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/gotomicro/ego/core/elog"

	"github.com/vervana-io/fastfast-common/internal/errs"
)

// Handler 处理单条消息。
// 返回 true 确认消息，返回 false 或 error 都按处理失败重新入队。
type Handler func(ctx context.Context, msg *QueueMessage) (bool, error)

// SQSAPI 消费侧用到的 SQS 操作
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Config 消费者配置
type Config struct {
	QueueURL string
	// MaxMessages 单次拉取上限，SQS 封顶 10
	MaxMessages     int32
	WaitTimeSeconds int32
	// VisibilityTimeout 拉取时的不可见窗口（秒）
	VisibilityTimeout int32
	// NackVisibilityTimeout 处理失败后延长的不可见窗口（秒）
	NackVisibilityTimeout int32
	// FastPollInterval 上一轮拉到消息时的轮询间隔
	FastPollInterval time.Duration
	// SlowPollInterval 队列空闲时的轮询间隔
	SlowPollInterval time.Duration
}

func (c *Config) Validate() error {
	if c.QueueURL == "" {
		return fmt.Errorf("%w: QueueURL 不能为空", errs.ErrInvalidParameter)
	}
	if c.MaxMessages <= 0 || c.MaxMessages > 10 {
		c.MaxMessages = 10
	}
	if c.VisibilityTimeout <= 0 {
		c.VisibilityTimeout = 30
	}
	if c.NackVisibilityTimeout <= 0 {
		c.NackVisibilityTimeout = 60
	}
	if c.FastPollInterval <= 0 {
		c.FastPollInterval = time.Second
	}
	if c.SlowPollInterval <= 0 {
		c.SlowPollInterval = 10 * time.Second
	}
	return nil
}

// BatchResult 单轮批次的处理统计
type BatchResult struct {
	Fulfilled int
	Rejected  int
}

// Consumer SQS 队列消费者。
// 按自适应间隔轮询：拉到消息走快间隔，空轮次退避到慢间隔。
type Consumer struct {
	client   SQSAPI
	cfg      Config
	interval time.Duration
	logger   *elog.Component
}

func NewConsumer(client SQSAPI, cfg Config) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Consumer{
		client:   client,
		cfg:      cfg,
		interval: cfg.FastPollInterval,
		logger:   elog.DefaultLogger,
	}, nil
}

// Start 阻塞消费，直到 ctx 取消
func (c *Consumer) Start(ctx context.Context, handler Handler) error {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			c.Consume(ctx, handler)
			timer.Reset(c.interval)
		}
	}
}

// Consume 执行一轮拉取和处理，并据结果调整下一轮间隔
func (c *Consumer) Consume(ctx context.Context, handler Handler) BatchResult {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(c.cfg.QueueURL),
		MaxNumberOfMessages:   c.cfg.MaxMessages,
		WaitTimeSeconds:       c.cfg.WaitTimeSeconds,
		VisibilityTimeout:     c.cfg.VisibilityTimeout,
		MessageAttributeNames: []string{"All"},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameAll,
		},
	})
	if err != nil {
		c.logger.Error("拉取消息失败", elog.FieldErr(err), elog.String("queue", c.cfg.QueueURL))
		return BatchResult{}
	}
	if len(out.Messages) == 0 {
		c.interval = c.cfg.SlowPollInterval
		return BatchResult{}
	}
	c.interval = c.cfg.FastPollInterval
	return c.processBatch(ctx, out.Messages, handler)
}

// processBatch 并发处理一个批次，单条消息的失败不影响其它消息
func (c *Consumer) processBatch(ctx context.Context, messages []types.Message, handler Handler) BatchResult {
	var (
		mu  sync.Mutex
		res BatchResult
		wg  sync.WaitGroup
	)
	for i := range messages {
		wg.Add(1)
		go func(raw types.Message) {
			defer wg.Done()
			msg := c.convert(raw)
			ok, err := handler(ctx, msg)
			if err != nil {
				c.logger.Error("处理消息失败",
					elog.FieldErr(err),
					elog.String("messageID", msg.MessageID()))
				ok = false
			}
			if ok {
				if err := c.Ack(ctx, msg); err != nil {
					c.logger.Error("确认消息失败", elog.FieldErr(err),
						elog.String("messageID", msg.MessageID()))
				}
			} else {
				if err := c.Nack(ctx, msg); err != nil {
					c.logger.Error("重新入队失败", elog.FieldErr(err),
						elog.String("messageID", msg.MessageID()))
				}
			}
			mu.Lock()
			if ok {
				res.Fulfilled++
			} else {
				res.Rejected++
			}
			mu.Unlock()
		}(messages[i])
	}
	wg.Wait()
	return res
}

// Ack 删除消息，处理成功后调用
func (c *Consumer) Ack(ctx context.Context, msg *QueueMessage) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.cfg.QueueURL),
		ReceiptHandle: aws.String(msg.ReceiptHandle()),
	})
	return err
}

// Nack 延长不可见窗口，让消息稍后重投
func (c *Consumer) Nack(ctx context.Context, msg *QueueMessage) error {
	timeout := msg.RequeueVisibilityTimeout()
	if timeout <= 0 {
		timeout = c.cfg.NackVisibilityTimeout
	}
	_, err := c.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(c.cfg.QueueURL),
		ReceiptHandle:     aws.String(msg.ReceiptHandle()),
		VisibilityTimeout: timeout,
	})
	return err
}

// SendOptions 发回队列时的可选项
type SendOptions struct {
	// QueueURL 为空时发回消费队列
	QueueURL     string
	DelaySeconds int32
	GroupID      string
	DedupeID     string
}

// Send 把一条消息投到队列，payload 会被序列化成 JSON
func (c *Consumer) Send(ctx context.Context, payload any, opts SendOptions) (string, error) {
	body, err := marshalPayload(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrInvalidMessage, err)
	}
	queueURL := opts.QueueURL
	if queueURL == "" {
		queueURL = c.cfg.QueueURL
	}
	input := &sqs.SendMessageInput{
		QueueUrl:     aws.String(queueURL),
		MessageBody:  aws.String(body),
		DelaySeconds: opts.DelaySeconds,
	}
	if opts.GroupID != "" {
		input.MessageGroupId = aws.String(opts.GroupID)
	}
	if opts.DedupeID != "" {
		input.MessageDeduplicationId = aws.String(opts.DedupeID)
	}
	out, err := c.client.SendMessage(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func (c *Consumer) convert(raw types.Message) *QueueMessage {
	msg := NewQueueMessage(aws.ToString(raw.Body))
	msg.SetMessageID(aws.ToString(raw.MessageId))
	msg.SetReceiptHandle(aws.ToString(raw.ReceiptHandle))
	attrs := make(map[string]string, len(raw.Attributes))
	for k, v := range raw.Attributes {
		attrs[k] = v
	}
	msg.SetAttributes(attrs)
	return msg
}
