package consumer

import (
	"encoding/json"
)

// header 里约定的保留键
const (
	headerReplyTo       = "replyTo"
	headerCorrelationID = "correlationId"
	headerTimestamp     = "timestamp"
)

// QueueMessage 队列消息的统一包装。
// 原始报文保留在 raw 里，body 是按 JSON 解析后的结果，解析失败时为 nil。
type QueueMessage struct {
	raw           string
	body          map[string]any
	messageID     string
	receiptHandle string

	headers    map[string]any
	properties map[string]any
	attributes map[string]string

	delaySeconds             int32
	messageGroupID           string
	messageDeduplicationID   string
	requeueVisibilityTimeout int32
}

func NewQueueMessage(raw string) *QueueMessage {
	m := &QueueMessage{
		headers:    make(map[string]any),
		properties: make(map[string]any),
		attributes: make(map[string]string),
	}
	m.SetBody(raw)
	return m
}

// SetBody 重置报文并重新解析 JSON
func (m *QueueMessage) SetBody(raw string) {
	m.raw = raw
	m.body = nil
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		m.body = parsed
	}
}

// Body 解析后的报文，非 JSON 对象时为 nil
func (m *QueueMessage) Body() map[string]any {
	return m.body
}

func (m *QueueMessage) RawBody() string {
	return m.raw
}

func (m *QueueMessage) MessageID() string {
	return m.messageID
}

func (m *QueueMessage) SetMessageID(id string) {
	m.messageID = id
}

func (m *QueueMessage) ReceiptHandle() string {
	return m.receiptHandle
}

func (m *QueueMessage) SetReceiptHandle(handle string) {
	m.receiptHandle = handle
}

func (m *QueueMessage) Headers() map[string]any {
	return m.headers
}

func (m *QueueMessage) SetHeaders(headers map[string]any) {
	if headers == nil {
		headers = make(map[string]any)
	}
	m.headers = headers
}

func (m *QueueMessage) Header(key string) any {
	return m.headers[key]
}

func (m *QueueMessage) SetHeader(key string, val any) {
	m.headers[key] = val
}

func (m *QueueMessage) Properties() map[string]any {
	return m.properties
}

func (m *QueueMessage) SetProperties(props map[string]any) {
	if props == nil {
		props = make(map[string]any)
	}
	m.properties = props
}

func (m *QueueMessage) Property(key string) any {
	return m.properties[key]
}

func (m *QueueMessage) SetProperty(key string, val any) {
	m.properties[key] = val
}

// Attributes SQS 消息属性（ApproximateReceiveCount 等）
func (m *QueueMessage) Attributes() map[string]string {
	return m.attributes
}

func (m *QueueMessage) SetAttributes(attrs map[string]string) {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	m.attributes = attrs
}

func (m *QueueMessage) DelaySeconds() int32 {
	return m.delaySeconds
}

func (m *QueueMessage) SetDelaySeconds(seconds int32) {
	m.delaySeconds = seconds
}

// MessageGroupID FIFO 队列的分组键
func (m *QueueMessage) MessageGroupID() string {
	return m.messageGroupID
}

func (m *QueueMessage) SetMessageGroupID(id string) {
	m.messageGroupID = id
}

func (m *QueueMessage) MessageDeduplicationID() string {
	return m.messageDeduplicationID
}

func (m *QueueMessage) SetMessageDeduplicationID(id string) {
	m.messageDeduplicationID = id
}

// RequeueVisibilityTimeout nack 时延长可见性的秒数，0 表示用消费者默认值
func (m *QueueMessage) RequeueVisibilityTimeout() int32 {
	return m.requeueVisibilityTimeout
}

func (m *QueueMessage) SetRequeueVisibilityTimeout(seconds int32) {
	m.requeueVisibilityTimeout = seconds
}

func (m *QueueMessage) ReplyTo() string {
	if v, ok := m.headers[headerReplyTo].(string); ok {
		return v
	}
	return ""
}

func (m *QueueMessage) SetReplyTo(replyTo string) {
	m.headers[headerReplyTo] = replyTo
}

func (m *QueueMessage) CorrelationID() string {
	if v, ok := m.headers[headerCorrelationID].(string); ok {
		return v
	}
	return ""
}

func (m *QueueMessage) SetCorrelationID(id string) {
	m.headers[headerCorrelationID] = id
}

func (m *QueueMessage) Timestamp() int64 {
	if v, ok := m.headers[headerTimestamp].(int64); ok {
		return v
	}
	return 0
}

func (m *QueueMessage) SetTimestamp(ts int64) {
	m.headers[headerTimestamp] = ts
}

// marshalPayload 字符串原样透传，其余类型序列化成 JSON
func marshalPayload(payload any) (string, error) {
	if s, ok := payload.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
