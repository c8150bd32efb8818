package domain

import (
	"fmt"

	"github.com/vervana-io/fastfast-common/internal/errs"
)

// DispatchStatus 单个投递目标的结果状态
type DispatchStatus string

const (
	DispatchSucceeded DispatchStatus = "SUCCEEDED"
	DispatchFailed    DispatchStatus = "FAILED"
)

// DispatchResult 一次分发里单个目标（token、文档、频道事件）的结果
type DispatchResult struct {
	Status DispatchStatus
	// Target token、文档 ID 或频道名
	Target string
	// Response 渠道返回的消息 ID 之类的回执
	Response string
	Error    string
}

func SucceededResult(target, response string) DispatchResult {
	return DispatchResult{Status: DispatchSucceeded, Target: target, Response: response}
}

func FailedResult(target string, err error) DispatchResult {
	r := DispatchResult{Status: DispatchFailed, Target: target}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Metadata 推送元信息：展示文案 + 实时事件名
type Metadata struct {
	Title string
	Body  string
	Event string
	// Channel 覆盖默认的实时频道名，空值用全局频道
	Channel string
	Status  string
}

// Notification 落库的通知记录
type Notification struct {
	ID      uint64
	UserID  int64
	OrderID int64
	Title   string
	Body    string
	// Data 附加负载，原样序列化保存
	Data map[string]any
}

func (n Notification) Validate() error {
	if n.UserID <= 0 {
		return fmt.Errorf("%w: UserID = %d", errs.ErrInvalidParameter, n.UserID)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: Title 不能为空", errs.ErrInvalidParameter)
	}
	if n.Body == "" {
		return fmt.Errorf("%w: Body 不能为空", errs.ErrInvalidParameter)
	}
	return nil
}
