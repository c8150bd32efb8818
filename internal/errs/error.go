package errs

import (
	"errors"
)

// 定义统一的错误类型
var (
	ErrInvalidParameter             = errors.New("参数错误")
	ErrSendNotificationFailed       = errors.New("发送通知失败")
	ErrNotificationIDGenerateFailed = errors.New("通知ID生成失败")
	ErrCreateNotificationFailed     = errors.New("创建通知失败")

	ErrInvalidMessage   = errors.New("消息格式非法")
	ErrUnknownEvent     = errors.New("未知的订单事件")
	ErrUnknownRole      = errors.New("未知的角色")
	ErrRoleNotPermitted = errors.New("角色无权执行该订单操作")

	ErrFirestoreRequest = errors.New("Firestore 请求失败")

	ErrNoAvailableRider = errors.New("附近没有可用骑手")

	ErrPublishFailed = errors.New("消息发布失败")
	ErrNoWorkers     = errors.New("未配置任何 worker")
)
