package order

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gotomicro/ego/core/elog"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
	"github.com/vervana-io/fastfast-common/internal/service/notification"
)

// Service 订单事件通知。同一个事件按触发角色走不同的实现，
// 角色没有权限触发的事件返回 ErrRoleNotPermitted
type Service interface {
	// Created 订单创建，通知商家接单
	Created(ctx context.Context, order domain.Order, transactionID string) error
	// Verified 支付核验完成
	Verified(ctx context.Context, order domain.Order, transactionID string) error
	// Approved 商家接单，触发派单波次。exclude 为本轮跳过的骑手
	Approved(ctx context.Context, order domain.Order, exclude []int64) error
	// Canceled 订单取消
	Canceled(ctx context.Context, order domain.Order, transactionID, reason string) error
	// Rejected 骑手拒单，重新派单
	Rejected(ctx context.Context, order domain.Order, rider domain.Rider) error
	// Delivered 订单送达
	Delivered(ctx context.Context, order domain.Order) error
	// Ready 备餐完成，通知骑手取餐
	Ready(ctx context.Context, order domain.Order) error
	// Delayed 备餐延迟
	Delayed(ctx context.Context, order domain.Order, minutes int) error
	// Accepted 骑手接受配送
	Accepted(ctx context.Context, order domain.Order) error
	// Pickup 骑手取餐完成
	Pickup(ctx context.Context, order domain.Order) error
	// Arrived 骑手到店或到达顾客处，place 取 seller / customer
	Arrived(ctx context.Context, order domain.Order, place string) error
}

// Services 三个角色实现的汇总，按消息里的角色字段路由
type Services struct {
	Customer Service
	Seller   Service
	Rider    Service
}

func NewServices(sender notification.Sender) Services {
	return Services{
		Customer: NewCustomerService(sender),
		Seller:   NewSellerService(sender),
		Rider:    NewRiderService(sender),
	}
}

// ForRole 按角色取实现
func (s Services) ForRole(role string) (Service, error) {
	switch domain.UserType(role) {
	case domain.UserTypeCustomer:
		return s.Customer, nil
	case domain.UserTypeSeller:
		return s.Seller, nil
	case domain.UserTypeRider:
		return s.Rider, nil
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownRole, role)
	}
}

// base 各角色实现共用的依赖
type base struct {
	sender notification.Sender
	logger *elog.Component
}

// record 落通知记录。落库失败只记日志，不阻塞推送
func (b *base) record(ctx context.Context, userID int64, order domain.Order, title, body string, data map[string]any) {
	_, err := b.sender.CreateNotification(ctx, domain.Notification{
		UserID:  userID,
		OrderID: order.ID,
		Title:   title,
		Body:    body,
		Data:    data,
	})
	if err != nil {
		b.logger.Warn("通知记录落库失败",
			elog.FieldErr(err),
			elog.Int64("userID", userID),
			elog.Int64("orderID", order.ID))
	}
}

func (b *base) notify(ctx context.Context, user domain.User, data map[string]any, meta domain.Metadata) error {
	_, err := b.sender.SendNotification(ctx, user, data, meta)
	return err
}

func notPermitted(role, event string) error {
	return fmt.Errorf("%w: %s 不能触发 %s", errs.ErrRoleNotPermitted, role, event)
}

// marshalOrderInfo 订单摘要序列化后整体塞进推送负载的 data 字段
func marshalOrderInfo(info map[string]any) (string, error) {
	raw, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("%w: 订单摘要序列化失败: %w", errs.ErrInvalidParameter, err)
	}
	return string(raw), nil
}
