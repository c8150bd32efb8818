package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gotomicro/ego/core/elog"

	"github.com/vervana-io/fastfast-common/internal/consumer"
	"github.com/vervana-io/fastfast-common/internal/errs"
	"github.com/vervana-io/fastfast-common/internal/pkg/idempotent"
	ordersvc "github.com/vervana-io/fastfast-common/internal/service/order"
)

// OrderEventWorker 消费订单事件队列，按角色和事件路由到对应的订单服务。
// 解析不了的消息和角色无权限的消息都按毒消息直接 ack，处理失败才 nack 重投
type OrderEventWorker struct {
	consumer *consumer.Consumer
	services ordersvc.Services
	idem     idempotent.Service
	logger   *elog.Component
}

func NewOrderEventWorker(c *consumer.Consumer, services ordersvc.Services, idem idempotent.Service) *OrderEventWorker {
	return &OrderEventWorker{
		consumer: c,
		services: services,
		idem:     idem,
		logger:   elog.DefaultLogger,
	}
}

func (w *OrderEventWorker) Handle(ctx context.Context) error {
	return w.consumer.Start(ctx, w.handleMessage)
}

func (w *OrderEventWorker) handleMessage(ctx context.Context, msg *consumer.QueueMessage) (bool, error) {
	marked := false
	if id := msg.MessageID(); id != "" && w.idem != nil {
		seen, err := w.idem.Exists(ctx, id)
		switch {
		case err != nil:
			// 幂等存储不可用时照常处理，宁可重复不可丢
			w.logger.Warn("幂等检查失败", elog.FieldErr(err), elog.String("messageID", id))
		case seen:
			w.logger.Info("跳过重复消息", elog.String("messageID", id))
			return true, nil
		default:
			marked = true
		}
	}

	var event orderEvent
	if err := json.Unmarshal([]byte(msg.RawBody()), &event); err != nil {
		w.logger.Error("消息体解析失败，丢弃",
			elog.FieldErr(err),
			elog.String("messageID", msg.MessageID()))
		return true, nil
	}

	err := w.dispatch(ctx, event)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrRoleNotPermitted),
		errors.Is(err, errs.ErrUnknownRole),
		errors.Is(err, errs.ErrUnknownEvent),
		errors.Is(err, errs.ErrInvalidMessage):
		// 重投也不会变合法，直接 ack
		w.logger.Error("丢弃非法事件",
			elog.FieldErr(err),
			elog.String("event", event.Event),
			elog.String("role", event.Role))
		return true, nil
	default:
		// 标记是处理前打的，nack 重投前必须撤销，不然重投的消息会被当重复 ack 掉
		if marked {
			if rmErr := w.idem.Remove(ctx, msg.MessageID()); rmErr != nil {
				w.logger.Warn("撤销幂等标记失败",
					elog.FieldErr(rmErr),
					elog.String("messageID", msg.MessageID()))
			}
		}
		w.logger.Error("订单事件处理失败",
			elog.FieldErr(err),
			elog.String("event", event.Event),
			elog.Int64("orderID", event.Order.ID))
		return false, err
	}
}

func (w *OrderEventWorker) dispatch(ctx context.Context, event orderEvent) error {
	svc, err := w.services.ForRole(event.Role)
	if err != nil {
		return err
	}
	order := event.Order.toDomain()
	switch event.Event {
	case "created":
		return svc.Created(ctx, order, string(event.TransactionID))
	case "verified":
		return svc.Verified(ctx, order, string(event.TransactionID))
	case "approved":
		return svc.Approved(ctx, order, event.Exclude)
	case "canceled":
		return svc.Canceled(ctx, order, string(event.TransactionID), event.Reason)
	case "rejected":
		rider := event.Rider.toDomain()
		if rider == nil {
			return fmt.Errorf("%w: rejected 事件缺少骑手", errs.ErrInvalidMessage)
		}
		return svc.Rejected(ctx, order, *rider)
	case "delivered":
		return svc.Delivered(ctx, order)
	case "ready":
		return svc.Ready(ctx, order)
	case "delayed":
		return svc.Delayed(ctx, order, int(event.Time))
	case "accepted":
		return svc.Accepted(ctx, order)
	case "pickup":
		return svc.Pickup(ctx, order)
	case "arrived":
		return svc.Arrived(ctx, order, event.Place)
	default:
		return fmt.Errorf("%w: %q", errs.ErrUnknownEvent, event.Event)
	}
}
