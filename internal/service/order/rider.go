package order

import (
	"context"
	"fmt"

	"github.com/gotomicro/ego/core/elog"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
	"github.com/vervana-io/fastfast-common/internal/service/notification"
)

// riderService 骑手触发的订单事件：接单、拒单、取餐、到店、送达
type riderService struct {
	base
}

func NewRiderService(sender notification.Sender) Service {
	return &riderService{base: base{
		sender: sender,
		logger: elog.DefaultLogger,
	}}
}

// Accepted 骑手接受配送，顾客和商家各推一条，再广播一条
func (s *riderService) Accepted(ctx context.Context, order domain.Order) error {
	rider := order.Rider
	if rider == nil {
		return fmt.Errorf("%w: 订单 %d 没有骑手", errs.ErrInvalidParameter, order.ID)
	}
	customer := order.Customer
	seller := order.Seller
	title := "Delivery Acceptance"
	body := fmt.Sprintf("%s has accepted the request to deliver the order %s and is on the way.",
		rider.FullName, order.Reference)
	data := map[string]any{
		"user_id":  customer.UserID,
		"order_id": order.ID,
		"title":    title,
		"body":     body,
	}
	meta := domain.Metadata{
		Title: title,
		Body:  body,
		Event: "customer_pick_up_order",
	}
	if err := s.notify(ctx, customer.User, data, meta); err != nil {
		s.logger.Warn("接受配送通知顾客失败", elog.FieldErr(err), elog.Int64("orderID", order.ID))
	}
	if err := s.notify(ctx, seller.User, data, meta); err != nil {
		s.logger.Warn("接受配送通知商家失败", elog.FieldErr(err), elog.Int64("orderID", order.ID))
	}
	return s.sender.SendAllMessages(ctx, []domain.User{customer.User, seller.User},
		data, title, body, "rider_delivery_accept")
}

// Rejected 骑手拒单，广播后把该骑手排除出下一轮派单
func (s *riderService) Rejected(ctx context.Context, order domain.Order, rider domain.Rider) error {
	customer := order.Customer
	seller := order.Seller
	title := "Delivery Rejection"
	body := fmt.Sprintf("%s has rejected the request to deliver the order %s",
		rider.FullName, order.Reference)
	data := map[string]any{
		"user_id":  customer.UserID,
		"order_id": order.ID,
		"title":    title,
		"body":     body,
	}
	if err := s.sender.SendAllMessages(ctx, []domain.User{customer.User, seller.User},
		data, title, body, "rider_delivery_rejected"); err != nil {
		s.logger.Warn("拒单广播失败", elog.FieldErr(err), elog.Int64("orderID", order.ID))
	}
	return s.Approved(ctx, order, []int64{rider.ID})
}

func (s *riderService) Delivered(ctx context.Context, order domain.Order) error {
	rider := order.Rider
	if rider == nil {
		return fmt.Errorf("%w: 订单 %d 没有骑手", errs.ErrInvalidParameter, order.ID)
	}
	customer := order.Customer
	seller := order.Seller
	title := "Order Delivered"
	body := "Order " + order.Reference + " has been delivered successfully."
	data := map[string]any{
		"user_id":   customer.UserID,
		"order_id":  order.ID,
		"title":     title,
		"body":      body,
		"rider_id":  rider.ID,
		"seller_id": seller.ID,
	}
	return s.sender.SendAllMessages(ctx, []domain.User{customer.User, seller.User},
		data, title, body, "rider_order_delivered")
}

// Approved 骑手侧的接单即重新发起派单波次
func (s *riderService) Approved(ctx context.Context, order domain.Order, exclude []int64) error {
	_, err := s.sender.SendOrderApprovedNotification(ctx, order, exclude)
	return err
}

func (s *riderService) Pickup(ctx context.Context, order domain.Order) error {
	rider := order.Rider
	if rider == nil {
		return fmt.Errorf("%w: 订单 %d 没有骑手", errs.ErrInvalidParameter, order.ID)
	}
	customer := order.Customer
	title := "Order Pick up"
	body := fmt.Sprintf("Your Order %s has been picked up by %s will is on the way",
		order.Reference, rider.FullName)
	data := map[string]any{
		"user_id":  customer.UserID,
		"order_id": order.ID,
		"title":    title,
		"body":     body,
	}
	s.record(ctx, customer.UserID, order, title, body, data)
	data["customer_id"] = customer.ID
	return s.notify(ctx, customer.User, data, domain.Metadata{
		Title: title,
		Body:  body,
		Event: "customer_pick_up_order",
	})
}

// Arrived 到店通知商家，到达通知顾客，其余位置忽略
func (s *riderService) Arrived(ctx context.Context, order domain.Order, place string) error {
	rider := order.Rider
	if rider == nil {
		return fmt.Errorf("%w: 订单 %d 没有骑手", errs.ErrInvalidParameter, order.ID)
	}
	title := "Rider Arrival"
	switch place {
	case "seller":
		seller := order.Seller
		body := fmt.Sprintf("%s has arrived to pick up Order: %s", rider.FullName, order.Reference)
		data := map[string]any{
			"user_id":  seller.UserID,
			"order_id": order.ID,
			"title":    title,
			"body":     body,
		}
		return s.notify(ctx, seller.User, data, domain.Metadata{
			Title: title,
			Body:  body,
			Event: "river_arrived",
		})
	case "customer":
		customer := order.Customer
		body := fmt.Sprintf("%s has arrived with your Order: %s", rider.FullName, order.Reference)
		data := map[string]any{
			"user_id":  customer.UserID,
			"order_id": order.ID,
			"title":    title,
			"body":     body,
		}
		return s.notify(ctx, customer.User, data, domain.Metadata{
			Title: title,
			Body:  body,
			Event: "river_arrived",
		})
	default:
		return nil
	}
}

// Delayed 延迟事件对骑手侧无动作
func (s *riderService) Delayed(context.Context, domain.Order, int) error {
	return nil
}

func (s *riderService) Created(context.Context, domain.Order, string) error {
	return notPermitted("rider", "created")
}

func (s *riderService) Verified(context.Context, domain.Order, string) error {
	return notPermitted("rider", "verified")
}

func (s *riderService) Canceled(context.Context, domain.Order, string, string) error {
	return notPermitted("rider", "canceled")
}

func (s *riderService) Ready(context.Context, domain.Order) error {
	return notPermitted("rider", "ready")
}
