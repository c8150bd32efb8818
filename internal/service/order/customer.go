package order

import (
	"context"

	"github.com/gotomicro/ego/core/elog"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/service/notification"
)

// customerService 顾客触发的订单事件，下单、支付核验、取消都通知商家
type customerService struct {
	base
}

func NewCustomerService(sender notification.Sender) Service {
	return &customerService{base: base{
		sender: sender,
		logger: elog.DefaultLogger,
	}}
}

func (s *customerService) Created(ctx context.Context, order domain.Order, transactionID string) error {
	seller := order.Seller
	title := "New Order"
	body := "You have a new order: " + order.Reference
	data := map[string]any{
		"user_id":        seller.User.ID,
		"order_id":       order.ID,
		"transaction_id": transactionID,
		"title":          title,
		"body":           body,
		"screen":         "order_details",
	}
	s.record(ctx, seller.UserID, order, title, body, data)
	data["seller_id"] = seller.ID
	return s.notify(ctx, seller.User, data, domain.Metadata{
		Title:  title,
		Body:   body,
		Event:  "seller_new_order",
		Status: "created",
	})
}

func (s *customerService) Verified(ctx context.Context, order domain.Order, transactionID string) error {
	seller := order.Seller
	title := "Order Verify"
	body := "Order " + order.Reference + " has been verified"
	data := map[string]any{
		"user_id":        seller.ID,
		"order_id":       order.ID,
		"transaction_id": transactionID,
		"title":          title,
		"body":           body,
	}
	return s.notify(ctx, seller.User, data, domain.Metadata{
		Title:  title,
		Body:   body,
		Event:  "verify_order",
		Status: "verified",
	})
}

func (s *customerService) Canceled(ctx context.Context, order domain.Order, transactionID, reason string) error {
	seller := order.Seller
	title := "Order Cancellation"
	body := "Order " + order.Reference + " has been cancelled, reason: " + reason
	data := map[string]any{
		"user_id":        seller.UserID,
		"order_id":       order.ID,
		"transaction_id": transactionID,
		"title":          title,
		"body":           body,
		"seller_id":      seller.ID,
	}
	return s.notify(ctx, seller.User, data, domain.Metadata{
		Title:  title,
		Body:   body,
		Event:  "order_canceled",
		Status: "canceled",
	})
}

// Approved 商家接单对顾客侧只记日志，推送由商家实现负责
func (s *customerService) Approved(ctx context.Context, order domain.Order, _ []int64) error {
	s.logger.Info("订单已接单", elog.Int64("orderID", order.ID))
	return nil
}

func (s *customerService) Ready(context.Context, domain.Order) error {
	return nil
}

func (s *customerService) Delivered(context.Context, domain.Order) error {
	return nil
}

func (s *customerService) Rejected(context.Context, domain.Order, domain.Rider) error {
	return nil
}

func (s *customerService) Pickup(context.Context, domain.Order) error {
	return nil
}

func (s *customerService) Arrived(context.Context, domain.Order, string) error {
	return nil
}

func (s *customerService) Accepted(context.Context, domain.Order) error {
	return notPermitted("customer", "accepted")
}

func (s *customerService) Delayed(context.Context, domain.Order, int) error {
	return notPermitted("customer", "delayed")
}
