package order

import (
	"context"
	"fmt"

	"github.com/gotomicro/ego/core/elog"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/service/notification"
)

// sellerService 商家触发的订单事件，核验、接单、备餐完成都通知顾客或骑手
type sellerService struct {
	base
}

func NewSellerService(sender notification.Sender) Service {
	return &sellerService{base: base{
		sender: sender,
		logger: elog.DefaultLogger,
	}}
}

func (s *sellerService) Verified(ctx context.Context, order domain.Order, _ string) error {
	customer := order.Customer
	seller := order.Seller
	title := "Order Verification"
	body := "Your Order " + order.Reference + " needs your verification"
	data := map[string]any{
		"user_id":  customer.UserID,
		"order_id": order.ID,
		"title":    title,
		"body":     body,
	}
	s.record(ctx, customer.UserID, order, title, body, data)
	data["seller_id"] = seller.ID
	data["seller_name"] = seller.Name
	return s.notify(ctx, customer.User, data, domain.Metadata{
		Title:  title,
		Body:   body,
		Event:  "verify_order",
		Status: "verified",
	})
}

// Approved 先告知顾客商家已接单，再发起派单波次
func (s *sellerService) Approved(ctx context.Context, order domain.Order, exclude []int64) error {
	customer := order.Customer
	title := "Order Confirmed"
	body := order.Seller.Name + " has accepted your order and is now preparing it"
	data := map[string]any{
		"title":    title,
		"body":     body,
		"order_id": order.ID,
		"type":     "order_accepted",
	}
	if err := s.notify(ctx, customer.User, data, domain.Metadata{
		Title:  title,
		Body:   body,
		Event:  "order_approved",
		Status: "approved",
	}); err != nil {
		s.logger.Warn("接单通知顾客失败", elog.FieldErr(err), elog.Int64("orderID", order.ID))
	}
	_, err := s.sender.SendOrderApprovedNotification(ctx, order, exclude)
	return err
}

func (s *sellerService) Canceled(ctx context.Context, order domain.Order, transactionID, reason string) error {
	customer := order.Customer
	title := "Order Cancellation"
	body := "Order " + order.Reference + " has been cancelled, reason: " + reason
	data := map[string]any{
		"user_id":        customer.User.ID,
		"order_id":       order.ID,
		"transaction_id": transactionID,
		"title":          title,
		"body":           body,
		"seller_id":      order.Seller.ID,
	}
	s.record(ctx, customer.UserID, order, title, body, data)
	return s.notify(ctx, customer.User, data, domain.Metadata{
		Title:  title,
		Body:   body,
		Event:  "order_canceled",
		Status: "canceled",
	})
}

// Ready 备餐完成。已有骑手则喊骑手取餐，还没骑手就当作刚接单重新派
func (s *sellerService) Ready(ctx context.Context, order domain.Order) error {
	rider := order.Rider
	if rider == nil {
		return s.Approved(ctx, order, nil)
	}
	seller := order.Seller

	products := make([]any, 0, len(order.Products))
	for _, product := range order.Products {
		products = append(products, map[string]any{
			"Quantity": product.Quantity,
			"name":     product.Name,
		})
	}

	deliveryAddress := order.DeliveryAddress()
	customerAddress := map[string]any{
		"city":         deliveryAddress.City,
		"house_number": deliveryAddress.HouseNumber,
		"latitude":     deliveryAddress.Latitude,
		"longitude":    deliveryAddress.Longitude,
		"street":       deliveryAddress.Street,
	}

	sellerAddress := map[string]any{}
	addressLine := ""
	if addr := seller.PrimaryAddress; addr != nil {
		sellerAddress = map[string]any{
			"city":             addr.City,
			"house_number":     addr.HouseNumber,
			"latitude":         addr.Latitude,
			"longitude":        addr.Longitude,
			"street":           addr.Street,
			"nearest_bus_stop": addr.NearestBusStop,
		}
		addressLine = addr.Line()
	}

	orderInfo := map[string]any{
		"notification_name": "order_pickup",
		"status":            order.Status,
		"address":           sellerAddress,
		"customer_address":  customerAddress,
		"amount":            order.TotalAmount,
		"sub_total":         order.SubTotal,
		"delivery_fee":      order.DeliveryFee,
		"order_id":          order.ID,
		"orders":            products,
		"title":             seller.Name + " has an order",
		"trading_name":      seller.TradingName,
	}

	title := "Order Pick Up"
	body := fmt.Sprintf("Order %s for %s at %s is ready for pick up", order.Reference, seller.Name, addressLine)
	info, err := marshalOrderInfo(orderInfo)
	if err != nil {
		return err
	}
	data := map[string]any{
		"user_id":  rider.UserID,
		"order_id": order.ID,
		"rider_id": rider.ID,
		"title":    title,
		"body":     body,
		"data":     info,
	}
	return s.notify(ctx, domain.User{ID: rider.UserID, Type: 3}, data, domain.Metadata{
		Title: title,
		Body:  body,
	})
}

func (s *sellerService) Delayed(ctx context.Context, order domain.Order, minutes int) error {
	customer := order.Customer
	title := "Order Delay"
	body := fmt.Sprintf("Preparation of order %s by %s would be delayed by %d minutes.",
		order.Reference, order.Seller.Name, minutes)
	data := map[string]any{
		"user_id":  customer.UserID,
		"order_id": order.ID,
		"title":    title,
		"body":     body,
	}
	s.record(ctx, customer.UserID, order, title, body, data)
	data["seller_id"] = order.Seller.ID
	data["seller_name"] = order.Seller.Name
	return s.notify(ctx, customer.User, data, domain.Metadata{
		Title: title,
		Body:  body,
	})
}

func (s *sellerService) Created(context.Context, domain.Order, string) error {
	return notPermitted("seller", "created")
}

func (s *sellerService) Rejected(context.Context, domain.Order, domain.Rider) error {
	return notPermitted("seller", "rejected")
}

func (s *sellerService) Delivered(context.Context, domain.Order) error {
	return notPermitted("seller", "delivered")
}

func (s *sellerService) Accepted(context.Context, domain.Order) error {
	return notPermitted("seller", "accepted")
}

func (s *sellerService) Pickup(context.Context, domain.Order) error {
	return notPermitted("seller", "pickup")
}

func (s *sellerService) Arrived(context.Context, domain.Order, string) error {
	return notPermitted("seller", "arrived")
}
