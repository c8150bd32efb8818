package worker

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/ecodeclub/ekit/slice"

	"github.com/vervana-io/fastfast-common/internal/domain"
)

// 上游是 PHP 服务，数字字段可能是数字也可能是字符串，
// 布尔字段可能是 0/1，这里统一做宽松解码

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = flexString(raw)
		return nil
	}
	*s = flexString(data)
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*f = flexFloat(parsed)
		return nil
	}
	var parsed float64
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*f = flexFloat(parsed)
	return nil
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1", `"1"`, `"true"`:
		*b = true
	default:
		*b = false
	}
	return nil
}

type addressPayload struct {
	City           string     `json:"city"`
	HouseNumber    flexString `json:"house_number"`
	Street         string     `json:"street"`
	NearestBusStop string     `json:"nearest_bus_stop"`
	Latitude       flexFloat  `json:"latitude"`
	Longitude      flexFloat  `json:"longitude"`
}

func (a *addressPayload) toDomain() *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		City:           a.City,
		HouseNumber:    string(a.HouseNumber),
		Street:         a.Street,
		NearestBusStop: a.NearestBusStop,
		Latitude:       float64(a.Latitude),
		Longitude:      float64(a.Longitude),
	}
}

type userPayload struct {
	ID          int64  `json:"id"`
	Type        int    `json:"type"`
	Name        string `json:"name"`
	DeviceToken string `json:"device_token"`
	DeviceType  string `json:"device_type"`
}

func (u userPayload) toDomain() domain.User {
	return domain.User{
		ID:          u.ID,
		Type:        u.Type,
		Name:        u.Name,
		DeviceToken: u.DeviceToken,
		DeviceType:  u.DeviceType,
	}
}

type sellerPayload struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Name           string          `json:"name"`
	TradingName    string          `json:"trading_name"`
	User           userPayload     `json:"user"`
	PrimaryAddress *addressPayload `json:"primary_address"`
}

type customerPayload struct {
	ID     int64       `json:"id"`
	UserID int64       `json:"user_id"`
	User   userPayload `json:"user"`
}

type riderPayload struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
	Status   int    `json:"status"`
}

func (r *riderPayload) toDomain() *domain.Rider {
	if r == nil {
		return nil
	}
	return &domain.Rider{
		ID:       r.ID,
		UserID:   r.UserID,
		FullName: r.FullName,
		Status:   r.Status,
	}
}

type orderProductPayload struct {
	Quantity int       `json:"quantity"`
	Name     string    `json:"name"`
	PrepTime flexFloat `json:"prep_time"`
}

type orderPayload struct {
	ID                int64                 `json:"id"`
	Reference         string                `json:"reference"`
	Status            int                   `json:"status"`
	Seller            sellerPayload         `json:"seller"`
	Customer          customerPayload       `json:"customer"`
	Rider             *riderPayload         `json:"rider"`
	TotalAmount       flexFloat             `json:"total_amount"`
	SubTotal          flexFloat             `json:"sub_total"`
	DeliveryFee       flexFloat             `json:"delivery_fee"`
	DeliveryLatitude  flexFloat             `json:"delivery_latitude"`
	DeliveryLongitude flexFloat             `json:"delivery_longitude"`
	DeliveryStreet    string                `json:"delivery_street"`
	IsGift            flexBool              `json:"is_gift"`
	ReceiverCity      string                `json:"receiver_city"`
	ReceiverHouse     flexString            `json:"receiver_house_number"`
	ReceiverStreet    string                `json:"receiver_street"`
	ReceiverLatitude  flexFloat             `json:"receiver_latitude"`
	ReceiverLongitude flexFloat             `json:"receiver_longitude"`
	Address           *addressPayload       `json:"address"`
	Products          []orderProductPayload `json:"order_products"`
}

func (o orderPayload) toDomain() domain.Order {
	order := domain.Order{
		ID:        o.ID,
		Reference: o.Reference,
		Status:    o.Status,
		Seller: domain.Seller{
			ID:             o.Seller.ID,
			UserID:         o.Seller.UserID,
			Name:           o.Seller.Name,
			TradingName:    o.Seller.TradingName,
			User:           o.Seller.User.toDomain(),
			PrimaryAddress: o.Seller.PrimaryAddress.toDomain(),
		},
		Customer: domain.Customer{
			ID:     o.Customer.ID,
			UserID: o.Customer.UserID,
			User:   o.Customer.User.toDomain(),
		},
		Rider:               o.Rider.toDomain(),
		TotalAmount:         float64(o.TotalAmount),
		SubTotal:            float64(o.SubTotal),
		DeliveryFee:         float64(o.DeliveryFee),
		DeliveryLatitude:    float64(o.DeliveryLatitude),
		DeliveryLongitude:   float64(o.DeliveryLongitude),
		DeliveryStreet:      o.DeliveryStreet,
		IsGift:              bool(o.IsGift),
		ReceiverCity:        o.ReceiverCity,
		ReceiverHouseNumber: string(o.ReceiverHouse),
		ReceiverStreet:      o.ReceiverStreet,
		ReceiverLatitude:    float64(o.ReceiverLatitude),
		ReceiverLongitude:   float64(o.ReceiverLongitude),
		Address:             o.Address.toDomain(),
	}
	order.Products = slice.Map(o.Products, func(_ int, src orderProductPayload) domain.OrderProduct {
		return domain.OrderProduct{
			Quantity: src.Quantity,
			Name:     src.Name,
			PrepTime: int(src.PrepTime),
		}
	})
	return order
}

// orderEvent 订单事件消息体
type orderEvent struct {
	Event         string        `json:"event"`
	Role          string        `json:"role"`
	TransactionID flexString    `json:"transaction_id"`
	Reason        string        `json:"reason"`
	// Time 延迟分钟数
	Time    flexFloat     `json:"time"`
	Place   string        `json:"place"`
	Exclude []int64       `json:"exclude"`
	Order   orderPayload  `json:"order"`
	Rider   *riderPayload `json:"rider"`
}
