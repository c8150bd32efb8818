package domain

// Address 地址
type Address struct {
	City           string
	HouseNumber    string
	Street         string
	NearestBusStop string
	Latitude       float64
	Longitude      float64
}

// Line 门牌号 + 街道的简写，用在通知文案里
func (a Address) Line() string {
	return a.HouseNumber + " " + a.Street + " "
}

// OrderProduct 订单里的一个商品项
type OrderProduct struct {
	Quantity int
	Name     string
	// PrepTime 备餐时长（分钟）
	PrepTime int
}

// Seller 商家
type Seller struct {
	ID             int64
	UserID         int64
	Name           string
	TradingName    string
	User           User
	PrimaryAddress *Address
}

// Customer 顾客
type Customer struct {
	ID     int64
	UserID int64
	User   User
}

// Order 订单。通知分发只读取订单，不修改订单状态
type Order struct {
	ID        int64
	Reference string
	Status    int

	Seller   Seller
	Customer Customer
	Rider    *Rider

	TotalAmount float64
	SubTotal    float64
	DeliveryFee float64

	DeliveryLatitude  float64
	DeliveryLongitude float64
	// DeliveryStreet 下单时填的配送街道
	DeliveryStreet string

	// 礼物单收货人信息优先于顾客地址
	IsGift              bool
	ReceiverCity        string
	ReceiverHouseNumber string
	ReceiverStreet      string
	ReceiverLatitude    float64
	ReceiverLongitude   float64

	// Address 顾客收货地址，可能为空
	Address *Address

	Products []OrderProduct
}

// DeliveryAddress 按是否礼物单取收货地址
func (o Order) DeliveryAddress() Address {
	if o.IsGift {
		return Address{
			City:        o.ReceiverCity,
			HouseNumber: o.ReceiverHouseNumber,
			Street:      o.ReceiverStreet,
			Latitude:    o.ReceiverLatitude,
			Longitude:   o.ReceiverLongitude,
		}
	}
	if o.Address != nil {
		return *o.Address
	}
	return Address{}
}
