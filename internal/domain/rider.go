package domain

// 骑手状态
const (
	RiderStatusActive = 1
)

// 派单请求状态
const (
	RiderOrderRequestPending = 0
)

// Rider 骑手
type Rider struct {
	ID               int64
	UserID           int64
	FullName         string
	Status           int
	CurrentLatitude  float64
	CurrentLongitude float64
	// Distance 距商家的公里数，只在附近骑手查询结果里有值
	Distance float64
}

// RiderOrderRequest 一次派单波次里发给某个骑手的接单请求
type RiderOrderRequest struct {
	ID      int64
	OrderID int64
	RiderID int64
	Status  int
}
