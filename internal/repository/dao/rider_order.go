package dao

import (
	"context"
	"time"

	"github.com/ego-component/egorm"
)

// RiderOrderRequest 派单请求表，一条记录对应某次波次里发给一个骑手的接单邀请
type RiderOrderRequest struct {
	ID      int64 `gorm:"primaryKey;autoIncrement"`
	OrderID int64 `gorm:"type:BIGINT;index:idx_order_id"`
	RiderID int64 `gorm:"type:BIGINT;index:idx_rider_id"`
	Status  int   `gorm:"type:TINYINT;comment:'0-待响应'"`
	Ctime   int64
	Utime   int64
}

// TableName 重命名表
func (RiderOrderRequest) TableName() string {
	return "rider_order_requests"
}

type RiderOrderRequestDAO interface {
	// BatchCreate 一次波次的所有请求一条 INSERT 落库
	BatchCreate(ctx context.Context, requests []RiderOrderRequest) error
	// GetByOrderID 取订单的全部派单请求，拿数据库生成的主键
	GetByOrderID(ctx context.Context, orderID int64) ([]RiderOrderRequest, error)
}

type riderOrderRequestDAO struct {
	db *egorm.Component
}

func NewRiderOrderRequestDAO(db *egorm.Component) RiderOrderRequestDAO {
	return &riderOrderRequestDAO{db: db}
}

func (d *riderOrderRequestDAO) BatchCreate(ctx context.Context, requests []RiderOrderRequest) error {
	if len(requests) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	for i := range requests {
		requests[i].Ctime = now
		requests[i].Utime = now
	}
	return d.db.WithContext(ctx).Create(&requests).Error
}

func (d *riderOrderRequestDAO) GetByOrderID(ctx context.Context, orderID int64) ([]RiderOrderRequest, error) {
	var requests []RiderOrderRequest
	err := d.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
