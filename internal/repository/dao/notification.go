package dao

import (
	"context"
	"time"

	"github.com/ego-component/egorm"
)

// Notification 通知记录表
type Notification struct {
	ID      uint64 `gorm:"primaryKey;comment:'雪花算法ID'"`
	UserID  int64  `gorm:"type:BIGINT;NOT NULL;index:idx_user_id"`
	OrderID int64  `gorm:"type:BIGINT;index:idx_order_id"`
	Title   string `gorm:"type:VARCHAR(256);NOT NULL"`
	Body    string `gorm:"type:TEXT;NOT NULL"`
	Data    string `gorm:"type:JSON;comment:'附加负载'"`
	Ctime   int64
	Utime   int64
}

// TableName 重命名表
func (Notification) TableName() string {
	return "notifications"
}

type NotificationDAO interface {
	Create(ctx context.Context, data Notification) (Notification, error)
	GetByUserID(ctx context.Context, userID int64, offset, limit int) ([]Notification, error)
}

type notificationDAO struct {
	db *egorm.Component
}

func NewNotificationDAO(db *egorm.Component) NotificationDAO {
	return &notificationDAO{db: db}
}

func (d *notificationDAO) Create(ctx context.Context, data Notification) (Notification, error) {
	now := time.Now().UnixMilli()
	data.Ctime = now
	data.Utime = now
	err := d.db.WithContext(ctx).Create(&data).Error
	if err != nil {
		return Notification{}, err
	}
	return data, nil
}

func (d *notificationDAO) GetByUserID(ctx context.Context, userID int64, offset, limit int) ([]Notification, error) {
	var records []Notification
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
