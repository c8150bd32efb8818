package dao

import (
	"context"

	"github.com/ego-component/egorm"
)

// Rider 骑手表
type Rider struct {
	ID               int64   `gorm:"primaryKey;autoIncrement"`
	UserID           int64   `gorm:"type:BIGINT;index:idx_user_id"`
	FullName         string  `gorm:"type:VARCHAR(191)"`
	Status           int     `gorm:"type:TINYINT;index:idx_status;comment:'1-可接单'"`
	CurrentLatitude  float64 `gorm:"type:DOUBLE"`
	CurrentLongitude float64 `gorm:"type:DOUBLE"`
	Ctime            int64
	Utime            int64
}

// TableName 重命名表
func (Rider) TableName() string {
	return "riders"
}

// RiderWithDistance 附近骑手查询结果，附带距商家的公里数
type RiderWithDistance struct {
	Rider
	Distance float64
}

type RiderDAO interface {
	// FindNearest 查半径内可接单的骑手，按距离升序
	FindNearest(ctx context.Context, latitude, longitude, radiusKm float64, excludeIDs []int64) ([]RiderWithDistance, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Rider, error)
}

type riderDAO struct {
	db *egorm.Component
}

func NewRiderDAO(db *egorm.Component) RiderDAO {
	return &riderDAO{db: db}
}

// haversineSelect 球面距离，单位公里
const haversineSelect = "riders.*, (6371 * ACOS(COS(RADIANS(?)) * COS(RADIANS(current_latitude)) * " +
	"COS(RADIANS(current_longitude) - RADIANS(?)) + SIN(RADIANS(?)) * SIN(RADIANS(current_latitude)))) AS distance"

func (d *riderDAO) FindNearest(ctx context.Context, latitude, longitude, radiusKm float64, excludeIDs []int64) ([]RiderWithDistance, error) {
	var riders []RiderWithDistance
	tx := d.db.WithContext(ctx).
		Model(&Rider{}).
		Select(haversineSelect, latitude, longitude, latitude).
		Where("status = ?", 1)
	if len(excludeIDs) > 0 {
		tx = tx.Where("id NOT IN ?", excludeIDs)
	}
	err := tx.Having("distance < ?", radiusKm).
		Order("distance ASC").
		Find(&riders).Error
	if err != nil {
		return nil, err
	}
	return riders, nil
}

func (d *riderDAO) GetByIDs(ctx context.Context, ids []int64) ([]Rider, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var riders []Rider
	err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&riders).Error
	if err != nil {
		return nil, err
	}
	return riders, nil
}
