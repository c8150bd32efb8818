package dao

import (
	"context"
	"errors"
	"time"

	"github.com/ego-component/egorm"
	"gorm.io/gorm"
)

// UserDevice 用户推送设备表
type UserDevice struct {
	ID                     int64  `gorm:"primaryKey;autoIncrement"`
	UserID                 int64  `gorm:"type:BIGINT;index:idx_user_id;comment:'设备归属用户'"`
	DeviceToken            string `gorm:"type:VARCHAR(512);index:idx_device_token;comment:'推送token'"`
	DeviceType             string `gorm:"type:VARCHAR(16);comment:'平台：ios/android'"`
	DeviceID               string `gorm:"type:VARCHAR(191);index:idx_device_id;comment:'客户端设备标识'"`
	NotificationEnabled    bool   `gorm:"default:true"`
	NotificationAuthorized bool   `gorm:"default:true"`
	Ctime                  int64
	Utime                  int64
	DeletedAt              gorm.DeletedAt `gorm:"index"`
}

// TableName 重命名表
func (UserDevice) TableName() string {
	return "user_devices"
}

type UserDeviceDAO interface {
	// GetEnabledByUserID 某个用户所有启用中的设备
	GetEnabledByUserID(ctx context.Context, userID int64) ([]UserDevice, error)
	// GetEnabledByUserIDs 一批用户启用中的设备
	GetEnabledByUserIDs(ctx context.Context, userIDs []int64) ([]UserDevice, error)
	// Register 注册或恢复一台设备，token 被其它记录占用时顶掉旧记录
	Register(ctx context.Context, device UserDevice) (UserDevice, error)
	// Disable 按用户加设备标识或 token 停用设备，返回受影响行数
	Disable(ctx context.Context, userID int64, deviceID, token string) (int64, error)
}

type userDeviceDAO struct {
	db *egorm.Component
}

func NewUserDeviceDAO(db *egorm.Component) UserDeviceDAO {
	return &userDeviceDAO{db: db}
}

func (d *userDeviceDAO) GetEnabledByUserID(ctx context.Context, userID int64) ([]UserDevice, error) {
	var devices []UserDevice
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND notification_enabled = ?", userID, true).
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (d *userDeviceDAO) GetEnabledByUserIDs(ctx context.Context, userIDs []int64) ([]UserDevice, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var devices []UserDevice
	err := d.db.WithContext(ctx).
		Where("user_id IN ? AND notification_enabled = ?", userIDs, true).
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (d *userDeviceDAO) Register(ctx context.Context, device UserDevice) (UserDevice, error) {
	now := time.Now().UnixMilli()
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := d.findExisting(tx, device)
		if err != nil {
			return err
		}
		if existing == nil {
			device.Ctime = now
			device.Utime = now
			return tx.Create(&device).Error
		}
		// token 挪到了另一台设备上，旧 token 记录直接物理删掉
		if existing.DeviceToken != device.DeviceToken {
			err = tx.Unscoped().
				Where("device_token = ? AND id != ?", device.DeviceToken, existing.ID).
				Delete(&UserDevice{}).Error
			if err != nil {
				return err
			}
		}
		existing.UserID = device.UserID
		existing.DeviceToken = device.DeviceToken
		existing.DeviceType = device.DeviceType
		existing.DeviceID = device.DeviceID
		existing.NotificationEnabled = device.NotificationEnabled
		existing.NotificationAuthorized = device.NotificationAuthorized
		existing.Utime = now
		// 软删除过的记录注册时恢复
		existing.DeletedAt = gorm.DeletedAt{}
		if err := tx.Unscoped().Save(existing).Error; err != nil {
			return err
		}
		device = *existing
		return nil
	})
	if err != nil {
		return UserDevice{}, err
	}
	return device, nil
}

// findExisting 先按设备标识找，找不到再按 token 找，包含软删除记录
func (d *userDeviceDAO) findExisting(tx *gorm.DB, device UserDevice) (*UserDevice, error) {
	var existing UserDevice
	if device.DeviceID != "" {
		err := tx.Unscoped().Where("device_id = ?", device.DeviceID).First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	err := tx.Unscoped().Where("device_token = ?", device.DeviceToken).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (d *userDeviceDAO) Disable(ctx context.Context, userID int64, deviceID, token string) (int64, error) {
	// 没给任何设备标识时不做全量停用
	if deviceID == "" && token == "" {
		return 0, nil
	}
	tx := d.db.WithContext(ctx).
		Model(&UserDevice{}).
		Where("user_id = ?", userID)
	if deviceID != "" {
		tx = tx.Where("device_id = ?", deviceID)
	} else {
		tx = tx.Where("device_token = ?", token)
	}
	result := tx.Updates(map[string]any{
		"notification_enabled": false,
		"utime":                time.Now().UnixMilli(),
	})
	return result.RowsAffected, result.Error
}
