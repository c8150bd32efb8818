package repository

import (
	"context"
	"fmt"
	"time"

	ca "github.com/patrickmn/go-cache"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/repository/dao"
)

const (
	deviceCacheTTL     = 5 * time.Minute
	deviceCacheCleanup = 10 * time.Minute
)

// UserDeviceRepository 设备仓储，读路径带本地缓存
type UserDeviceRepository interface {
	GetUserDevices(ctx context.Context, userID int64) ([]domain.Device, error)
	GetUsersDevices(ctx context.Context, userIDs []int64) (map[int64][]domain.Device, error)
	Register(ctx context.Context, device domain.Device) (domain.Device, error)
	Disable(ctx context.Context, userID int64, deviceID, token string) (int64, error)
}

type userDeviceRepository struct {
	dao   dao.UserDeviceDAO
	cache *ca.Cache
}

func NewUserDeviceRepository(d dao.UserDeviceDAO) UserDeviceRepository {
	return &userDeviceRepository{
		dao:   d,
		cache: ca.New(deviceCacheTTL, deviceCacheCleanup),
	}
}

func deviceCacheKey(userID int64) string {
	return fmt.Sprintf("user_devices:%d", userID)
}

func (r *userDeviceRepository) GetUserDevices(ctx context.Context, userID int64) ([]domain.Device, error) {
	key := deviceCacheKey(userID)
	if v, ok := r.cache.Get(key); ok {
		return v.([]domain.Device), nil
	}
	entities, err := r.dao.GetEnabledByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	devices := r.toDomainList(entities)
	r.cache.Set(key, devices, ca.DefaultExpiration)
	return devices, nil
}

func (r *userDeviceRepository) GetUsersDevices(ctx context.Context, userIDs []int64) (map[int64][]domain.Device, error) {
	result := make(map[int64][]domain.Device, len(userIDs))
	missing := make([]int64, 0, len(userIDs))
	for _, id := range userIDs {
		if v, ok := r.cache.Get(deviceCacheKey(id)); ok {
			result[id] = v.([]domain.Device)
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}
	entities, err := r.dao.GetEnabledByUserIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	fetched := make(map[int64][]domain.Device, len(missing))
	for _, entity := range entities {
		fetched[entity.UserID] = append(fetched[entity.UserID], r.toDomain(entity))
	}
	for _, id := range missing {
		devices := fetched[id]
		result[id] = devices
		r.cache.Set(deviceCacheKey(id), devices, ca.DefaultExpiration)
	}
	return result, nil
}

func (r *userDeviceRepository) Register(ctx context.Context, device domain.Device) (domain.Device, error) {
	entity, err := r.dao.Register(ctx, r.toEntity(device))
	if err != nil {
		return domain.Device{}, err
	}
	r.cache.Delete(deviceCacheKey(device.UserID))
	return r.toDomain(entity), nil
}

func (r *userDeviceRepository) Disable(ctx context.Context, userID int64, deviceID, token string) (int64, error) {
	affected, err := r.dao.Disable(ctx, userID, deviceID, token)
	if err != nil {
		return 0, err
	}
	r.cache.Delete(deviceCacheKey(userID))
	return affected, nil
}

func (r *userDeviceRepository) toDomain(entity dao.UserDevice) domain.Device {
	return domain.Device{
		ID:         entity.ID,
		UserID:     entity.UserID,
		Token:      entity.DeviceToken,
		Platform:   entity.DeviceType,
		DeviceID:   entity.DeviceID,
		Enabled:    entity.NotificationEnabled,
		Authorized: entity.NotificationAuthorized,
	}
}

func (r *userDeviceRepository) toDomainList(entities []dao.UserDevice) []domain.Device {
	devices := make([]domain.Device, 0, len(entities))
	for _, entity := range entities {
		devices = append(devices, r.toDomain(entity))
	}
	return devices
}

func (r *userDeviceRepository) toEntity(device domain.Device) dao.UserDevice {
	return dao.UserDevice{
		ID:                     device.ID,
		UserID:                 device.UserID,
		DeviceToken:            device.Token,
		DeviceType:             device.Platform,
		DeviceID:               device.DeviceID,
		NotificationEnabled:    device.Enabled,
		NotificationAuthorized: device.Authorized,
	}
}
