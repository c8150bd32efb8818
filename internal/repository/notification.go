package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sony/sonyflake"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/errs"
	"github.com/vervana-io/fastfast-common/internal/repository/dao"
)

// NotificationRepository 通知记录仓储
type NotificationRepository interface {
	// Create 落一条通知记录，ID 由雪花算法生成
	Create(ctx context.Context, notification domain.Notification) (domain.Notification, error)
	GetByUserID(ctx context.Context, userID int64, offset, limit int) ([]domain.Notification, error)
}

type notificationRepository struct {
	dao   dao.NotificationDAO
	idGen *sonyflake.Sonyflake
}

func NewNotificationRepository(d dao.NotificationDAO) NotificationRepository {
	return &notificationRepository{
		dao:   d,
		idGen: sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification domain.Notification) (domain.Notification, error) {
	if err := notification.Validate(); err != nil {
		return domain.Notification{}, err
	}
	id, err := r.idGen.NextID()
	if err != nil {
		return domain.Notification{}, fmt.Errorf("%w: %w", errs.ErrNotificationIDGenerateFailed, err)
	}
	notification.ID = id

	entity, err := r.toEntity(notification)
	if err != nil {
		return domain.Notification{}, err
	}
	created, err := r.dao.Create(ctx, entity)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("%w: %w", errs.ErrCreateNotificationFailed, err)
	}
	return r.toDomain(created)
}

func (r *notificationRepository) GetByUserID(ctx context.Context, userID int64, offset, limit int) ([]domain.Notification, error) {
	entities, err := r.dao.GetByUserID(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	notifications := make([]domain.Notification, 0, len(entities))
	for _, entity := range entities {
		notification, err := r.toDomain(entity)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

func (r *notificationRepository) toEntity(notification domain.Notification) (dao.Notification, error) {
	data := "{}"
	if len(notification.Data) > 0 {
		raw, err := json.Marshal(notification.Data)
		if err != nil {
			return dao.Notification{}, fmt.Errorf("%w: 附加负载序列化失败: %w", errs.ErrInvalidParameter, err)
		}
		data = string(raw)
	}
	return dao.Notification{
		ID:      notification.ID,
		UserID:  notification.UserID,
		OrderID: notification.OrderID,
		Title:   notification.Title,
		Body:    notification.Body,
		Data:    data,
	}, nil
}

func (r *notificationRepository) toDomain(entity dao.Notification) (domain.Notification, error) {
	notification := domain.Notification{
		ID:      entity.ID,
		UserID:  entity.UserID,
		OrderID: entity.OrderID,
		Title:   entity.Title,
		Body:    entity.Body,
	}
	if entity.Data != "" {
		if err := json.Unmarshal([]byte(entity.Data), &notification.Data); err != nil {
			return domain.Notification{}, fmt.Errorf("%w: 附加负载解析失败: %w", errs.ErrInvalidParameter, err)
		}
	}
	return notification, nil
}
