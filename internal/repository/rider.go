package repository

import (
	"context"

	"github.com/ecodeclub/ekit/slice"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/repository/dao"
)

// RiderRepository 骑手仓储
type RiderRepository interface {
	// FindNearest 半径内可接单骑手，按距离升序
	FindNearest(ctx context.Context, latitude, longitude, radiusKm float64, excludeIDs []int64) ([]domain.Rider, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Rider, error)
}

type riderRepository struct {
	dao dao.RiderDAO
}

func NewRiderRepository(d dao.RiderDAO) RiderRepository {
	return &riderRepository{dao: d}
}

func (r *riderRepository) FindNearest(ctx context.Context, latitude, longitude, radiusKm float64, excludeIDs []int64) ([]domain.Rider, error) {
	entities, err := r.dao.FindNearest(ctx, latitude, longitude, radiusKm, excludeIDs)
	if err != nil {
		return nil, err
	}
	return slice.Map(entities, func(_ int, src dao.RiderWithDistance) domain.Rider {
		rider := r.toDomain(src.Rider)
		rider.Distance = src.Distance
		return rider
	}), nil
}

func (r *riderRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Rider, error) {
	entities, err := r.dao.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return slice.Map(entities, func(_ int, src dao.Rider) domain.Rider {
		return r.toDomain(src)
	}), nil
}

func (r *riderRepository) toDomain(entity dao.Rider) domain.Rider {
	return domain.Rider{
		ID:               entity.ID,
		UserID:           entity.UserID,
		FullName:         entity.FullName,
		Status:           entity.Status,
		CurrentLatitude:  entity.CurrentLatitude,
		CurrentLongitude: entity.CurrentLongitude,
	}
}
