package repository

import (
	"context"

	"github.com/ecodeclub/ekit/slice"

	"github.com/vervana-io/fastfast-common/internal/domain"
	"github.com/vervana-io/fastfast-common/internal/repository/dao"
)

// RiderOrderRequestRepository 派单请求仓储
type RiderOrderRequestRepository interface {
	BatchCreate(ctx context.Context, requests []domain.RiderOrderRequest) error
	GetByOrderID(ctx context.Context, orderID int64) ([]domain.RiderOrderRequest, error)
}

type riderOrderRequestRepository struct {
	dao dao.RiderOrderRequestDAO
}

func NewRiderOrderRequestRepository(d dao.RiderOrderRequestDAO) RiderOrderRequestRepository {
	return &riderOrderRequestRepository{dao: d}
}

func (r *riderOrderRequestRepository) BatchCreate(ctx context.Context, requests []domain.RiderOrderRequest) error {
	entities := slice.Map(requests, func(_ int, src domain.RiderOrderRequest) dao.RiderOrderRequest {
		return dao.RiderOrderRequest{
			OrderID: src.OrderID,
			RiderID: src.RiderID,
			Status:  src.Status,
		}
	})
	return r.dao.BatchCreate(ctx, entities)
}

func (r *riderOrderRequestRepository) GetByOrderID(ctx context.Context, orderID int64) ([]domain.RiderOrderRequest, error) {
	entities, err := r.dao.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return slice.Map(entities, func(_ int, src dao.RiderOrderRequest) domain.RiderOrderRequest {
		return domain.RiderOrderRequest{
			ID:      src.ID,
			OrderID: src.OrderID,
			RiderID: src.RiderID,
			Status:  src.Status,
		}
	}), nil
}
