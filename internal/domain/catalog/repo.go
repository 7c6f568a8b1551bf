package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, item *ChargeItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*ChargeItem, error)
	Update(ctx context.Context, item *ChargeItem) error
	List(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]*ChargeItem, int, error)
}
