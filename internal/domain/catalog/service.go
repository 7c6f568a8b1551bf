package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateItem(ctx context.Context, item *ChargeItem) error {
	if item.Name == "" {
		return fmt.Errorf("name is required")
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("unit_price must not be negative")
	}
	if item.Category == "" {
		item.Category = CategoryOther
	}
	item.Active = true
	return s.repo.Create(ctx, item)
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*ChargeItem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateItem(ctx context.Context, item *ChargeItem) error {
	if item.Name == "" {
		return fmt.Errorf("name is required")
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("unit_price must not be negative")
	}
	return s.repo.Update(ctx, item)
}

// DeactivateItem retires an item from the price list. Rows are never deleted
// because existing bill items may reference them.
func (s *Service) DeactivateItem(ctx context.Context, id uuid.UUID) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	item.Active = false
	return s.repo.Update(ctx, item)
}

func (s *Service) ListItems(ctx context.Context, category string, activeOnly bool, limit, offset int) ([]*ChargeItem, int, error) {
	return s.repo.List(ctx, category, activeOnly, limit, offset)
}
