package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	items map[uuid.UUID]*ChargeItem
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*ChargeItem)}
}

func (m *mockRepo) Create(_ context.Context, item *ChargeItem) error {
	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()
	m.items[item.ID] = item
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*ChargeItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return item, nil
}

func (m *mockRepo) Update(_ context.Context, item *ChargeItem) error {
	if _, ok := m.items[item.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.items[item.ID] = item
	return nil
}

func (m *mockRepo) List(_ context.Context, category string, activeOnly bool, limit, offset int) ([]*ChargeItem, int, error) {
	var result []*ChargeItem
	for _, it := range m.items {
		if category != "" && it.Category != category {
			continue
		}
		if activeOnly && !it.Active {
			continue
		}
		result = append(result, it)
	}
	return result, len(result), nil
}

func TestCreateItem(t *testing.T) {
	svc := NewService(newMockRepo())

	item := &ChargeItem{Name: "Normal Spontaneous Delivery", Category: CategoryDelivery, UnitPrice: 25000}
	if err := svc.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
	if !item.Active {
		t.Error("expected new item to be active")
	}
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewService(newMockRepo())

	tests := []struct {
		name string
		item *ChargeItem
	}{
		{"missing name", &ChargeItem{UnitPrice: 100}},
		{"negative price", &ChargeItem{Name: "CBC", UnitPrice: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.CreateItem(context.Background(), tt.item); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCreateItemDefaultCategory(t *testing.T) {
	svc := NewService(newMockRepo())

	item := &ChargeItem{Name: "Admission kit", UnitPrice: 350}
	if err := svc.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Category != CategoryOther {
		t.Errorf("expected default category %q, got %q", CategoryOther, item.Category)
	}
}

func TestDeactivateItem(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	item := &ChargeItem{Name: "CBC", Category: CategoryLaboratory, UnitPrice: 450}
	if err := svc.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if err := svc.DeactivateItem(context.Background(), item.ID); err != nil {
		t.Fatalf("DeactivateItem: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), item.ID)
	if got.Active {
		t.Error("expected item to be inactive")
	}
}

func TestListItemsActiveFilter(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	a := &ChargeItem{Name: "CBC", Category: CategoryLaboratory, UnitPrice: 450}
	b := &ChargeItem{Name: "Urinalysis", Category: CategoryLaboratory, UnitPrice: 150}
	_ = svc.CreateItem(context.Background(), a)
	_ = svc.CreateItem(context.Background(), b)
	_ = svc.DeactivateItem(context.Background(), b.ID)

	items, total, err := svc.ListItems(context.Background(), "", true, 20, 0)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected 1 active item, got %d", total)
	}
	if items[0].ID != a.ID {
		t.Error("expected the active item to be returned")
	}
}
