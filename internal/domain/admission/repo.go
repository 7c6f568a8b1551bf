package admission

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	Update(ctx context.Context, a *Admission) error
	List(ctx context.Context, patientID uuid.UUID, activeOnly bool, limit, offset int) ([]*Admission, int, error)
	ListActive(ctx context.Context) ([]*Admission, error)

	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*Room, error)
	UpdateRoom(ctx context.Context, room *Room) error
	ListRooms(ctx context.Context, activeOnly bool) ([]*Room, error)
}
