package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateAdmission(ctx context.Context, a *Admission) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.FacilityID == uuid.Nil {
		return fmt.Errorf("facility_id is required")
	}
	if a.Status == "" {
		a.Status = StatusAdmitted
	}
	if !validStatuses[a.Status] {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	if a.AdmissionDate.IsZero() {
		a.AdmissionDate = time.Now().UTC()
	}
	if a.RoomID != nil {
		if _, err := s.repo.GetRoom(ctx, *a.RoomID); err != nil {
			return fmt.Errorf("room not found: %w", err)
		}
	}
	return s.repo.Create(ctx, a)
}

func (s *Service) GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListAdmissions(ctx context.Context, patientID uuid.UUID, activeOnly bool, limit, offset int) ([]*Admission, int, error) {
	return s.repo.List(ctx, patientID, activeOnly, limit, offset)
}

// ListActive returns every admission without a discharge date, the population
// the daily accrual sweep walks.
func (s *Service) ListActive(ctx context.Context) ([]*Admission, error) {
	return s.repo.ListActive(ctx)
}

// UpdateStatus moves an admission between clinical statuses. Discharge goes
// through Discharge so the date is always set.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}
	if status == StatusDischarged {
		return fmt.Errorf("use discharge to end an admission")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !a.Active() {
		return fmt.Errorf("admission already discharged")
	}
	a.Status = status
	return s.repo.Update(ctx, a)
}

// Discharge ends the stay. A zero `at` means now. Backdated discharges are
// allowed as long as they do not precede the admission date.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID, at time.Time) (*Admission, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Active() {
		return nil, fmt.Errorf("admission already discharged")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if at.Before(a.AdmissionDate) {
		return nil, fmt.Errorf("discharge date precedes admission date")
	}
	a.DischargeDate = &at
	a.Status = StatusDischarged
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// AssignRoom moves the patient to a different room mid-stay.
func (s *Service) AssignRoom(ctx context.Context, id, roomID uuid.UUID) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !a.Active() {
		return fmt.Errorf("admission already discharged")
	}
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return fmt.Errorf("room not found: %w", err)
	}
	a.RoomID = &roomID
	return s.repo.Update(ctx, a)
}

func (s *Service) CreateRoom(ctx context.Context, room *Room) error {
	if room.Name == "" {
		return fmt.Errorf("name is required")
	}
	if room.DailyRate != nil && *room.DailyRate < 0 {
		return fmt.Errorf("daily_rate must not be negative")
	}
	room.Active = true
	return s.repo.CreateRoom(ctx, room)
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*Room, error) {
	return s.repo.GetRoom(ctx, id)
}

func (s *Service) UpdateRoom(ctx context.Context, room *Room) error {
	if room.Name == "" {
		return fmt.Errorf("name is required")
	}
	if room.DailyRate != nil && *room.DailyRate < 0 {
		return fmt.Errorf("daily_rate must not be negative")
	}
	return s.repo.UpdateRoom(ctx, room)
}

func (s *Service) ListRooms(ctx context.Context, activeOnly bool) ([]*Room, error) {
	return s.repo.ListRooms(ctx, activeOnly)
}
