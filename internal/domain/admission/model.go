package admission

import (
	"time"

	"github.com/google/uuid"
)

// Admission statuses. Discharge is recorded both as a status and as a
// discharge_date so the accrual engine can bound the stay.
const (
	StatusAdmitted   = "admitted"
	StatusInLabor    = "in_labor"
	StatusDelivered  = "delivered"
	StatusDischarged = "discharged"
)

// Room is a bed or private room with an optional daily rate. A room without a
// rate never produces accommodation charges.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	DailyRate *float64  `json:"daily_rate,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Admission records a patient's inpatient stay. Billing treats these rows as
// read-only facts.
type Admission struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	FacilityID    uuid.UUID  `json:"facility_id"`
	RoomID        *uuid.UUID `json:"room_id,omitempty"`
	Status        string     `json:"status"`
	AdmissionDate time.Time  `json:"admission_date"`
	DischargeDate *time.Time `json:"discharge_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Active reports whether the patient is still in a bed.
func (a *Admission) Active() bool {
	return a.DischargeDate == nil && a.Status != StatusDischarged
}

var validStatuses = map[string]bool{
	StatusAdmitted:   true,
	StatusInLabor:    true,
	StatusDelivered:  true,
	StatusDischarged: true,
}
