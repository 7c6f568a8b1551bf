package billing

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Bill statuses. A bill is "open" while charges can still land on it; paid
// and cancelled are terminal.
const (
	StatusDraft         = "draft"
	StatusSent          = "sent"
	StatusPartiallyPaid = "partially_paid"
	StatusOverdue       = "overdue"
	StatusPaid          = "paid"
	StatusCancelled     = "cancelled"
)

// Bill item kinds. A bill carries at most one room_accrual item, the running
// line the accrual engine keeps in step with the stay.
const (
	ItemKindManual      = "manual"
	ItemKindRoomAccrual = "room_accrual"
)

// Payment methods accepted at the cashier.
const (
	MethodCash         = "cash"
	MethodCard         = "card"
	MethodBankTransfer = "bank_transfer"
	MethodInsurance    = "insurance"
	MethodHMO          = "hmo"
	MethodGCash        = "gcash"
)

var validMethods = map[string]bool{
	MethodCash:         true,
	MethodCard:         true,
	MethodBankTransfer: true,
	MethodInsurance:    true,
	MethodHMO:          true,
	MethodGCash:        true,
}

// Epsilon is the money comparison tolerance. Two amounts within a centavo of
// each other are treated as equal.
const Epsilon = 0.01

// Bill maps to the bill table.
type Bill struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	FacilityID     uuid.UUID `db:"facility_id" json:"facility_id"`
	BillNumber     string    `db:"bill_number" json:"bill_number"`
	BillDate       time.Time `db:"bill_date" json:"bill_date"`
	DueDate        time.Time `db:"due_date" json:"due_date"`
	Subtotal       float64   `db:"subtotal" json:"subtotal"`
	TaxAmount      float64   `db:"tax_amount" json:"tax_amount"`
	DiscountAmount float64   `db:"discount_amount" json:"discount_amount"`
	TotalAmount    float64   `db:"total_amount" json:"total_amount"`
	PaidAmount     float64   `db:"paid_amount" json:"paid_amount"`
	BalanceAmount  float64   `db:"balance_amount" json:"balance_amount"`
	Status         string    `db:"status" json:"status"`
	Notes          string    `db:"notes" json:"notes,omitempty"`
	CreatedBy      uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Items    []*BillItem `json:"items,omitempty"`
	Payments []*Payment  `json:"payments,omitempty"`
}

// Open reports whether further charges and payments may land on this bill.
// A zero-total draft counts as open so the first charge has somewhere to go.
func (b *Bill) Open() bool {
	switch b.Status {
	case StatusDraft:
		return true
	case StatusSent, StatusPartiallyPaid, StatusOverdue:
		return b.BalanceAmount > Epsilon
	}
	return false
}

// Terminal reports whether the bill can no longer change.
func (b *Bill) Terminal() bool {
	return b.Status == StatusPaid || b.Status == StatusCancelled
}

// RoomItem returns the bill's single room accrual line, or nil.
func (b *Bill) RoomItem() *BillItem {
	for _, it := range b.Items {
		if it.Kind == ItemKindRoomAccrual {
			return it
		}
	}
	return nil
}

// BillItem maps to the bill_item table. CreatedAt doubles as the charge date
// shown on statements.
type BillItem struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	BillID        uuid.UUID  `db:"bill_id" json:"bill_id"`
	Kind          string     `db:"kind" json:"kind"`
	CatalogItemID *uuid.UUID `db:"catalog_item_id" json:"catalog_item_id,omitempty"`
	AdmissionID   *uuid.UUID `db:"admission_id" json:"admission_id,omitempty"`
	ServiceName   string     `db:"service_name" json:"service_name"`
	Description   string     `db:"description" json:"description,omitempty"`
	Quantity      float64    `db:"quantity" json:"quantity"`
	UnitPrice     float64    `db:"unit_price" json:"unit_price"`
	TotalPrice    float64    `db:"total_price" json:"total_price"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Payment maps to the payment table. Rows are immutable once written.
type Payment struct {
	ID              uuid.UUID `db:"id" json:"id"`
	BillID          uuid.UUID `db:"bill_id" json:"bill_id"`
	PaymentNumber   string    `db:"payment_number" json:"payment_number"`
	PaymentDate     time.Time `db:"payment_date" json:"payment_date"`
	Amount          float64   `db:"amount" json:"amount"`
	Method          string    `db:"method" json:"method"`
	ReferenceNumber string    `db:"reference_number" json:"reference_number,omitempty"`
	Notes           string    `db:"notes" json:"notes,omitempty"`
	ReceivedBy      uuid.UUID `db:"received_by" json:"received_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// round2 rounds to centavos. All stored money passes through here so the
// epsilon comparisons stay honest.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
