package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists bills, items and payments. Mutating service operations
// call it inside a transaction carried on the context, so every method joins
// the surrounding transaction when one is present.
type Repository interface {
	CreateBill(ctx context.Context, b *Bill) error
	GetBill(ctx context.Context, id uuid.UUID) (*Bill, error)
	// GetBillForUpdate locks the bill row for the rest of the transaction.
	GetBillForUpdate(ctx context.Context, id uuid.UUID) (*Bill, error)
	// FindOpenBill returns the patient's open bill at the facility, locked,
	// or ErrNoOpenBill.
	FindOpenBill(ctx context.Context, patientID, facilityID uuid.UUID) (*Bill, error)
	UpdateBill(ctx context.Context, b *Bill) error
	ListBills(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Bill, int, error)
	// ListPatientBills returns every bill for the patient at the facility,
	// any status, oldest first. The statement builder reads from this.
	ListPatientBills(ctx context.Context, patientID, facilityID uuid.UUID) ([]*Bill, error)

	CreateItem(ctx context.Context, item *BillItem) error
	UpdateItem(ctx context.Context, item *BillItem) error
	ListItems(ctx context.Context, billID uuid.UUID) ([]*BillItem, error)
	// FindRoomItem returns the admission's room accrual line, wherever it
	// lives, or ErrNotFound. Keying on the admission rather than the bill
	// keeps reconciliation idempotent even after the original bill settles.
	FindRoomItem(ctx context.Context, admissionID uuid.UUID) (*BillItem, error)

	CreatePayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, billID uuid.UUID) ([]*Payment, error)

	NextBillNumber(ctx context.Context) (string, error)
	NextPaymentNumber(ctx context.Context) (string, error)

	// LockLedger serializes open-bill find-or-create for one patient and
	// facility for the duration of the transaction.
	LockLedger(ctx context.Context, patientID, facilityID uuid.UUID) error
}
