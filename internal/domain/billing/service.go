package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maternacare/maternacare/internal/domain/admission"
	"github.com/maternacare/maternacare/internal/domain/catalog"
)

// TxRunner runs fn inside a database transaction carried on the context.
// Production wires db.WithTx; tests pass the function straight through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Config carries the ledger knobs from app configuration.
type Config struct {
	Currency string
	TaxRate  float64
	DueDays  int
}

// AdmissionSource is the read-only view of admissions and rooms the accrual
// engine consumes. Satisfied by admission.Service.
type AdmissionSource interface {
	GetAdmission(ctx context.Context, id uuid.UUID) (*admission.Admission, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*admission.Room, error)
	ListActive(ctx context.Context) ([]*admission.Admission, error)
	ListAdmissions(ctx context.Context, patientID uuid.UUID, activeOnly bool, limit, offset int) ([]*admission.Admission, int, error)
}

// CatalogSource resolves charge catalog items. Satisfied by catalog.Service.
type CatalogSource interface {
	GetItem(ctx context.Context, id uuid.UUID) (*catalog.ChargeItem, error)
}

type Service struct {
	repo   Repository
	tx     TxRunner
	adm    AdmissionSource
	cat    CatalogSource
	cfg    Config
	logger zerolog.Logger
}

func NewService(repo Repository, tx TxRunner, adm AdmissionSource, cat CatalogSource, cfg Config, logger zerolog.Logger) *Service {
	if cfg.DueDays <= 0 {
		cfg.DueDays = 30
	}
	if cfg.Currency == "" {
		cfg.Currency = "PHP"
	}
	return &Service{repo: repo, tx: tx, adm: adm, cat: cat, cfg: cfg, logger: logger}
}

// OpenOrCreateBill returns the patient's open bill at the facility, creating
// a zero-total draft when none exists. The ledger lock makes the find-or-create
// atomic, so concurrent callers always converge on one bill.
func (s *Service) OpenOrCreateBill(ctx context.Context, patientID, facilityID, createdBy uuid.UUID) (*Bill, error) {
	if patientID == uuid.Nil {
		return nil, invalid("patient_id", "required")
	}
	if facilityID == uuid.Nil {
		return nil, invalid("facility_id", "required")
	}

	var bill *Bill
	err := s.tx(ctx, func(ctx context.Context) error {
		b, err := s.openBillLocked(ctx, patientID, facilityID, createdBy)
		if err != nil {
			return err
		}
		bill = b
		return s.attach(ctx, bill)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// openBillLocked is the shared find-or-create path. Callers must be inside a
// transaction; the advisory lock it takes lasts until that transaction ends.
func (s *Service) openBillLocked(ctx context.Context, patientID, facilityID, createdBy uuid.UUID) (*Bill, error) {
	if err := s.repo.LockLedger(ctx, patientID, facilityID); err != nil {
		return nil, err
	}

	b, err := s.repo.FindOpenBill(ctx, patientID, facilityID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNoOpenBill) {
		return nil, err
	}

	number, err := s.repo.NextBillNumber(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	b = &Bill{
		PatientID:  patientID,
		FacilityID: facilityID,
		BillNumber: number,
		BillDate:   now,
		DueDate:    now.AddDate(0, 0, s.cfg.DueDays),
		Status:     StatusDraft,
		CreatedBy:  createdBy,
	}
	if err := s.repo.CreateBill(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBill returns the bill with its items and payments.
func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := s.repo.GetBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attach(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListBills(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Bill, int, error) {
	return s.repo.ListBills(ctx, patientID, status, limit, offset)
}

// ChargeInput describes a manual charge. When CatalogItemID is set the name
// and unit price default from the catalog.
type ChargeInput struct {
	CatalogItemID *uuid.UUID `json:"catalog_item_id"`
	ServiceName   string     `json:"service_name"`
	Description   string     `json:"description"`
	Quantity      float64    `json:"quantity"`
	UnitPrice     *float64   `json:"unit_price"`
}

// AddCharge appends a manual line item to the bill and recomputes totals.
func (s *Service) AddCharge(ctx context.Context, billID uuid.UUID, in ChargeInput) (*Bill, error) {
	if in.Quantity <= 0 {
		return nil, invalid("quantity", "must be greater than zero")
	}
	if in.UnitPrice != nil && *in.UnitPrice < 0 {
		return nil, invalid("unit_price", "must not be negative")
	}

	var bill *Bill
	err := s.tx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if b.Terminal() {
			return invalid("status", fmt.Sprintf("cannot add charges to a %s bill", b.Status))
		}

		name, price := in.ServiceName, 0.0
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		}
		if in.CatalogItemID != nil {
			ci, err := s.cat.GetItem(ctx, *in.CatalogItemID)
			if err != nil {
				return invalid("catalog_item_id", "unknown catalog item")
			}
			if name == "" {
				name = ci.Name
			}
			if in.UnitPrice == nil {
				price = ci.UnitPrice
			}
		}
		if name == "" {
			return invalid("service_name", "required")
		}
		if in.UnitPrice == nil && in.CatalogItemID == nil {
			return invalid("unit_price", "required without a catalog item")
		}

		item := &BillItem{
			BillID:        b.ID,
			Kind:          ItemKindManual,
			CatalogItemID: in.CatalogItemID,
			ServiceName:   name,
			Description:   in.Description,
			Quantity:      in.Quantity,
			UnitPrice:     price,
			TotalPrice:    round2(in.Quantity * price),
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return err
		}
		if b.Status == StatusDraft {
			b.Status = StatusSent
		}
		if err := s.recalculate(ctx, b); err != nil {
			return err
		}
		bill = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// PaymentInput describes a payment being recorded against a bill.
type PaymentInput struct {
	Amount          float64    `json:"amount"`
	Method          string     `json:"method"`
	ReferenceNumber string     `json:"reference_number"`
	Notes           string     `json:"notes"`
	PaymentDate     *time.Time `json:"payment_date"`
}

// AddPayment records a payment on the bill. The amount may never exceed the
// balance, so the balance can never go negative.
func (s *Service) AddPayment(ctx context.Context, billID uuid.UUID, in PaymentInput, receivedBy uuid.UUID) (*Payment, error) {
	if in.Amount <= 0 {
		return nil, invalid("amount", "must be greater than zero")
	}
	if !validMethods[in.Method] {
		return nil, invalid("method", fmt.Sprintf("unknown payment method %q", in.Method))
	}

	var payment *Payment
	err := s.tx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		p, err := s.payLocked(ctx, b, in, receivedBy)
		if err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) payLocked(ctx context.Context, b *Bill, in PaymentInput, receivedBy uuid.UUID) (*Payment, error) {
	if b.Status == StatusCancelled {
		return nil, invalid("status", "cannot pay a cancelled bill")
	}
	if in.Amount > b.BalanceAmount+Epsilon {
		return nil, &PaymentExceedsBalanceError{Amount: in.Amount, Balance: b.BalanceAmount}
	}

	number, err := s.repo.NextPaymentNumber(ctx)
	if err != nil {
		return nil, err
	}
	date := time.Now().UTC()
	if in.PaymentDate != nil {
		date = *in.PaymentDate
	}
	p := &Payment{
		BillID:          b.ID,
		PaymentNumber:   number,
		PaymentDate:     date,
		Amount:          round2(in.Amount),
		Method:          in.Method,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
		ReceivedBy:      receivedBy,
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	if err := s.recalculate(ctx, b); err != nil {
		return nil, err
	}
	return p, nil
}

// ProcessPayment records a payment against whatever bill is currently open
// for the patient. ErrNoOpenBill is a normal outcome, not a failure.
func (s *Service) ProcessPayment(ctx context.Context, patientID, facilityID uuid.UUID, in PaymentInput, receivedBy uuid.UUID) (*Payment, error) {
	if in.Amount <= 0 {
		return nil, invalid("amount", "must be greater than zero")
	}
	if !validMethods[in.Method] {
		return nil, invalid("method", fmt.Sprintf("unknown payment method %q", in.Method))
	}

	var payment *Payment
	err := s.tx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockLedger(ctx, patientID, facilityID); err != nil {
			return err
		}
		b, err := s.repo.FindOpenBill(ctx, patientID, facilityID)
		if err != nil {
			return err
		}
		p, err := s.payLocked(ctx, b, in, receivedBy)
		if err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// DiscountInput applies either a fixed amount or a percentage of the
// subtotal. Exactly one of the two must be set.
type DiscountInput struct {
	Amount  *float64 `json:"amount"`
	Percent *float64 `json:"percent"`
	Reason  string   `json:"reason"`
}

// ApplyDiscount sets the bill's discount and appends an audit note. The
// discount replaces any previous one rather than stacking.
func (s *Service) ApplyDiscount(ctx context.Context, billID uuid.UUID, in DiscountInput) (*Bill, error) {
	if (in.Amount == nil) == (in.Percent == nil) {
		return nil, invalid("discount", "exactly one of amount or percent is required")
	}
	if in.Amount != nil && *in.Amount < 0 {
		return nil, invalid("amount", "must not be negative")
	}
	if in.Percent != nil && (*in.Percent < 0 || *in.Percent > 100) {
		return nil, invalid("percent", "must be between 0 and 100")
	}

	var bill *Bill
	err := s.tx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if b.Terminal() {
			return invalid("status", fmt.Sprintf("cannot discount a %s bill", b.Status))
		}

		var amount float64
		var note string
		if in.Percent != nil {
			amount = round2(b.Subtotal * *in.Percent / 100)
			note = fmt.Sprintf("Discount %.0f%% = %s %.2f", *in.Percent, s.cfg.Currency, amount)
		} else {
			amount = round2(*in.Amount)
			note = fmt.Sprintf("Discount %s %.2f", s.cfg.Currency, amount)
		}
		if amount > b.Subtotal+Epsilon {
			return &DiscountExceedsSubtotalError{Discount: amount, Subtotal: b.Subtotal}
		}
		if in.Reason != "" {
			note += " (" + in.Reason + ")"
		}

		b.DiscountAmount = amount
		if b.Notes == "" {
			b.Notes = note
		} else {
			b.Notes += "\n" + note
		}
		if err := s.recalculate(ctx, b); err != nil {
			return err
		}
		bill = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// RecalculateTotals recomputes every derived amount from the item and payment
// sets. Idempotent; safe to call at any time.
func (s *Service) RecalculateTotals(ctx context.Context, billID uuid.UUID) (*Bill, error) {
	var bill *Bill
	err := s.tx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if err := s.recalculate(ctx, b); err != nil {
			return err
		}
		bill = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// CancelBill voids a bill. Only issued bills can be cancelled; cancelled is
// terminal and later recomputation never moves off it.
func (s *Service) CancelBill(ctx context.Context, billID uuid.UUID, reason string) (*Bill, error) {
	var bill *Bill
	err := s.tx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetBillForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		switch b.Status {
		case StatusSent, StatusPartiallyPaid, StatusOverdue:
		default:
			return invalid("status", fmt.Sprintf("cannot cancel a %s bill", b.Status))
		}
		b.Status = StatusCancelled
		if reason != "" {
			note := "Cancelled: " + reason
			if b.Notes == "" {
				b.Notes = note
			} else {
				b.Notes += "\n" + note
			}
		}
		if err := s.repo.UpdateBill(ctx, b); err != nil {
			return err
		}
		bill = b
		return s.attach(ctx, bill)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// recalculate rebuilds subtotal, tax, total, paid and balance from the full
// item and payment sets, then reruns the status derivation. The bill's Items
// and Payments slices are left populated for the caller.
func (s *Service) recalculate(ctx context.Context, b *Bill) error {
	items, err := s.repo.ListItems(ctx, b.ID)
	if err != nil {
		return err
	}
	payments, err := s.repo.ListPayments(ctx, b.ID)
	if err != nil {
		return err
	}

	var subtotal, paid float64
	for _, it := range items {
		subtotal += it.TotalPrice
	}
	for _, p := range payments {
		paid += p.Amount
	}

	b.Subtotal = round2(subtotal)
	b.TaxAmount = round2(subtotal * s.cfg.TaxRate)
	b.TotalAmount = round2(b.Subtotal + b.TaxAmount - b.DiscountAmount)
	b.PaidAmount = round2(paid)
	b.BalanceAmount = round2(b.TotalAmount - b.PaidAmount)
	b.Status = DeriveStatus(b.Status, b.TotalAmount, b.PaidAmount, b.BalanceAmount, len(items), b.DueDate, time.Now().UTC())
	b.Items = items
	b.Payments = payments

	return s.repo.UpdateBill(ctx, b)
}

func (s *Service) attach(ctx context.Context, b *Bill) error {
	items, err := s.repo.ListItems(ctx, b.ID)
	if err != nil {
		return err
	}
	payments, err := s.repo.ListPayments(ctx, b.ID)
	if err != nil {
		return err
	}
	b.Items = items
	b.Payments = payments
	return nil
}
