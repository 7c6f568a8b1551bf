package billing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Statement is the consolidated statement of account for one patient at one
// facility. It is computed on read and never stored.
type Statement struct {
	PatientID   uuid.UUID `json:"patient_id"`
	FacilityID  uuid.UUID `json:"facility_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Currency    string    `json:"currency"`
	BillCount   int       `json:"bill_count"`

	Lines    []StatementLine    `json:"lines"`
	RoomStay *RoomStaySummary   `json:"room_stay,omitempty"`
	Payments []StatementPayment `json:"payments"`

	// Totals covers every invoiced bill; DisplayTotals is the itemized view
	// the patient sees, manual lines plus the summarized room stay. Both are
	// computed from the same underlying sets.
	Totals        StatementTotals `json:"totals"`
	DisplayTotals StatementTotals `json:"display_totals"`
}

// StatementLine is a manual charge tagged with the bill it came from.
type StatementLine struct {
	BillNumber  string    `json:"bill_number"`
	ServiceName string    `json:"service_name"`
	Description string    `json:"description,omitempty"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	TotalPrice  float64   `json:"total_price"`
	ChargeDate  time.Time `json:"charge_date"`
}

// RoomStaySummary folds the running room lines into one figure.
type RoomStaySummary struct {
	Description string  `json:"description"`
	Days        float64 `json:"days"`
	Amount      float64 `json:"amount"`
}

type StatementPayment struct {
	BillNumber      string    `json:"bill_number"`
	PaymentNumber   string    `json:"payment_number"`
	PaymentDate     time.Time `json:"payment_date"`
	Amount          float64   `json:"amount"`
	Method          string    `json:"method"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
}

type StatementTotals struct {
	Charges     float64 `json:"charges"`
	Payments    float64 `json:"payments"`
	Outstanding float64 `json:"outstanding"`
}

// BuildStatement aggregates the patient's whole ledger at the facility.
// Cancelled bills contribute their payments (money received is real) but not
// their charges.
func (s *Service) BuildStatement(ctx context.Context, patientID, facilityID uuid.UUID) (*Statement, error) {
	if patientID == uuid.Nil {
		return nil, invalid("patient_id", "required")
	}
	if facilityID == uuid.Nil {
		return nil, invalid("facility_id", "required")
	}

	bills, err := s.repo.ListPatientBills(ctx, patientID, facilityID)
	if err != nil {
		return nil, err
	}

	st := &Statement{
		PatientID:   patientID,
		FacilityID:  facilityID,
		GeneratedAt: time.Now().UTC(),
		Currency:    s.cfg.Currency,
		BillCount:   len(bills),
		Lines:       []StatementLine{},
		Payments:    []StatementPayment{},
	}

	var roomDays, roomAmount float64
	var roomDesc string
	for _, b := range bills {
		items, err := s.repo.ListItems(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		payments, err := s.repo.ListPayments(ctx, b.ID)
		if err != nil {
			return nil, err
		}

		cancelled := b.Status == StatusCancelled
		if !cancelled {
			st.Totals.Charges += b.TotalAmount
			for _, it := range items {
				if it.Kind == ItemKindRoomAccrual {
					roomDays += it.Quantity
					roomAmount += it.TotalPrice
					roomDesc = it.Description
					continue
				}
				st.Lines = append(st.Lines, StatementLine{
					BillNumber:  b.BillNumber,
					ServiceName: it.ServiceName,
					Description: it.Description,
					Quantity:    it.Quantity,
					UnitPrice:   it.UnitPrice,
					TotalPrice:  it.TotalPrice,
					ChargeDate:  it.CreatedAt,
				})
			}
		}
		for _, p := range payments {
			st.Totals.Payments += p.Amount
			st.Payments = append(st.Payments, StatementPayment{
				BillNumber:      b.BillNumber,
				PaymentNumber:   p.PaymentNumber,
				PaymentDate:     p.PaymentDate,
				Amount:          p.Amount,
				Method:          p.Method,
				ReferenceNumber: p.ReferenceNumber,
			})
		}
	}

	sort.Slice(st.Lines, func(i, j int) bool {
		return st.Lines[i].ChargeDate.Before(st.Lines[j].ChargeDate)
	})
	sort.Slice(st.Payments, func(i, j int) bool {
		return st.Payments[i].PaymentDate.After(st.Payments[j].PaymentDate)
	})

	if roomAmount > 0 || roomDays > 0 {
		st.RoomStay = &RoomStaySummary{
			Description: roomDesc,
			Days:        roomDays,
			Amount:      round2(roomAmount),
		}
	}

	var displayCharges float64
	for _, ln := range st.Lines {
		displayCharges += ln.TotalPrice
	}
	displayCharges += roomAmount

	st.Totals.Charges = round2(st.Totals.Charges)
	st.Totals.Payments = round2(st.Totals.Payments)
	st.Totals.Outstanding = outstanding(st.Totals.Charges, st.Totals.Payments)

	st.DisplayTotals.Charges = round2(displayCharges)
	st.DisplayTotals.Payments = st.Totals.Payments
	st.DisplayTotals.Outstanding = outstanding(st.DisplayTotals.Charges, st.DisplayTotals.Payments)

	return st, nil
}

// outstanding clamps at zero: overpayment is impossible by construction, but
// the statement never shows a negative amount owed either way.
func outstanding(charges, payments float64) float64 {
	o := round2(charges - payments)
	if o < 0 {
		return 0
	}
	return o
}
