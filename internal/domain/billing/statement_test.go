package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// settle pays the bill off completely so the next OpenOrCreateBill starts a
// fresh one.
func settle(t *testing.T, svc *Service, billID uuid.UUID) {
	t.Helper()
	b, err := svc.GetBill(context.Background(), billID)
	if err != nil {
		t.Fatalf("GetBill: %v", err)
	}
	if b.BalanceAmount <= 0 {
		return
	}
	if _, err := svc.AddPayment(context.Background(), billID, PaymentInput{Amount: b.BalanceAmount, Method: MethodCash}, uuid.Nil); err != nil {
		t.Fatalf("settle: %v", err)
	}
}

func TestBuildStatementTwoBills(t *testing.T) {
	svc, _, _, _ := newTestService()
	patientID, facilityID := uuid.New(), uuid.New()

	// First confinement: 5,000 billed and fully paid.
	first, err := svc.OpenOrCreateBill(context.Background(), patientID, facilityID, uuid.Nil)
	if err != nil {
		t.Fatalf("OpenOrCreateBill: %v", err)
	}
	if _, err := svc.AddCharge(context.Background(), first.ID, ChargeInput{ServiceName: "Normal Spontaneous Delivery", Quantity: 1, UnitPrice: ptr(5000.0)}); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}
	settle(t, svc, first.ID)

	// Second visit: 3,000 billed, 1,000 paid so far.
	second, err := svc.OpenOrCreateBill(context.Background(), patientID, facilityID, uuid.Nil)
	if err != nil {
		t.Fatalf("OpenOrCreateBill: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh bill after settlement")
	}
	if _, err := svc.AddCharge(context.Background(), second.ID, ChargeInput{ServiceName: "Postnatal checkup", Quantity: 2, UnitPrice: ptr(1500.0)}); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}
	if _, err := svc.AddPayment(context.Background(), second.ID, PaymentInput{Amount: 1000, Method: MethodGCash}, uuid.Nil); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}

	st, err := svc.BuildStatement(context.Background(), patientID, facilityID)
	if err != nil {
		t.Fatalf("BuildStatement: %v", err)
	}

	if st.BillCount != 2 {
		t.Errorf("expected 2 bills, got %d", st.BillCount)
	}
	if st.Totals.Charges != 8000 {
		t.Errorf("expected charges 8000, got %.2f", st.Totals.Charges)
	}
	if st.Totals.Payments != 6000 {
		t.Errorf("expected payments 6000, got %.2f", st.Totals.Payments)
	}
	if st.Totals.Outstanding != 2000 {
		t.Errorf("expected outstanding 2000, got %.2f", st.Totals.Outstanding)
	}

	if len(st.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(st.Lines))
	}
	if st.Lines[0].BillNumber != first.BillNumber || st.Lines[1].BillNumber != second.BillNumber {
		t.Error("expected lines tagged with their source bill, oldest first")
	}

	if len(st.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(st.Payments))
	}
	if st.Payments[0].PaymentDate.Before(st.Payments[1].PaymentDate) {
		t.Error("expected payments newest first")
	}

	// No room stay here, so the display view equals the all-bills view.
	if st.RoomStay != nil {
		t.Error("did not expect a room stay summary")
	}
	if st.DisplayTotals != st.Totals {
		t.Errorf("expected matching views, got %+v vs %+v", st.DisplayTotals, st.Totals)
	}
}

func TestBuildStatementRoomStaySummarized(t *testing.T) {
	svc, _, facts, _ := newTestService()
	patientID, facilityID := uuid.New(), uuid.New()
	room := facts.addRoom("Private 201", ptr(1500.0))
	adm := facts.admit(patientID, facilityID, &room.ID, day(2025, 3, 10))

	if _, err := svc.reconcileAt(context.Background(), adm.ID, day(2025, 3, 13)); err != nil {
		t.Fatalf("reconcileAt: %v", err)
	}
	bill, err := svc.OpenOrCreateBill(context.Background(), patientID, facilityID, uuid.Nil)
	if err != nil {
		t.Fatalf("OpenOrCreateBill: %v", err)
	}
	if _, err := svc.AddCharge(context.Background(), bill.ID, ChargeInput{ServiceName: "Newborn screening", Quantity: 1, UnitPrice: ptr(1750.0)}); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}

	st, err := svc.BuildStatement(context.Background(), patientID, facilityID)
	if err != nil {
		t.Fatalf("BuildStatement: %v", err)
	}

	// The room line is folded into the summary, not listed item by item.
	if len(st.Lines) != 1 {
		t.Fatalf("expected only the manual line, got %d", len(st.Lines))
	}
	if st.RoomStay == nil {
		t.Fatal("expected a room stay summary")
	}
	if st.RoomStay.Days != 4 || st.RoomStay.Amount != 6000 {
		t.Errorf("expected 4 days / 6000, got %.0f / %.2f", st.RoomStay.Days, st.RoomStay.Amount)
	}

	if st.DisplayTotals.Charges != 7750 {
		t.Errorf("expected display charges 7750, got %.2f", st.DisplayTotals.Charges)
	}
	if st.Totals.Charges != 7750 {
		t.Errorf("expected charges 7750, got %.2f", st.Totals.Charges)
	}
	if st.Totals.Outstanding != 7750 {
		t.Errorf("expected outstanding 7750, got %.2f", st.Totals.Outstanding)
	}
}

func TestBuildStatementCancelledBill(t *testing.T) {
	svc, _, _, _ := newTestService()
	patientID, facilityID := uuid.New(), uuid.New()

	b, err := svc.OpenOrCreateBill(context.Background(), patientID, facilityID, uuid.Nil)
	if err != nil {
		t.Fatalf("OpenOrCreateBill: %v", err)
	}
	if _, err := svc.AddCharge(context.Background(), b.ID, ChargeInput{ServiceName: "CBC", Quantity: 1, UnitPrice: ptr(450.0)}); err != nil {
		t.Fatalf("AddCharge: %v", err)
	}
	if _, err := svc.CancelBill(context.Background(), b.ID, "wrong patient"); err != nil {
		t.Fatalf("CancelBill: %v", err)
	}

	st, err := svc.BuildStatement(context.Background(), patientID, facilityID)
	if err != nil {
		t.Fatalf("BuildStatement: %v", err)
	}
	if st.Totals.Charges != 0 {
		t.Errorf("cancelled charges must not count, got %.2f", st.Totals.Charges)
	}
	if len(st.Lines) != 0 {
		t.Errorf("cancelled items must not be listed, got %d", len(st.Lines))
	}
	if st.BillCount != 1 {
		t.Errorf("the cancelled bill still appears in the count, got %d", st.BillCount)
	}
}

func TestBuildStatementEmpty(t *testing.T) {
	svc, _, _, _ := newTestService()

	st, err := svc.BuildStatement(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("BuildStatement: %v", err)
	}
	if st.BillCount != 0 || st.Totals.Outstanding != 0 {
		t.Error("expected an empty statement")
	}
	if st.GeneratedAt.IsZero() {
		t.Error("expected generated_at to be set")
	}
	if time.Since(st.GeneratedAt) > time.Minute {
		t.Error("generated_at should be now")
	}
}

func TestBuildStatementValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.BuildStatement(context.Background(), uuid.Nil, uuid.New()); err == nil {
		t.Error("expected error for nil patient")
	}
	if _, err := svc.BuildStatement(context.Background(), uuid.New(), uuid.Nil); err == nil {
		t.Error("expected error for nil facility")
	}
}
