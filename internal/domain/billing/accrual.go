package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// roomServiceName is the fixed name of the running accommodation line. The
// line is identified by its kind, never by this string.
const roomServiceName = "Room accommodation"

// StayDays counts the calendar days of a stay, inclusive of both the
// admission and the end date. Admission and discharge on the same day still
// bill one day.
func StayDays(admitted, end time.Time) int {
	days := int(dateOf(end).Sub(dateOf(admitted)).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// ReconcileRoomAccrual brings the admission's room charge in step with the
// stay as of now. Safe to call any number of times; it is a no-op when
// nothing changed.
func (s *Service) ReconcileRoomAccrual(ctx context.Context, admissionID uuid.UUID) (*Bill, error) {
	return s.reconcileAt(ctx, admissionID, time.Now().UTC())
}

func (s *Service) reconcileAt(ctx context.Context, admissionID uuid.UUID, now time.Time) (*Bill, error) {
	adm, err := s.adm.GetAdmission(ctx, admissionID)
	if err != nil {
		return nil, fmt.Errorf("admission lookup: %w", err)
	}
	if adm.RoomID == nil {
		return nil, ErrNoPricedRoom
	}
	room, err := s.adm.GetRoom(ctx, *adm.RoomID)
	if err != nil {
		return nil, fmt.Errorf("room lookup: %w", err)
	}
	if room.DailyRate == nil {
		return nil, ErrNoPricedRoom
	}
	rate := *room.DailyRate

	end := now
	if adm.DischargeDate != nil {
		end = *adm.DischargeDate
	}
	days := StayDays(adm.AdmissionDate, end)
	desc := describeStay(room.Name, adm.AdmissionDate, adm.DischargeDate, days)

	var bill *Bill
	err = s.tx(ctx, func(ctx context.Context) error {
		// Lock the ledger before looking for the room line so a racing
		// first-time reconcile waits here and then finds the line instead
		// of tripping over the unique index.
		if err := s.repo.LockLedger(ctx, adm.PatientID, adm.FacilityID); err != nil {
			return err
		}
		item, err := s.repo.FindRoomItem(ctx, adm.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			b, err := s.openBillLocked(ctx, adm.PatientID, adm.FacilityID, uuid.Nil)
			if err != nil {
				return err
			}
			item = &BillItem{
				BillID:      b.ID,
				Kind:        ItemKindRoomAccrual,
				AdmissionID: &adm.ID,
				ServiceName: roomServiceName,
				Description: desc,
				Quantity:    float64(days),
				UnitPrice:   rate,
				TotalPrice:  round2(float64(days) * rate),
			}
			if err := s.repo.CreateItem(ctx, item); err != nil {
				return err
			}
			bill = b
		case err != nil:
			return err
		default:
			b, err := s.repo.GetBillForUpdate(ctx, item.BillID)
			if err != nil {
				return err
			}
			// A settled or voided bill is final; the stay's charge stays
			// where it was billed.
			if b.Terminal() {
				bill = b
				return s.attach(ctx, bill)
			}
			if item.Quantity == float64(days) && item.UnitPrice == rate && item.Description == desc {
				bill = b
				return s.attach(ctx, bill)
			}
			item.Quantity = float64(days)
			item.UnitPrice = rate
			item.TotalPrice = round2(float64(days) * rate)
			item.Description = desc
			if err := s.repo.UpdateItem(ctx, item); err != nil {
				return err
			}
			bill = b
		}

		if bill.Status == StatusDraft {
			bill.Status = StatusSent
		}
		return s.recalculate(ctx, bill)
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func describeStay(roomName string, admitted time.Time, discharged *time.Time, days int) string {
	const layout = "Jan 2, 2006"
	end := "ongoing"
	if discharged != nil {
		end = discharged.UTC().Format(layout)
	}
	noun := "days"
	if days == 1 {
		noun = "day"
	}
	return fmt.Sprintf("%s, %s to %s (%d %s)", roomName, admitted.UTC().Format(layout), end, days, noun)
}

// SweepAdmitted reconciles every currently-admitted patient. One patient's
// failure is logged and skipped so the rest of the sweep still runs.
func (s *Service) SweepAdmitted(ctx context.Context) (processed, skipped int, err error) {
	admitted, err := s.adm.ListActive(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list admitted: %w", err)
	}
	for _, adm := range admitted {
		if _, rerr := s.ReconcileRoomAccrual(ctx, adm.ID); rerr != nil {
			skipped++
			if !errors.Is(rerr, ErrNoPricedRoom) {
				s.logger.Error().Err(rerr).
					Str("admission_id", adm.ID.String()).
					Str("patient_id", adm.PatientID.String()).
					Msg("accrual reconcile failed")
			}
			continue
		}
		processed++
	}
	return processed, skipped, nil
}

// BackfillAccruals walks every admission on record, including stays that were
// discharged before accrual ran, and reconciles each once. Because the room
// charge is a single running line, one reconcile per stay is sufficient.
func (s *Service) BackfillAccruals(ctx context.Context) (processed, skipped int, err error) {
	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		adms, total, err := s.adm.ListAdmissions(ctx, uuid.Nil, false, pageSize, offset)
		if err != nil {
			return processed, skipped, fmt.Errorf("list admissions: %w", err)
		}
		for _, adm := range adms {
			if _, rerr := s.ReconcileRoomAccrual(ctx, adm.ID); rerr != nil {
				skipped++
				if !errors.Is(rerr, ErrNoPricedRoom) {
					s.logger.Error().Err(rerr).
						Str("admission_id", adm.ID.String()).
						Msg("accrual backfill failed")
				}
				continue
			}
			processed++
		}
		if offset+pageSize >= total || len(adms) == 0 {
			break
		}
	}
	return processed, skipped, nil
}
