package billing

import "time"

// DeriveStatus recomputes a bill's status from its amounts. It is pure and
// runs after every mutation.
//
// Rules, in order:
//   - cancelled and paid are terminal; recomputation never moves off them
//   - a bill with no items and no payments stays draft
//   - total > 0 and balance within Epsilon of zero is paid
//   - past the due date, anything still owing is overdue, whether or not a
//     partial payment exists
//   - otherwise partial payments make it partially_paid, none make it sent
func DeriveStatus(current string, total, paid, balance float64, itemCount int, dueDate, now time.Time) string {
	switch current {
	case StatusCancelled:
		return StatusCancelled
	case StatusPaid:
		return StatusPaid
	}

	if itemCount == 0 && paid <= Epsilon {
		return StatusDraft
	}
	if total > Epsilon && balance <= Epsilon {
		return StatusPaid
	}
	if !dueDate.IsZero() && dateOf(dueDate).Before(dateOf(now)) {
		return StatusOverdue
	}
	if paid > Epsilon {
		return StatusPartiallyPaid
	}
	return StatusSent
}

// dateOf truncates to midnight UTC. Due-date and stay-day arithmetic is done
// on calendar dates, not instants.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
