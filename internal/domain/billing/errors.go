package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a bill, item or payment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoOpenBill is the normal outcome of an implicit-payment lookup for
	// a patient with nothing outstanding.
	ErrNoOpenBill = errors.New("no open bill")

	// ErrNoPricedRoom means the admission has no room, or a room without a
	// daily rate, so there is nothing to accrue.
	ErrNoPricedRoom = errors.New("no priced room")
)

// ValidationError reports invalid caller input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// PaymentExceedsBalanceError carries the live balance so the cashier screen
// can show how much is actually owed.
type PaymentExceedsBalanceError struct {
	Amount  float64
	Balance float64
}

func (e *PaymentExceedsBalanceError) Error() string {
	return fmt.Sprintf("payment %.2f exceeds balance %.2f", e.Amount, e.Balance)
}

// DiscountExceedsSubtotalError carries the subtotal the discount was checked
// against.
type DiscountExceedsSubtotalError struct {
	Discount float64
	Subtotal float64
}

func (e *DiscountExceedsSubtotalError) Error() string {
	return fmt.Sprintf("discount %.2f exceeds subtotal %.2f", e.Discount, e.Subtotal)
}
