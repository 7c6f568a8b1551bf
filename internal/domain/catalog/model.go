package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ChargeItem is a priced service in the clinic's charge catalog. Billing
// references catalog items by id when adding charges so the price list stays
// in one place.
type ChargeItem struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	UnitPrice float64   `json:"unit_price"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Categories used by the maternity service list. Free-form values are
// accepted; these are the ones seeded by default.
const (
	CategoryDelivery   = "delivery"
	CategoryNewborn    = "newborn"
	CategoryLaboratory = "laboratory"
	CategoryMedication = "medication"
	CategoryOther      = "other"
)
