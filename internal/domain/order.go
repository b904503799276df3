package domain

import "time"

// Tariff is a pricing rule per site. A session closes by snapshotting
// whichever Tariff is active at StopTransaction time.
type Tariff struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	SiteID          string    `json:"site_id" gorm:"index"`
	BasePricePerKWh float64   `json:"base_price_per_kwh"`
	ValidFrom       time.Time `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
}

// ActiveAt reports whether the tariff applies at instant t.
func (t Tariff) ActiveAt(at time.Time) bool {
	if at.Before(t.ValidFrom) {
		return false
	}
	return t.ValidUntil == nil || at.Before(*t.ValidUntil)
}

// Order is the derived financial record written when a ChargingSession
// closes. Billing settlement itself (invoicing, payment capture) is out of
// scope; only the write-on-session-close hook and energy/price snapshot
// matter here.
type Order struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	SessionID       string    `json:"session_id" gorm:"uniqueIndex"`
	ChargePointID   string    `json:"charge_point_id"`
	TariffID        string    `json:"tariff_id"`
	EnergyKWh       float64   `json:"energy_kwh"`
	PricePerKWh     float64   `json:"price_per_kwh"`
	AmountDue       float64   `json:"amount_due"`
	CreatedAt       time.Time `json:"created_at"`
}
