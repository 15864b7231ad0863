package entitlement

import (
	"slices"
	"time"

	"auto-focus.app/updates/internal/models"
)

// MaintenanceTerm is the duration one license or one maintenance purchase grants.
const MaintenanceTerm = 365 * 24 * time.Hour

type Calculator struct {
	MaintenanceVariantID string
}

func NewCalculator(maintenanceVariantID string) Calculator {
	return Calculator{MaintenanceVariantID: maintenanceVariantID}
}

// Qualifying returns the paid maintenance orders sorted by creation time.
func (c Calculator) Qualifying(orders []models.Order) []models.Order {
	var qualifying []models.Order
	for _, o := range orders {
		if o.VariantID == c.MaintenanceVariantID && o.IsPaid() {
			qualifying = append(qualifying, o)
		}
	}

	slices.SortStableFunc(qualifying, func(a, b models.Order) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return qualifying
}

// Compute stacks one MaintenanceTerm per qualifying order on top of the
// baseline issuedAt+MaintenanceTerm. A window that has lapsed before now
// restarts from now instead of being extended.
func (c Calculator) Compute(issuedAt time.Time, orders []models.Order, now time.Time) models.EntitlementWindow {
	updatesUntil := issuedAt.Add(MaintenanceTerm)

	for range c.Qualifying(orders) {
		if updatesUntil.Before(now) {
			updatesUntil = now.Add(MaintenanceTerm)
		} else {
			updatesUntil = updatesUntil.Add(MaintenanceTerm)
		}
	}

	return models.EntitlementWindow{UpdatesUntil: updatesUntil}
}
