package models

import "time"

type OrderStatus string

// Only paid orders are settled; everything else is ignored by the calculator.
const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusFailed        OrderStatus = "failed"
	OrderStatusPaid          OrderStatus = "paid"
	OrderStatusRefunded      OrderStatus = "refunded"
	OrderStatusPartialRefund OrderStatus = "partial_refund"
	OrderStatusFraudulent    OrderStatus = "fraudulent"
)

type Order struct {
	ID        string      `json:"id"`
	VariantID string      `json:"variant_id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

func (o Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// EntitlementWindow is the date through which update access is granted.
type EntitlementWindow struct {
	UpdatesUntil time.Time `json:"updates_until"`
}

// DateLayout is the wire format of UpdatesUntil.
const DateLayout = "2006-01-02"

func (w EntitlementWindow) Date() string {
	return w.UpdatesUntil.UTC().Format(DateLayout)
}
