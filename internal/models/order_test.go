package models

import (
	"testing"
	"time"
)

func TestOrder_IsPaid(t *testing.T) {
	tests := []struct {
		status   OrderStatus
		expected bool
	}{
		{OrderStatusPaid, true},
		{OrderStatusPending, false},
		{OrderStatusFailed, false},
		{OrderStatusRefunded, false},
		{OrderStatusPartialRefund, false},
		{OrderStatusFraudulent, false},
		{OrderStatus("PAID"), false},
		{OrderStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			order := Order{Status: tt.status}
			if got := order.IsPaid(); got != tt.expected {
				t.Errorf("IsPaid() for %q = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestEntitlementWindow_Date(t *testing.T) {
	t.Run("formats as calendar date", func(t *testing.T) {
		w := EntitlementWindow{UpdatesUntil: time.Date(2025, 1, 9, 15, 4, 5, 0, time.UTC)}
		if got := w.Date(); got != "2025-01-09" {
			t.Errorf("Date() = %s, want 2025-01-09", got)
		}
	})

	t.Run("converts to UTC first", func(t *testing.T) {
		tz := time.FixedZone("UTC+10", 10*60*60)
		w := EntitlementWindow{UpdatesUntil: time.Date(2025, 1, 10, 5, 0, 0, 0, tz)}
		if got := w.Date(); got != "2025-01-09" {
			t.Errorf("Date() = %s, want 2025-01-09", got)
		}
	})
}
