package models

import (
	"time"
)

// License is what the licensing service reports for a key.
type License struct {
	Key              string    `json:"-"`
	Valid            bool      `json:"valid"`
	CustomerIdentity string    `json:"customer_identity"`
	IssuedAt         time.Time `json:"issued_at"`
}

type SyncRequest struct {
	LicenseKey string `json:"license_key" validate:"required"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
}

type SyncResponse struct {
	Status       string `json:"status"`
	UpdatesUntil string `json:"updates_until"`
}

const StatusActive = "active"
