package model

import "time"

// Course supplies default duration, price and delivery mode when a lesson or
// pattern is created from a course template.
type Course struct {
	ID                     int64        `json:"id"`
	OrganizationID         int64        `json:"organization_id"`
	Name                   string       `json:"name"`
	Description            string       `json:"description"`
	DefaultDurationMinutes int          `json:"default_duration_minutes"`
	PriceCents             int64        `json:"price_cents"`
	Currency               string       `json:"currency"`
	DeliveryMode           DeliveryMode `json:"delivery_mode"`
	IsActive               bool         `json:"is_active"`
	CreatedAt              time.Time    `json:"created_at"`
}
