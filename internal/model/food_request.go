package model

import "time"

// Urgency levels accepted on food requests.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// RequestStatusPending is the status every new food request starts in.
const RequestStatusPending = "pending"

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FoodRequest mirrors the `food_requests` table. Only verified NGOs create them.
type FoodRequest struct {
	ID        string    `json:"id"`
	NGOID     string    `json:"ngo_id"`
	FoodType  string    `json:"food_type"`
	Quantity  int       `json:"quantity"`
	Urgency   string    `json:"urgency"`
	Location  Location  `json:"location"`
	Address   string    `json:"address"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Fulfillment mirrors the `fulfillments` table: a donor's pledge against a request.
type Fulfillment struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	DonorID   string    `json:"donor_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicStats is the anonymous analytics summary.
type PublicStats struct {
	Users     int64 `json:"users"`
	Requests  int64 `json:"requests"`
	Fulfilled int64 `json:"fulfilled"`
}
